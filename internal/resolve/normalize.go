package resolve

import "go.uber.org/zap"

// DefaultThreshold is the minimum score a candidate must strictly exceed to
// resolve to a catalog name.
const DefaultThreshold = 0.7

// Index holds catalog names with their digit-run keys precomputed. It is
// immutable and safe for concurrent use.
type Index struct {
	names []string
	keys  []string
}

// NewIndex builds an Index over names, preserving their order.
func NewIndex(names []string) *Index {
	idx := &Index{
		names: make([]string, len(names)),
		keys:  make([]string, len(names)),
	}
	copy(idx.names, names)
	for i, n := range names {
		idx.keys[i] = digitKey(DigitRuns(n))
	}
	return idx
}

// Len returns the number of indexed names.
func (idx *Index) Len() int { return len(idx.names) }

// ScoreFunc rates a candidate against a catalog name. It is only called for
// pairs whose digit-run sets agree.
type ScoreFunc func(candidate, name string) float64

// Normalizer maps candidate phrases onto catalog names.
type Normalizer struct {
	threshold float64
	score     ScoreFunc
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithScoreFunc replaces the string similarity used for ranking.
func WithScoreFunc(fn ScoreFunc) NormalizerOption {
	return func(n *Normalizer) {
		n.score = fn
	}
}

// NewNormalizer creates a Normalizer with the given threshold.
func NewNormalizer(threshold float64, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		threshold: threshold,
		score:     Similarity,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Best returns the position of the highest-scoring name for candidate and its
// score. The first maximum wins, so catalog order breaks ties. Returns -1
// when the index is empty.
func (n *Normalizer) Best(candidate string, idx *Index) (int, float64) {
	best, bestScore := -1, -1.0
	key := digitKey(DigitRuns(candidate))
	for i, name := range idx.names {
		if s := gatedScore(n.score, candidate, key, name, idx.keys[i]); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}

// Resolve returns the catalog name for candidate, or "" when no name scores
// strictly above the threshold.
func (n *Normalizer) Resolve(candidate string, idx *Index) string {
	i, s := n.Best(candidate, idx)
	if i < 0 || s <= n.threshold {
		return ""
	}
	return idx.names[i]
}

// Normalize resolves every candidate. The result has the same length as
// candidates, with "" marking unresolved entries.
func (n *Normalizer) Normalize(candidates []string, idx *Index) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = n.Resolve(c, idx)
		if out[i] == "" {
			zap.L().Debug("resolve: candidate unresolved", zap.String("candidate", c))
		}
	}
	return out
}
