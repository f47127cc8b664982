package resolve

import "github.com/agext/levenshtein"

// indelParams prices a substitution as a deletion plus an insertion, which
// turns the Levenshtein score into the normalized indel similarity:
// 1 - indel(a, b) / (len(a) + len(b)), measured in runes.
var indelParams = levenshtein.NewParams().SubCost(2)

// Similarity returns the normalized edit similarity of a and b in [0, 1].
// Identical strings score 1; the comparison is case-sensitive.
func Similarity(a, b string) float64 {
	return levenshtein.Similarity(a, b, indelParams)
}

// Score rates how well candidate matches a catalog name. Differing digit-run
// sets disqualify the pair outright: "школа 6" never matches "школа 16".
func Score(candidate, name string) float64 {
	return gatedScore(Similarity, candidate, digitKey(DigitRuns(candidate)), name, digitKey(DigitRuns(name)))
}

// gatedScore applies fn only when the digit keys of the pair agree.
func gatedScore(fn ScoreFunc, candidate, candidateKey, name, nameKey string) float64 {
	if candidateKey != nameKey {
		return 0
	}
	return fn(candidate, name)
}
