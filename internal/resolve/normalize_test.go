package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNames = []string{
	"Летний сад",
	"школа № 6",
	"школа № 16",
	"Михайловский сад",
	"Исаакиевский собор",
}

func TestNormalize_ExactNames(t *testing.T) {
	n := NewNormalizer(DefaultThreshold)
	idx := NewIndex(testNames)

	got := n.Normalize([]string{"Летний сад", "школа № 6"}, idx)
	assert.Equal(t, []string{"Летний сад", "школа № 6"}, got)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer(DefaultThreshold)
	idx := NewIndex(testNames)

	first := n.Normalize([]string{"Летний сад", "школа № 16", "Исаакиевский собр"}, idx)
	second := n.Normalize(first, idx)
	assert.Equal(t, first, second)
}

func TestNormalize_NumericMismatchNeverMatches(t *testing.T) {
	n := NewNormalizer(DefaultThreshold)
	idx := NewIndex([]string{"школа № 16"})

	assert.Equal(t, []string{""}, n.Normalize([]string{"школа № 6"}, idx))
}

func TestNormalize_PicksNumberedSibling(t *testing.T) {
	n := NewNormalizer(DefaultThreshold)
	idx := NewIndex(testNames)

	assert.Equal(t, []string{"школа № 16"}, n.Normalize([]string{"школа №16"}, idx))
}

func TestNormalize_BelowThreshold(t *testing.T) {
	n := NewNormalizer(DefaultThreshold)
	idx := NewIndex(testNames)

	assert.Equal(t, []string{""}, n.Normalize([]string{"вокзал"}, idx))
}

func TestNormalize_PreservesLength(t *testing.T) {
	n := NewNormalizer(DefaultThreshold)
	idx := NewIndex(testNames)

	cands := []string{"вокзал", "Летний сад", "", "школа № 99"}
	got := n.Normalize(cands, idx)
	require.Len(t, got, len(cands))
	assert.Equal(t, []string{"", "Летний сад", "", ""}, got)
}

func TestNormalize_EmptyIndex(t *testing.T) {
	n := NewNormalizer(DefaultThreshold)
	idx := NewIndex(nil)

	assert.Equal(t, []string{""}, n.Normalize([]string{"Летний сад"}, idx))
	assert.Empty(t, n.Normalize(nil, idx))
}

func TestResolve_StrictThresholdBoundary(t *testing.T) {
	idx := NewIndex([]string{"A"})

	atBoundary := NewNormalizer(0.7, WithScoreFunc(func(string, string) float64 { return 0.7 }))
	assert.Equal(t, "", atBoundary.Resolve("a", idx))

	above := NewNormalizer(0.7, WithScoreFunc(func(string, string) float64 { return 0.7000001 }))
	assert.Equal(t, "A", above.Resolve("a", idx))
}

func TestResolve_IdenticalAtThresholdOne(t *testing.T) {
	// A perfect score cannot strictly exceed a threshold of 1.
	n := NewNormalizer(1)
	idx := NewIndex([]string{"Летний сад"})
	assert.Equal(t, "", n.Resolve("Летний сад", idx))
}

func TestBest_FirstMaximumWins(t *testing.T) {
	n := NewNormalizer(DefaultThreshold)
	idx := NewIndex([]string{"Летний сад", "Летний сад"})

	i, s := n.Best("Летний сад", idx)
	assert.Equal(t, 0, i)
	assert.Equal(t, 1.0, s)
}

func TestBest_ScoreFuncSkippedOnDigitMismatch(t *testing.T) {
	calls := 0
	n := NewNormalizer(DefaultThreshold, WithScoreFunc(func(string, string) float64 {
		calls++
		return 1
	}))
	idx := NewIndex([]string{"школа № 16", "школа № 6"})

	i, s := n.Best("школа № 6", idx)
	assert.Equal(t, 1, i)
	assert.Equal(t, 1.0, s)
	assert.Equal(t, 1, calls)
}

func TestBest_EmptyIndex(t *testing.T) {
	n := NewNormalizer(DefaultThreshold)
	i, s := n.Best("x", NewIndex(nil))
	assert.Equal(t, -1, i)
	assert.Equal(t, 0.0, s)
}

func TestIndex_CopiesNames(t *testing.T) {
	names := []string{"Летний сад"}
	idx := NewIndex(names)
	names[0] = "changed"
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, "Летний сад", NewNormalizer(DefaultThreshold).Resolve("Летний сад", idx))
}

func TestBest_AgreesWithScore(t *testing.T) {
	n := NewNormalizer(DefaultThreshold)
	idx := NewIndex(testNames)

	for _, c := range []string{"школа 6", "школа № 16", "Летний сад", "сад"} {
		i, s := n.Best(c, idx)
		require.GreaterOrEqual(t, i, 0)
		assert.InDelta(t, Score(c, testNames[i]), s, 1e-12, c)
		for _, name := range testNames {
			assert.LessOrEqual(t, Score(c, name), s, "%s vs %s", c, name)
		}
	}
}
