package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := map[string]struct {
		a        []float32
		b        []float32
		expected float64
	}{
		"identical vectors score 1": {
			a:        []float32{0.5, 0.5, 0.7},
			b:        []float32{0.5, 0.5, 0.7},
			expected: 1,
		},
		"orthogonal vectors score 0": {
			a:        []float32{1, 0},
			b:        []float32{0, 1},
			expected: 0,
		},
		"mismatched lengths score 0": {
			a:        []float32{1, 0, 0},
			b:        []float32{1, 0},
			expected: 0,
		},
		"empty vector scores 0": {
			a:        nil,
			b:        []float32{1, 0},
			expected: 0,
		},
		"zero norm scores 0": {
			a:        []float32{0, 0},
			b:        []float32{1, 1},
			expected: 0,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Cosine(tc.a, tc.b), 1e-9)
		})
	}
}

func TestCosine_SelfSimilarity(t *testing.T) {
	vectors := [][]float32{
		{1},
		{0.1, 0.2, 0.3},
		{-0.5, 0.5, -0.5, 0.5},
	}

	for _, v := range vectors {
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
	}
}

func TestJaccard_EmptySemantics(t *testing.T) {
	empty := map[string]struct{}{}
	nonEmpty := map[string]struct{}{"a b": {}}

	// Generic helper: both empty is trivially similar.
	assert.Equal(t, 1.0, Jaccard(empty, empty))
	assert.Equal(t, 0.0, Jaccard(empty, nonEmpty))

	// Title wrapper: an empty title carries no signal, even against another
	// empty title. The asymmetry with the generic helper is intentional.
	assert.Equal(t, 0.0, TitleJaccard("", ""))
	assert.Equal(t, 0.0, TitleJaccard("", "some headline"))
}

func TestTitleJaccard(t *testing.T) {
	tests := map[string]struct {
		a   string
		b   string
		min float64
		max float64
	}{
		"identical titles": {
			a:   "Central Bank Raises Interest Rates",
			b:   "Central Bank Raises Interest Rates",
			min: 1, max: 1,
		},
		"case and punctuation are normalized": {
			a:   "central bank raises interest rates",
			b:   "Central Bank Raises Interest Rates!",
			min: 1, max: 1,
		},
		"related titles overlap partially": {
			a:   "Central Bank Raises Interest Rates Again",
			b:   "Central Bank Raises Rates",
			min: 0.01, max: 0.99,
		},
		"unrelated titles do not overlap": {
			a:   "Central Bank Raises Interest Rates",
			b:   "Local Team Wins Championship Final",
			min: 0, max: 0,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := TitleJaccard(tc.a, tc.b)
			assert.GreaterOrEqual(t, got, tc.min)
			assert.LessOrEqual(t, got, tc.max)
		})
	}
}

func TestShingles(t *testing.T) {
	shingles := Shingles("Alpha Beta Gamma", 2)
	require.Len(t, shingles, 2)
	assert.Contains(t, shingles, "alpha beta")
	assert.Contains(t, shingles, "beta gamma")

	// Shorter than n words collapses to a single shingle.
	short := Shingles("Alpha", 2)
	require.Len(t, short, 1)
	assert.Contains(t, short, "alpha")
}

func TestEntityOverlap(t *testing.T) {
	a := "The spokesperson said Google and Microsoft reached a deal."
	b := "Shares of Google and Microsoft rose after the announcement."
	c := "The weather stayed dry across the whole region yesterday."

	assert.Greater(t, EntityOverlap(a, b), 0.0)
	assert.Equal(t, 0.0, EntityOverlap(a, c))
}

func TestCombined_WeightNormalization(t *testing.T) {
	base := Combined(0.8, 0.5, 0.2, Weights{Cosine: 1, Jaccard: 0.6, Entity: 0.4})
	scaled := Combined(0.8, 0.5, 0.2, Weights{Cosine: 0.5, Jaccard: 0.3, Entity: 0.2})

	assert.InDelta(t, base, scaled, 1e-9)
}

func TestCombined_ZeroWeights(t *testing.T) {
	assert.Equal(t, 0.0, Combined(1, 1, 1, Weights{}))
}

func TestCombined_SingleSignal(t *testing.T) {
	got := Combined(0.9, 0.1, 0.1, Weights{Cosine: 1})
	assert.InDelta(t, 0.9, got, 1e-9)
}
