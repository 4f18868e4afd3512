package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVec(t *testing.T) {
	t.Parallel()

	v := NormalizeVec([]float64{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-9)
	assert.InDelta(t, 0.8, v[1], 1e-9)

	zero := NormalizeVec([]float64{0, 0})
	assert.Equal(t, []float64{0, 0}, zero)
}

func TestCosineIdentityAndBounds(t *testing.T) {
	t.Parallel()

	a := NormalizeVec([]float64{0.2, 0.5, 0.9})
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)

	b := NormalizeVec([]float64{-0.2, -0.5, -0.9})
	assert.InDelta(t, -1.0, Cosine(a, b), 1e-9)

	orthogonalA := []float64{1, 0}
	orthogonalB := []float64{0, 1}
	assert.Zero(t, Cosine(orthogonalA, orthogonalB))

	for _, sim := range []float64{Cosine(a, a), Cosine(a, b)} {
		assert.LessOrEqual(t, math.Abs(sim), 1.0+1e-9)
	}
}

func TestCosineMismatchedLengths(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Cosine([]float64{1, 0}, []float64{1}))
	assert.Zero(t, Cosine(nil, nil))
}

func TestMaxSimilarity(t *testing.T) {
	t.Parallel()

	jobVec := []float64{1, 0}
	chunks := [][]float64{
		{0, 1},
		{0.82, math.Sqrt(1 - 0.82*0.82)},
		{0.5, math.Sqrt(0.75)},
	}

	best, idx := MaxSimilarity(jobVec, chunks)
	assert.InDelta(t, 0.82, best, 1e-9)
	assert.Equal(t, 1, idx)

	best, idx = MaxSimilarity(jobVec, nil)
	assert.Zero(t, best)
	assert.Equal(t, -1, idx)
}
