package hypersweep

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDimensionSample(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	depth := IntUniform("max_depth", 5, 15)
	for i := 0; i < 200; i++ {
		v := depth.Sample(rng)
		assert.GreaterOrEqual(t, v, 5.0)
		assert.LessOrEqual(t, v, 15.0)
		assert.Equal(t, math.Trunc(v), v)
	}

	frac := Uniform("max_features", 0.0, 1.0)
	for i := 0; i < 200; i++ {
		v := frac.Sample(rng)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	trees := QuantizedInt("n_estimators", 100, 500, 100)
	seen := map[float64]bool{}
	for i := 0; i < 200; i++ {
		v := trees.Sample(rng)
		assert.Contains(t, []float64{100, 200, 300, 400, 500}, v)
		seen[v] = true
	}
	// Both endpoints of the quantized range are reachable.
	assert.True(t, seen[100])
	assert.True(t, seen[500])
}

func TestDimensionConstrain(t *testing.T) {
	depth := IntUniform("max_depth", 5, 15)
	assert.Equal(t, 5.0, depth.Constrain(-3.2))
	assert.Equal(t, 15.0, depth.Constrain(99))
	assert.Equal(t, 8.0, depth.Constrain(7.6))

	trees := QuantizedInt("n_estimators", 100, 500, 100)
	assert.Equal(t, 300.0, trees.Constrain(310))
	assert.Equal(t, 100.0, trees.Constrain(-50))
	assert.Equal(t, 500.0, trees.Constrain(777))

	frac := Uniform("max_features", 0.0, 1.0)
	assert.Equal(t, 0.42, frac.Constrain(0.42))
	assert.Equal(t, 1.0, frac.Constrain(1.7))
}

func TestSpaceContains(t *testing.T) {
	space := testSpace()

	assert.True(t, space.Contains([]float64{8, 0.5, 300}))
	assert.False(t, space.Contains([]float64{4, 0.5, 300}))
	assert.False(t, space.Contains([]float64{8, 1.5, 300}))
	assert.False(t, space.Contains([]float64{8, 0.5}))
}

func TestFailSetsNaNLoss(t *testing.T) {
	res := Fail(assert.AnError)
	assert.Equal(t, StatusFailed, res.Status)
	assert.True(t, math.IsNaN(res.Loss))
	assert.Equal(t, assert.AnError, res.Err)
}
