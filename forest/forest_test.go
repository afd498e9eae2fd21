package forest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobs generates a linearly separable two-class dataset: class 1 sits in
// the upper-right corner of the unit square, class 0 in the lower-left.
func blobs(n int, seed int64) (x [][]float64, y []int) {
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		label := i % 2
		offset := 0.0
		if label == 1 {
			offset = 2.0
		}
		x = append(x, []float64{
			offset + rng.Float64(),
			offset + rng.Float64(),
			rng.Float64(), // noise column
		})
		y = append(y, label)
	}
	return x, y
}

func TestFitPredictExactBackend(t *testing.T) {
	x, y := blobs(200, 1)

	clf := New(WithNEstimators(20), WithMaxDepth(8), WithSeed(7))
	require.NoError(t, clf.Fit(x, y))

	acc := Accuracy(y, clf.Predict(x))
	assert.GreaterOrEqual(t, acc, 0.95)
}

func TestFitPredictHistBackend(t *testing.T) {
	x, y := blobs(200, 1)

	clf := New(
		WithNEstimators(20),
		WithMaxDepth(8),
		WithSeed(7),
		WithSplitter(NewHistSplitter()),
	)
	require.NoError(t, clf.Fit(x, y))

	acc := Accuracy(y, clf.Predict(x))
	assert.GreaterOrEqual(t, acc, 0.95)
}

func TestFitDeterministicForFixedSeed(t *testing.T) {
	x, y := blobs(150, 2)
	probe, _ := blobs(40, 3)

	a := New(WithNEstimators(15), WithMaxDepth(6), WithMaxFeatures(0.67), WithSeed(123))
	b := New(WithNEstimators(15), WithMaxDepth(6), WithMaxFeatures(0.67), WithSeed(123))
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))

	assert.Equal(t, a.Predict(probe), b.Predict(probe))
}

func TestFitValidatesInput(t *testing.T) {
	assert.Error(t, New().Fit(nil, nil))
	assert.Error(t, New().Fit([][]float64{{1, 2}}, []int{0, 1}))
	assert.Error(t, New().Fit([][]float64{{1, 2}, {1}}, []int{0, 1}))
	assert.Error(t, New(WithNEstimators(0)).Fit([][]float64{{1}}, []int{0}))
	assert.Error(t, New(WithMaxFeatures(1.5)).Fit([][]float64{{1}}, []int{0}))
}

func TestMaxFeaturesFraction(t *testing.T) {
	assert.Equal(t, 10, resolveMaxFeatures(0, 10))
	assert.Equal(t, 10, resolveMaxFeatures(1.0, 10))
	assert.Equal(t, 5, resolveMaxFeatures(0.5, 10))
	assert.Equal(t, 1, resolveMaxFeatures(0.01, 10))
}

func TestGobRoundTrip(t *testing.T) {
	x, y := blobs(120, 4)
	probe, _ := blobs(30, 5)

	clf := New(WithNEstimators(10), WithMaxDepth(5), WithSeed(9))
	require.NoError(t, clf.Fit(x, y))

	data, err := clf.MarshalBinary()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var loaded Classifier
	require.NoError(t, loaded.UnmarshalBinary(data))

	assert.Equal(t, clf.Predict(probe), loaded.Predict(probe))
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 1.0, Accuracy([]int{1, 0, 1}, []int{1, 0, 1}))
	assert.Equal(t, 0.5, Accuracy([]int{1, 0, 1, 0}, []int{1, 1, 1, 1}))
	assert.True(t, math.IsNaN(Accuracy(nil, nil)))
	assert.True(t, math.IsNaN(Accuracy([]int{1}, []int{1, 0})))
}

func TestSplitterThresholds(t *testing.T) {
	exact := ExactSplitter{}.Thresholds([]float64{3, 1, 2, 2})
	assert.Equal(t, []float64{1.5, 2.5}, exact)
	assert.Empty(t, ExactSplitter{}.Thresholds([]float64{5, 5, 5}))

	hist := NewHistSplitter().Thresholds([]float64{0, 16})
	require.Len(t, hist, DefaultBins-1)
	assert.Equal(t, 1.0, hist[0])
	assert.Equal(t, 15.0, hist[len(hist)-1])

	assert.Empty(t, NewHistSplitter().Thresholds([]float64{5, 5}))
	assert.Empty(t, NewHistSplitter().Thresholds([]float64{5}))
}
