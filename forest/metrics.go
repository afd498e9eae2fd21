package forest

import "math"

// Accuracy returns the exact-match rate between true and predicted labels.
// It returns NaN when there is nothing to score (empty or mismatched
// inputs), which callers treat as "accuracy undefined" rather than an
// error.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return math.NaN()
	}
	hits := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(yTrue))
}
