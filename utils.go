package hypersweep

import "golang.org/x/exp/constraints"

//////
// Helper functions.
//////

// clamp restricts v to the inclusive range [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// argmin returns the index of the smallest element of xs.
//
// Returns:
// - Index of the minimum, or -1 for an empty slice.
func argmin[T constraints.Ordered](xs []T) int {
	if len(xs) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[best] {
			best = i
		}
	}
	return best
}

// floatsCopy returns an independent copy of xs, preserving nil.
func floatsCopy(xs []float64) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(xs))
	copy(out, xs)
	return out
}
