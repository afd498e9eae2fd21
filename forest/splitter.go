package forest

import "sort"

// ---------------------------
// Split backends
// ---------------------------

// DefaultBins is the fixed histogram resolution of the binned backend.
const DefaultBins = 16

// Splitter generates the candidate thresholds examined for one feature.
// The two implementations make the classifier's compute backends: an exact
// threshold scan and a fixed-bin histogram approximation. Trees built with
// either backend are structurally identical; only the threshold candidates
// differ.
type Splitter interface {
	// Thresholds returns candidate split points for the given feature
	// values. An empty result means the feature cannot be split.
	Thresholds(values []float64) []float64
}

// ExactSplitter proposes the midpoint between every pair of adjacent
// distinct values, the way an exhaustive CPU implementation would.
type ExactSplitter struct{}

func (ExactSplitter) Thresholds(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var out []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			continue
		}
		out = append(out, (sorted[i-1]+sorted[i])/2)
	}
	return out
}

// HistSplitter buckets the feature range into a fixed number of bins and
// proposes the bin edges, mirroring histogram-based GPU tree builders.
type HistSplitter struct {
	Bins int
}

// NewHistSplitter returns a HistSplitter with the default bin count.
func NewHistSplitter() HistSplitter {
	return HistSplitter{Bins: DefaultBins}
}

func (h HistSplitter) Thresholds(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min == max {
		return nil
	}

	bins := h.Bins
	if bins < 2 {
		bins = DefaultBins
	}
	width := (max - min) / float64(bins)
	out := make([]float64, 0, bins-1)
	for i := 1; i < bins; i++ {
		out = append(out, min+float64(i)*width)
	}
	return out
}
