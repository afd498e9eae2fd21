package hypersweep

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Const, vars, types.
//////

// TPE implements the Tree-structured Parzen Estimator suggestion strategy.
//
// The estimator keeps the full trial history (X, Y) and, once enough trials
// have been observed, splits it at the Gamma quantile of the losses into a
// "good" set and a "bad" set. Each set is modeled with a per-dimension
// Parzen (kernel density) estimator; candidates are drawn from the good
// model and ranked by the density ratio l(x)/g(x), so the next suggestion
// is the candidate most likely under good trials and least likely under bad
// ones.
//
// Thread safety:
//   - All fields are protected by the mutex.
//   - Safe for concurrent Suggest and Observe calls from multiple
//     goroutines; the history is the only state shared between parallel
//     trials and it is serialized here.
//
// Memory usage:
//   - Grows linearly with the number of observations; each observation
//     stores a copy of its parameter vector.
type TPE struct {
	// mu protects all fields, including the random source.
	mu sync.Mutex

	// rng drives startup sampling and kernel draws. Guarded by mu.
	rng *rand.Rand

	// X stores the observed parameter vectors.
	X [][]float64

	// Y stores the observed losses, aligned with X.
	Y []float64

	// Gamma is the quantile that splits the history into good and bad
	// observations. Typical values are 0.15-0.3.
	Gamma float64

	// StartupTrials is the number of purely random suggestions made before
	// the estimator starts modeling the history.
	StartupTrials int

	// NumCandidates is the number of candidates drawn from the good model
	// per suggestion; the best-scoring one is returned.
	NumCandidates int
}

// NewTPE returns a TPE suggester with the default split quantile (0.25),
// startup budget (10 random trials), and candidate count (24).
//
// Parameters:
//   - seed: seeds the suggester's random source. Two suggesters created
//     with the same seed and fed the same observations in the same order
//     produce the same suggestions.
func NewTPE(seed int64) *TPE {
	return &TPE{
		rng:           rand.New(rand.NewSource(seed)),
		Gamma:         0.25,
		StartupTrials: 10,
		NumCandidates: 24,
	}
}

//////
// Methods.
//////

// Observe adds a completed trial to the history. The parameter vector is
// deep-copied so later mutation by the caller cannot corrupt the model.
// Non-finite losses are ignored: they carry no ranking information.
func (t *TPE) Observe(params []float64, loss float64) {
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.X = append(t.X, floatsCopy(params))
	t.Y = append(t.Y, loss)
}

// Suggest proposes the next parameter vector to evaluate.
//
// During the startup phase (fewer than StartupTrials observations) the
// suggestion is a uniform random sample from the space. Afterwards the
// history is split at the Gamma quantile and NumCandidates vectors are
// drawn from the good-set kernel density model; the candidate with the
// highest l(x)/g(x) density ratio wins. Every coordinate is constrained
// back onto its dimension's grid, so integer and quantized dimensions
// always receive valid values.
func (t *TPE) Suggest(space Space) []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.Y) < t.StartupTrials {
		return space.Sample(t.rng)
	}

	good, bad := t.split()
	ensureBandwidth(&good, space)
	ensureBandwidth(&bad, space)

	bestScore := math.Inf(-1)
	var best []float64
	for c := 0; c < t.NumCandidates; c++ {
		candidate := t.drawFrom(good, space)
		score := densityRatio(candidate, good, bad)
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	return best
}

// Len returns the number of observations in the history.
func (t *TPE) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.Y)
}

//////
// Internal model.
//////

// parzenSet is one side of the good/bad split: the selected observation
// vectors plus a per-dimension kernel bandwidth.
type parzenSet struct {
	points    [][]float64
	bandwidth []float64
}

// split partitions the history at the Gamma quantile of the losses.
// The good set always contains at least one observation. Callers must hold
// the mutex.
func (t *TPE) split() (good, bad parzenSet) {
	sorted := floatsCopy(t.Y)
	sort.Float64s(sorted)
	cut := stat.Quantile(t.Gamma, stat.Empirical, sorted, nil)

	for i, y := range t.Y {
		if y <= cut {
			good.points = append(good.points, t.X[i])
		} else {
			bad.points = append(bad.points, t.X[i])
		}
	}
	// Quantile ties can leave one side empty; fall back to a best-vs-rest
	// split so both densities stay defined.
	if len(good.points) == 0 || len(bad.points) == 0 {
		good.points, bad.points = t.bestVsRest()
	}
	return good, bad
}

// bestVsRest splits the history into the single best observation and
// everything else. Callers must hold the mutex.
func (t *TPE) bestVsRest() (good, bad [][]float64) {
	best := argmin(t.Y)
	for i := range t.X {
		if i == best {
			good = append(good, t.X[i])
		} else {
			bad = append(bad, t.X[i])
		}
	}
	if len(bad) == 0 {
		bad = good
	}
	return good, bad
}

// drawFrom samples one candidate vector from the set's kernel density
// model: for each dimension, pick a random member of the set and jitter its
// coordinate with a Gaussian kernel. Callers must hold the mutex (uses rng)
// and must have computed the set's bandwidth.
func (t *TPE) drawFrom(set parzenSet, space Space) []float64 {
	candidate := make([]float64, len(space))
	for j, d := range space {
		center := set.points[t.rng.Intn(len(set.points))][j]
		candidate[j] = d.Constrain(center + t.rng.NormFloat64()*set.bandwidth[j])
	}
	return candidate
}

// densityRatio scores a candidate by l(x)/g(x) in log space, where l is the
// good-set density and g the bad-set density.
func densityRatio(candidate []float64, good, bad parzenSet) float64 {
	return logDensity(candidate, good) - logDensity(candidate, bad)
}

// logDensity evaluates the log of the per-dimension Parzen mixture at x.
func logDensity(x []float64, set parzenSet) float64 {
	var total float64
	for j := range x {
		kernel := distuv.Normal{Sigma: set.bandwidth[j]}

		var density float64
		for _, p := range set.points {
			kernel.Mu = p[j]
			density += kernel.Prob(x[j])
		}
		density /= float64(len(set.points))

		// Floor the density so a candidate far outside one dimension's
		// kernels cannot produce -Inf and mask the other dimensions.
		total += math.Log(math.Max(density, 1e-12))
	}
	return total
}

// ensureBandwidth lazily computes the set's per-dimension kernel widths:
// the sample standard deviation scaled by n^(-1/5) (Scott's rule), floored
// at 1/20th of the dimension's range so degenerate sets keep a usable
// kernel.
func ensureBandwidth(set *parzenSet, space Space) {
	if set.bandwidth != nil {
		return
	}

	n := float64(len(set.points))
	set.bandwidth = make([]float64, len(space))
	for j, d := range space {
		values := make([]float64, len(set.points))
		for i, p := range set.points {
			values[i] = p[j]
		}

		bw := stat.StdDev(values, nil) * math.Pow(n, -0.2)
		floor := (d.Max - d.Min) / 20
		if floor <= 0 {
			floor = 1e-6
		}
		if math.IsNaN(bw) || bw < floor {
			bw = floor
		}
		set.bandwidth[j] = bw
	}
}
