package hypersweep

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"
)

//////
// Trial types.
//////

// TrialStatus indicates whether a single evaluation of the objective
// function completed successfully.
type TrialStatus string

const (
	// StatusOK means the trial produced a usable loss value.
	StatusOK TrialStatus = "OK"

	// StatusFailed means the trial raised an error before a loss could be
	// computed. Failed trials count against the search's failure budget.
	StatusFailed TrialStatus = "FAILED"
)

// TrialResult is the outcome of one evaluation of the objective function.
//
// Fields:
//   - Loss: the scalar value the search minimizes. By convention this is the
//     negative validation accuracy, so minimizing the loss maximizes
//     accuracy. Loss is NaN when no evaluation took place (for example a
//     full-data training run with no held-out split).
//   - Status: StatusOK or StatusFailed.
//
// Usage example:
//
//	// A successful trial with 87% validation accuracy:
//	res := hypersweep.TrialResult{Loss: -0.87, Status: hypersweep.StatusOK}
//
//	// A trial whose training step errored out:
//	res := hypersweep.Fail(err)
type TrialResult struct {
	// Loss is the value being minimized (negative accuracy, or NaN).
	Loss float64

	// Status reports whether the evaluation completed.
	Status TrialStatus

	// Err carries the underlying error for failed trials. It is ignored for
	// StatusOK results.
	Err error
}

// OK wraps a loss value in a successful TrialResult.
func OK(loss float64) TrialResult {
	return TrialResult{Loss: loss, Status: StatusOK}
}

// Fail wraps an error in a failed TrialResult. The loss is set to NaN so a
// failed trial can never be selected as the best one.
func Fail(err error) TrialResult {
	return TrialResult{Loss: math.NaN(), Status: StatusFailed, Err: err}
}

// Trial pairs the hyperparameter vector that was evaluated with its result.
type Trial struct {
	// Params is the evaluated hyperparameter vector, ordered like the Space
	// the search was started with.
	Params []float64

	// Result is the outcome reported by the objective function.
	Result TrialResult
}

// Objective is the function being optimized. It receives a hyperparameter
// vector drawn from the search Space (same order as the Space's dimensions)
// and returns the trial outcome.
//
// Implementations must be safe for concurrent calls when the search runs
// with Parallelism > 1. Errors are reported through TrialResult.Status
// rather than a separate return value, so the driver can apply its failure
// budget uniformly.
//
// Usage example:
//
//	objective := func(ctx context.Context, params []float64) hypersweep.TrialResult {
//	    acc, err := trainAndScore(ctx, params)
//	    if err != nil {
//	        return hypersweep.Fail(err)
//	    }
//	    return hypersweep.OK(-acc)
//	}
type Objective func(ctx context.Context, params []float64) TrialResult

//////
// Search space.
//////

// DimensionKind identifies how values are drawn from a Dimension.
type DimensionKind int

const (
	// KindUniform draws continuous values uniformly from [Min, Max].
	KindUniform DimensionKind = iota

	// KindIntUniform draws integer values uniformly from [Min, Max],
	// inclusive of both bounds.
	KindIntUniform

	// KindQuantized draws integer values from {Min, Min+Step, ..., Max}.
	KindQuantized
)

// Dimension defines the valid range for one hyperparameter in the search
// space. The zero value is not useful; construct dimensions with Uniform,
// IntUniform, or QuantizedInt.
//
// Usage example:
//
//	space := hypersweep.Space{
//	    hypersweep.IntUniform("max_depth", 5, 15),
//	    hypersweep.Uniform("max_features", 0.0, 1.0),
//	    hypersweep.QuantizedInt("n_estimators", 100, 500, 100),
//	}
type Dimension struct {
	// Name identifies the hyperparameter, used in logs and tracking tags.
	Name string

	// Kind selects the sampling behavior.
	Kind DimensionKind

	// Min and Max are the inclusive bounds of the dimension.
	Min, Max float64

	// Step is the quantization step for KindQuantized dimensions.
	Step float64
}

// Uniform returns a continuous dimension sampled uniformly from [min, max].
func Uniform[T constraints.Float](name string, min, max T) Dimension {
	return Dimension{Name: name, Kind: KindUniform, Min: float64(min), Max: float64(max)}
}

// IntUniform returns an integer dimension sampled uniformly from the
// inclusive range [min, max].
func IntUniform[T constraints.Integer](name string, min, max T) Dimension {
	return Dimension{Name: name, Kind: KindIntUniform, Min: float64(min), Max: float64(max)}
}

// QuantizedInt returns an integer dimension restricted to the values
// {min, min+step, ..., max}.
func QuantizedInt[T constraints.Integer](name string, min, max, step T) Dimension {
	return Dimension{
		Name: name,
		Kind: KindQuantized,
		Min:  float64(min),
		Max:  float64(max),
		Step: float64(step),
	}
}

// Sample draws a random value from the dimension using rng.
func (d Dimension) Sample(rng *rand.Rand) float64 {
	switch d.Kind {
	case KindIntUniform:
		lo, hi := int64(d.Min), int64(d.Max)
		return float64(lo + rng.Int63n(hi-lo+1))
	case KindQuantized:
		steps := int64((d.Max-d.Min)/d.Step) + 1
		return d.Min + float64(rng.Int63n(steps))*d.Step
	default:
		return d.Min + rng.Float64()*(d.Max-d.Min)
	}
}

// Constrain clamps v to the dimension's bounds and snaps it onto the
// dimension's grid for integer and quantized kinds. It is used to project
// model-generated candidates back into the valid range.
func (d Dimension) Constrain(v float64) float64 {
	v = clamp(v, d.Min, d.Max)
	switch d.Kind {
	case KindIntUniform:
		return math.Round(v)
	case KindQuantized:
		return clamp(d.Min+math.Round((v-d.Min)/d.Step)*d.Step, d.Min, d.Max)
	default:
		return v
	}
}

// Space is the ordered set of dimensions the search explores. Parameter
// vectors handed to the Objective use the same ordering.
type Space []Dimension

// Sample draws one random parameter vector from the space.
func (s Space) Sample(rng *rand.Rand) []float64 {
	params := make([]float64, len(s))
	for i, d := range s {
		params[i] = d.Sample(rng)
	}
	return params
}

// Contains reports whether every coordinate of params lies inside its
// dimension's bounds.
func (s Space) Contains(params []float64) bool {
	if len(params) != len(s) {
		return false
	}
	for i, d := range s {
		if params[i] < d.Min || params[i] > d.Max {
			return false
		}
	}
	return true
}

//////
// Suggestion strategies.
//////

// Suggester proposes the next hyperparameter vector to evaluate and learns
// from completed trials. Implementations must be safe for concurrent use:
// with Parallelism > 1 the driver calls Suggest and Observe from multiple
// goroutines, and the suggester owns the serialized trial history.
//
// Built-in suggesters:
//   - TPE: Tree-structured Parzen Estimator (sequential model-based).
//   - RandomSearch: uniform random sampling, no model.
type Suggester interface {
	// Suggest returns the next candidate vector, ordered like space.
	Suggest(space Space) []float64

	// Observe feeds a completed trial back into the suggester. NaN losses
	// are ignored (they carry no ranking information).
	Observe(params []float64, loss float64)
}

//////
// Search configuration.
//////

// ProgressUpdate reports the state of the search after each completed trial.
type ProgressUpdate struct {
	// Trial is the 1-based index of the completed trial.
	Trial int

	// TotalTrials is the evaluation budget for the run.
	TotalTrials int

	// Params is the hyperparameter vector of the completed trial.
	Params []float64

	// Loss is the loss reported by the completed trial.
	Loss float64

	// Status is the completed trial's status.
	Status TrialStatus

	// BestLoss is the lowest loss observed so far.
	BestLoss float64

	// BestParams is the vector associated with BestLoss.
	BestParams []float64
}

// SearchConfig controls the search driver.
//
// Fields:
//   - MaxEvals: total number of trials to run. The driver performs exactly
//     MaxEvals evaluations (absent failures) regardless of Parallelism.
//   - Parallelism: number of trials evaluated concurrently. 1 means fully
//     sequential.
//   - FailureBudget: number of failed trials tolerated before the run is
//     aborted. The demonstrated configuration uses 1: a single failure
//     aborts the encompassing run.
//   - Suggester: the proposal strategy. Defaults to TPE when nil.
//   - Seed: seed for the default suggester.
//   - ProgressChan: optional channel for per-trial updates. Updates are
//     dropped, never blocked on, when the channel is full.
type SearchConfig struct {
	MaxEvals      int
	Parallelism   int
	FailureBudget int
	Suggester     Suggester
	Seed          int64
	ProgressChan  chan<- ProgressUpdate
}

// DefaultConfig returns the demonstrated search configuration: 20 trials,
// two concurrent evaluations, a failure budget of one, and a TPE suggester.
func DefaultConfig() SearchConfig {
	return SearchConfig{
		MaxEvals:      20,
		Parallelism:   2,
		FailureBudget: 1,
		Seed:          123,
	}
}

// Result is the outcome of a completed search.
type Result struct {
	// BestParams is the hyperparameter vector with the minimum observed
	// loss across all successful trials.
	BestParams []float64

	// BestLoss is the loss associated with BestParams.
	BestLoss float64

	// Trials holds every completed trial in completion order.
	Trials []Trial

	// Failures is the number of failed trials.
	Failures int
}
