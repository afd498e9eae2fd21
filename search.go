package hypersweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

//////
// Errors.
//////

// ErrFailureBudget is returned (wrapped) when the number of failed trials
// reaches the configured failure budget and the search is aborted.
var ErrFailureBudget = errors.New("failure budget exhausted")

// ErrNoSuccessfulTrials is returned when the search finished without a
// single successful, scored trial to select a best vector from.
var ErrNoSuccessfulTrials = errors.New("no successful trials")

//////
// Exported functionalities.
//////

// Search runs the hyperparameter search: it repeatedly asks the configured
// Suggester for a candidate vector, evaluates it with the objective
// function, and feeds the loss back into the suggester, until the
// evaluation budget is spent.
//
// Parameters:
//   - ctx: cancels in-flight and pending trials when done.
//   - config: SearchConfig controlling budget, parallelism, and strategy.
//   - objective: the function being minimized.
//   - space: the search space; candidate vectors use its dimension order.
//
// Returns:
//   - Result: best vector, best loss, and the full trial history.
//   - error: non-nil when the run was aborted (failure budget, context
//     cancellation) or produced no successful trial.
//
// Usage example:
//
//	space := hypersweep.Space{
//	    hypersweep.IntUniform("max_depth", 5, 15),
//	    hypersweep.Uniform("max_features", 0.0, 1.0),
//	    hypersweep.QuantizedInt("n_estimators", 100, 500, 100),
//	}
//
//	config := hypersweep.DefaultConfig()
//	config.MaxEvals = 20
//	config.Parallelism = 2
//
//	result, err := hypersweep.Search(ctx, config, objective, space)
//	if err != nil {
//	    return err
//	}
//	best := result.BestParams
//
// How it works:
//  1. Up to Parallelism worker goroutines pull trial slots from a shared
//     budget of MaxEvals evaluations.
//  2. Each worker asks the suggester for the next candidate, evaluates it,
//     and reports the outcome back.
//  3. Successful trials update the suggester's history and the running
//     best; failed trials consume the failure budget.
//  4. When the failure budget is reached the remaining budget is dropped
//     and the search returns an error wrapping ErrFailureBudget.
//
// Important notes:
//   - Exactly MaxEvals evaluations are performed (absent failures and
//     cancellation) regardless of Parallelism.
//   - Trials are independent; the only shared state is the suggester's
//     trial history, which the suggester serializes internally.
//   - NaN losses are recorded in the trial history but never become the
//     best and are never fed to the suggester.
func Search(ctx context.Context, config SearchConfig, objective Objective, space Space) (Result, error) {
	if config.MaxEvals <= 0 {
		return Result{}, fmt.Errorf("search: MaxEvals must be positive, got %d", config.MaxEvals)
	}
	if len(space) == 0 {
		return Result{}, errors.New("search: empty space")
	}
	if config.Parallelism < 1 {
		config.Parallelism = 1
	}
	if config.FailureBudget < 1 {
		config.FailureBudget = 1
	}
	suggester := config.Suggester
	if suggester == nil {
		suggester = NewTPE(config.Seed)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// st collects trial outcomes from the workers.
	st := &searchState{
		bestLoss: math.Inf(1),
		config:   config,
	}

	// Feed exactly MaxEvals trial slots to the workers. Cancellation (from
	// the caller or from an exhausted failure budget) drops whatever budget
	// remains.
	slots := make(chan struct{})
	go func() {
		defer close(slots)
		for i := 0; i < config.MaxEvals; i++ {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < config.Parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range slots {
				params := suggester.Suggest(space)
				res := objective(ctx, params)
				if res.Status == StatusOK && !math.IsNaN(res.Loss) {
					suggester.Observe(params, res.Loss)
				}
				if st.record(params, res) {
					cancel()
				}
			}
		}()
	}
	wg.Wait()

	return st.result(ctx)
}

//////
// Internal state.
//////

// searchState is the driver's shared mutable state. All access goes through
// record and result, which serialize on the mutex.
type searchState struct {
	mu         sync.Mutex
	config     SearchConfig
	trials     []Trial
	failures   int
	bestLoss   float64
	bestParams []float64
	aborted    bool
}

// record stores one completed trial and reports whether the failure budget
// is now exhausted and the search must abort.
func (st *searchState) record(params []float64, res TrialResult) (abort bool) {
	st.mu.Lock()

	st.trials = append(st.trials, Trial{Params: floatsCopy(params), Result: res})

	switch {
	case res.Status == StatusFailed:
		st.failures++
		if st.failures >= st.config.FailureBudget {
			st.aborted = true
			abort = true
		}
	case !math.IsNaN(res.Loss) && res.Loss < st.bestLoss:
		st.bestLoss = res.Loss
		st.bestParams = floatsCopy(params)
	}

	update := ProgressUpdate{
		Trial:       len(st.trials),
		TotalTrials: st.config.MaxEvals,
		Params:      floatsCopy(params),
		Loss:        res.Loss,
		Status:      res.Status,
		BestLoss:    st.bestLoss,
		BestParams:  floatsCopy(st.bestParams),
	}

	st.mu.Unlock()

	if st.config.ProgressChan != nil {
		select {
		case st.config.ProgressChan <- update:
		default:
			// Skip update if channel is full.
		}
	}

	return abort
}

// result assembles the final Result and error once all workers returned.
func (st *searchState) result(ctx context.Context) (Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	res := Result{
		BestParams: st.bestParams,
		BestLoss:   st.bestLoss,
		Trials:     st.trials,
		Failures:   st.failures,
	}

	if st.aborted {
		return res, fmt.Errorf("search aborted after %d failed trial(s): %w", st.failures, ErrFailureBudget)
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("search interrupted: %w", err)
	}
	if st.bestParams == nil {
		return res, ErrNoSuccessfulTrials
	}
	return res, nil
}
