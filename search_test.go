package hypersweep

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpace() Space {
	return Space{
		IntUniform("max_depth", 5, 15),
		Uniform("max_features", 0.0, 1.0),
		QuantizedInt("n_estimators", 100, 500, 100),
	}
}

// quadratic is a deterministic objective minimized at max_features = 0.3.
func quadratic(_ context.Context, params []float64) TrialResult {
	d := params[1] - 0.3
	return OK(d * d)
}

func TestSearchBudgetWithParallelism(t *testing.T) {
	var evals int32
	objective := func(ctx context.Context, params []float64) TrialResult {
		atomic.AddInt32(&evals, 1)
		return quadratic(ctx, params)
	}

	config := DefaultConfig()
	config.MaxEvals = 20
	config.Parallelism = 2
	config.Suggester = NewRandomSearch(1)

	result, err := Search(context.Background(), config, objective, testSpace())
	require.NoError(t, err)

	// Exactly MaxEvals trials, not MaxEvals per worker.
	assert.Equal(t, int32(20), atomic.LoadInt32(&evals))
	assert.Len(t, result.Trials, 20)
}

func TestSearchBestIsMinimumObservedLoss(t *testing.T) {
	config := DefaultConfig()
	config.MaxEvals = 30
	config.Parallelism = 3

	result, err := Search(context.Background(), config, quadratic, testSpace())
	require.NoError(t, err)
	require.NotNil(t, result.BestParams)

	for _, trial := range result.Trials {
		assert.LessOrEqual(t, result.BestLoss, trial.Result.Loss)
	}
	assert.True(t, testSpace().Contains(result.BestParams))
}

func TestSearchSequentialMatchesBudget(t *testing.T) {
	var evals int32
	objective := func(ctx context.Context, params []float64) TrialResult {
		atomic.AddInt32(&evals, 1)
		return quadratic(ctx, params)
	}

	config := DefaultConfig()
	config.MaxEvals = 7
	config.Parallelism = 1

	_, err := Search(context.Background(), config, objective, testSpace())
	require.NoError(t, err)
	assert.Equal(t, int32(7), atomic.LoadInt32(&evals))
}

func TestSearchSingleFailureAbortsRun(t *testing.T) {
	boom := errors.New("fit blew up")
	objective := func(context.Context, []float64) TrialResult {
		return Fail(boom)
	}

	config := DefaultConfig()
	config.MaxEvals = 20
	config.Parallelism = 2

	result, err := Search(context.Background(), config, objective, testSpace())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailureBudget)
	assert.GreaterOrEqual(t, result.Failures, 1)
	// The remaining budget is dropped, not evaluated.
	assert.Less(t, len(result.Trials), 20)
}

func TestSearchFailureBudgetTolerates(t *testing.T) {
	var calls int32
	objective := func(ctx context.Context, params []float64) TrialResult {
		if atomic.AddInt32(&calls, 1) == 1 {
			return Fail(errors.New("flaky"))
		}
		return quadratic(ctx, params)
	}

	config := DefaultConfig()
	config.MaxEvals = 10
	config.Parallelism = 1
	config.FailureBudget = 3

	result, err := Search(context.Background(), config, objective, testSpace())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failures)
	assert.Len(t, result.Trials, 10)
}

func TestSearchAllNaNLossesIsAnError(t *testing.T) {
	objective := func(context.Context, []float64) TrialResult {
		return OK(math.NaN())
	}

	config := DefaultConfig()
	config.MaxEvals = 5
	config.Parallelism = 1

	_, err := Search(context.Background(), config, objective, testSpace())
	assert.ErrorIs(t, err, ErrNoSuccessfulTrials)
}

func TestSearchProgressChannel(t *testing.T) {
	config := DefaultConfig()
	config.MaxEvals = 8
	config.Parallelism = 2

	progressChan := make(chan ProgressUpdate, config.MaxEvals)
	config.ProgressChan = progressChan

	var counter int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressChan {
			if update.Trial > 0 {
				atomic.AddInt32(&counter, 1)
			}
		}
	}()

	result, err := Search(context.Background(), config, quadratic, testSpace())
	close(progressChan)
	<-done

	require.NoError(t, err)
	assert.Equal(t, int32(len(result.Trials)), atomic.LoadInt32(&counter))
}

func TestSearchContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := DefaultConfig()
	config.MaxEvals = 50
	config.Parallelism = 2

	_, err := Search(ctx, config, quadratic, testSpace())
	assert.Error(t, err)
}

func TestSearchRejectsBadConfig(t *testing.T) {
	_, err := Search(context.Background(), SearchConfig{MaxEvals: 0}, quadratic, testSpace())
	assert.Error(t, err)

	_, err = Search(context.Background(), SearchConfig{MaxEvals: 5}, quadratic, Space{})
	assert.Error(t, err)
}
