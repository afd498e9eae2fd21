package tracking

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobModel is a minimal artifact payload for store tests.
type blobModel []byte

func (b blobModel) MarshalBinary() ([]byte, error) { return b, nil }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)

	run, err := store.StartRun("flight-delay", "rf-d8-f1.00-n100", map[string]string{
		"max_depth": "8",
	})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	require.NoError(t, run.LogMetric("accuracy", 0.87))
	require.NoError(t, run.SetTag("backend", "exact"))
	require.NoError(t, run.End(RunStatusFinished))

	runs, err := store.ListRuns("flight-delay")
	require.NoError(t, err)
	require.Len(t, runs, 1)

	info := runs[0]
	assert.Equal(t, run.ID, info.RunID)
	assert.Equal(t, RunStatusFinished, info.Status)
	assert.NotNil(t, info.EndTime)
	assert.Equal(t, "8", info.Tags["max_depth"])
	assert.Equal(t, "exact", info.Tags["backend"])

	value, found, err := store.GetMetric(run.ID, "accuracy")
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 0.87, value, 1e-9)
}

func TestLogMetricSkipsNaN(t *testing.T) {
	store := openTestStore(t)

	run, err := store.StartRun("flight-delay", "full-data", nil)
	require.NoError(t, err)

	// An undefined accuracy (no validation split) must not error and must
	// not leave a row behind.
	require.NoError(t, run.LogMetric("accuracy", math.NaN()))

	_, found, err := store.GetMetric(run.ID, "accuracy")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetTagOverwrites(t *testing.T) {
	store := openTestStore(t)

	run, err := store.StartRun("flight-delay", "run", nil)
	require.NoError(t, err)

	require.NoError(t, run.SetTag("best_params", "[8 0.5 300]"))
	require.NoError(t, run.SetTag("best_params", "[9 0.7 200]"))

	runs, err := store.ListRuns("flight-delay")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "[9 0.7 200]", runs[0].Tags["best_params"])
}

func TestLogModelArtifact(t *testing.T) {
	store := openTestStore(t)

	run, err := store.StartRun("flight-delay", "run", nil)
	require.NoError(t, err)

	payload := blobModel("fitted-forest-bytes")
	require.NoError(t, run.LogModel("model", payload))

	data, err := store.GetArtifact(run.ID, "model")
	require.NoError(t, err)
	assert.Equal(t, []byte(payload), data)
}

func TestConcurrentRuns(t *testing.T) {
	store := openTestStore(t)

	// Parallel trials share one store handle; every writer must see the
	// same database and none may fail with a lock error.
	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			run, err := store.StartRun("flight-delay", fmt.Sprintf("trial-%d", w), map[string]string{
				"worker": fmt.Sprintf("%d", w),
			})
			if err != nil {
				errs[w] = err
				return
			}
			if err := run.LogMetric("accuracy", float64(w)/writers); err != nil {
				errs[w] = err
				return
			}
			errs[w] = run.End(RunStatusFinished)
		}(w)
	}
	wg.Wait()

	for w, err := range errs {
		require.NoErrorf(t, err, "writer %d", w)
	}

	runs, err := store.ListRuns("flight-delay")
	require.NoError(t, err)
	assert.Len(t, runs, writers)
	for _, info := range runs {
		assert.Equal(t, RunStatusFinished, info.Status)
	}
}

func TestRegisterModelVersions(t *testing.T) {
	store := openTestStore(t)

	runA, err := store.StartRun("flight-delay", "a", nil)
	require.NoError(t, err)
	runB, err := store.StartRun("flight-delay", "b", nil)
	require.NoError(t, err)

	v1, err := store.RegisterModel("flight-delay-classifier", runA.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)

	v2, err := store.RegisterModel("flight-delay-classifier", runB.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, runB.ID, v2.RunID)

	// A different name starts its own version sequence.
	other, err := store.RegisterModel("canary", runA.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, other.Version)
}
