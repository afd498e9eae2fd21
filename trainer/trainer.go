// Package trainer evaluates one Random Forest configuration end to end:
// load the flight-delay dataset, split, fit, score, and record the run in
// the tracking store. It is the objective function the search driver
// iterates.
package trainer

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/delaywatch/hypersweep"
	"github.com/delaywatch/hypersweep/dataset"
	"github.com/delaywatch/hypersweep/forest"
	"github.com/delaywatch/hypersweep/tracking"
)

// SplitSeed is the fixed seed of the train/validation split, so every trial
// scores against the same validation rows.
const SplitSeed = 123

// Params is the hyperparameter tuple a trial evaluates, in search-space
// order: tree depth, feature subsampling fraction, ensemble size.
type Params struct {
	MaxDepth    int
	MaxFeatures float64
	NEstimators int
}

// SearchSpace returns the demonstration search space: integer max_depth in
// [5,15], continuous max_features in [0,1], and n_estimators in
// {100,200,...,500}.
func SearchSpace() hypersweep.Space {
	return hypersweep.Space{
		hypersweep.IntUniform("max_depth", 5, 15),
		hypersweep.Uniform("max_features", 0.0, 1.0),
		hypersweep.QuantizedInt("n_estimators", 100, 500, 100),
	}
}

// ParamsFromVector decodes a search-space vector into Params.
func ParamsFromVector(v []float64) (Params, error) {
	if len(v) != 3 {
		return Params{}, fmt.Errorf("trainer: want 3 hyperparameters, got %d", len(v))
	}
	return Params{
		MaxDepth:    int(v[0]),
		MaxFeatures: v[1],
		NEstimators: int(v[2]),
	}, nil
}

// Vector encodes the params back into search-space order.
func (p Params) Vector() []float64 {
	return []float64{float64(p.MaxDepth), p.MaxFeatures, float64(p.NEstimators)}
}

// Config wires a Trainer.
type Config struct {
	// DataPath is the Parquet file loaded for each evaluation.
	DataPath string

	// TestFraction is the validation share used by Objective trials.
	TestFraction float64

	// Splitter selects the compute backend: forest.ExactSplitter{} or
	// forest.NewHistSplitter().
	Splitter forest.Splitter

	// Experiment names the tracking experiment runs are filed under.
	Experiment string
}

// Trainer runs single evaluations against a tracking store.
type Trainer struct {
	cfg   Config
	store *tracking.Store

	// data, when set, is a preloaded immutable dataset shared by all
	// trials instead of reloading the file on every call.
	data *dataset.Dataset
}

// Option is a functional config for Trainer.
type Option func(*Trainer)

// WithDataset makes the trainer reuse a preloaded dataset handle across
// evaluations instead of re-reading the Parquet file per trial.
func WithDataset(ds *dataset.Dataset) Option {
	return func(t *Trainer) { t.data = ds }
}

// New returns a Trainer recording to store.
func New(cfg Config, store *tracking.Store, opts ...Option) *Trainer {
	t := &Trainer{cfg: cfg, store: store}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Evaluate performs one full evaluation of params.
//
// It loads the dataset (fresh per call unless preloaded), splits it with
// the fixed seed and the given testFraction, fits a Random Forest with the
// configured backend, scores validation accuracy, and records the run:
// the fitted model artifact, the accuracy metric, and descriptive tags.
// When registerAs is non-empty the model is also registered under that
// name.
//
// With testFraction == 0 no split occurs, accuracy is undefined (NaN), and
// the returned loss is NaN; this is the final full-data training path, not
// an error.
//
// The returned loss is the negative accuracy, so a downstream minimizer
// maximizes accuracy. Load and fit errors are not recovered here: the run
// is marked FAILED and the error propagates for the driver's failure
// budget.
func (t *Trainer) Evaluate(ctx context.Context, p Params, testFraction float64, registerAs string) (hypersweep.TrialResult, error) {
	if err := ctx.Err(); err != nil {
		return hypersweep.Fail(err), err
	}

	ds := t.data
	if ds == nil {
		var err error
		if ds, err = dataset.Load(t.cfg.DataPath); err != nil {
			return hypersweep.Fail(err), err
		}
	}

	run, err := t.store.StartRun(t.cfg.Experiment, runName(p), map[string]string{
		"max_depth":     fmt.Sprintf("%d", p.MaxDepth),
		"max_features":  fmt.Sprintf("%.4f", p.MaxFeatures),
		"n_estimators":  fmt.Sprintf("%d", p.NEstimators),
		"test_fraction": fmt.Sprintf("%.2f", testFraction),
		"backend":       backendName(t.cfg.Splitter),
	})
	if err != nil {
		return hypersweep.Fail(err), err
	}

	// Any error below leaves the run FAILED rather than stuck RUNNING.
	finished := false
	defer func() {
		if finished {
			return
		}
		if endErr := run.End(tracking.RunStatusFailed); endErr != nil {
			log.Printf("[TRAIN] end failed run %s: %v", run.ID, endErr)
		}
	}()

	train, test := ds.Split(testFraction, SplitSeed)

	clf := forest.New(
		forest.WithNEstimators(p.NEstimators),
		forest.WithMaxDepth(p.MaxDepth),
		forest.WithMaxFeatures(p.MaxFeatures),
		forest.WithSeed(SplitSeed),
		forest.WithSplitter(t.cfg.Splitter),
	)
	if err := clf.Fit(train.X, train.Y); err != nil {
		return hypersweep.Fail(err), err
	}

	accuracy := math.NaN()
	if test.Len() > 0 {
		accuracy = forest.Accuracy(test.Y, clf.Predict(test.X))
	}

	if err := run.LogMetric("accuracy", accuracy); err != nil {
		return hypersweep.Fail(err), err
	}
	if err := run.LogModel("model", clf); err != nil {
		return hypersweep.Fail(err), err
	}
	if registerAs != "" {
		if _, err := t.store.RegisterModel(registerAs, run.ID); err != nil {
			return hypersweep.Fail(err), err
		}
	}
	if err := run.End(tracking.RunStatusFinished); err != nil {
		return hypersweep.Fail(err), err
	}
	finished = true

	return hypersweep.OK(-accuracy), nil
}

// Objective adapts the trainer to the search driver: decode the vector,
// evaluate with the configured test fraction, and convert errors into
// failed trials for the driver's failure budget.
func (t *Trainer) Objective() hypersweep.Objective {
	return func(ctx context.Context, params []float64) hypersweep.TrialResult {
		p, err := ParamsFromVector(params)
		if err != nil {
			return hypersweep.Fail(err)
		}
		res, err := t.Evaluate(ctx, p, t.cfg.TestFraction, "")
		if err != nil {
			log.Printf("[TRAIN] trial %s failed: %v", runName(p), err)
		}
		return res
	}
}

func runName(p Params) string {
	return fmt.Sprintf("rf-d%d-f%.2f-n%d", p.MaxDepth, p.MaxFeatures, p.NEstimators)
}

func backendName(sp forest.Splitter) string {
	switch sp.(type) {
	case forest.HistSplitter:
		return "hist"
	default:
		return "exact"
	}
}
