// Command hyperopt is the packaged entry point: it runs the hyperparameter
// sweep declared in the MLproject manifest against a flight-delay Parquet
// file, records every trial to the tracking store, and finishes with a
// full-data retraining registered as a production model.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/delaywatch/hypersweep"
	"github.com/delaywatch/hypersweep/forest"
	"github.com/delaywatch/hypersweep/project"
	"github.com/delaywatch/hypersweep/tracking"
	"github.com/delaywatch/hypersweep/trainer"
)

func main() {
	manifestPath := flag.String("project", "MLproject", "path to the project manifest")
	entryPoint := flag.String("entry-point", "hyperopt", "manifest entry point to run")
	algo := flag.String("algo", "", "search algorithm (tpe.suggest or rand.suggest)")
	conf := flag.String("conf", "", "environment descriptor path")
	dataPath := flag.String("data-path", "", "flight-delay Parquet file")
	maxEvals := flag.Int("max-evals", 20, "total trial evaluations")
	parallelism := flag.Int("parallelism", 2, "concurrent trial evaluations")
	testFraction := flag.Float64("test-fraction", 0.2, "validation share per trial")
	dbPath := flag.String("db", "mlruns.db", "tracking database path")
	experiment := flag.String("experiment", "flight-delay", "tracking experiment name")
	backend := flag.String("backend", "exact", "split backend: exact or hist")
	register := flag.String("register", "flight-delay-classifier", "registered model name for the final full-data training")
	seed := flag.Int64("seed", 123, "suggester seed")
	flag.Parse()

	if err := run(*manifestPath, *entryPoint, *algo, *conf, *dataPath, *maxEvals,
		*parallelism, *testFraction, *dbPath, *experiment, *backend, *register, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(manifestPath, entryPoint, algo, conf, dataPath string, maxEvals, parallelism int,
	testFraction float64, dbPath, experiment, backend, register string, seed int64) error {
	ctx := context.Background()

	proj, err := project.Load(manifestPath)
	if err != nil {
		return err
	}
	ep, err := proj.EntryPoint(entryPoint)
	if err != nil {
		return err
	}
	algo = resolve(algo, ep, "algo")
	conf = resolve(conf, ep, "conf")
	dataPath = resolve(dataPath, ep, "data-path")
	if dataPath == "" {
		return fmt.Errorf("no data path: pass --data-path or declare a default in %s", manifestPath)
	}

	suggester, err := newSuggester(algo, seed)
	if err != nil {
		return err
	}
	splitter, err := newSplitter(backend)
	if err != nil {
		return err
	}

	store, err := tracking.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	tr := trainer.New(trainer.Config{
		DataPath:     dataPath,
		TestFraction: testFraction,
		Splitter:     splitter,
		Experiment:   experiment,
	}, store)

	config := hypersweep.SearchConfig{
		MaxEvals:      maxEvals,
		Parallelism:   parallelism,
		FailureBudget: 1,
		Suggester:     suggester,
		Seed:          seed,
	}

	progress := make(chan hypersweep.ProgressUpdate, maxEvals)
	config.ProgressChan = progress
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			log.Printf("[SWEEP] trial %d/%d params=%v loss=%.4f status=%s best=%.4f",
				u.Trial, u.TotalTrials, u.Params, u.Loss, u.Status, u.BestLoss)
		}
	}()

	log.Printf("[SWEEP] project=%s algo=%s backend=%s conf=%s data=%s evals=%d parallelism=%d",
		proj.Name, algo, backend, conf, dataPath, maxEvals, parallelism)

	result, err := hypersweep.Search(ctx, config, tr.Objective(), trainer.SearchSpace())
	close(progress)
	<-done
	if err != nil {
		return err
	}

	best, err := trainer.ParamsFromVector(result.BestParams)
	if err != nil {
		return err
	}
	log.Printf("[SWEEP] best loss=%.4f max_depth=%d max_features=%.4f n_estimators=%d",
		result.BestLoss, best.MaxDepth, best.MaxFeatures, best.NEstimators)

	summary, err := store.StartRun(experiment, "sweep-summary", map[string]string{
		"algo":        algo,
		"conf":        conf,
		"best_params": fmt.Sprintf("%v", result.BestParams),
		"best_loss":   fmt.Sprintf("%.6f", result.BestLoss),
	})
	if err != nil {
		return err
	}
	if err := summary.End(tracking.RunStatusFinished); err != nil {
		return err
	}

	// Full-data retraining of the winner: no split, unscored, registered
	// for production.
	if _, err := tr.Evaluate(ctx, best, 0, register); err != nil {
		return fmt.Errorf("final training: %w", err)
	}
	log.Printf("[SWEEP] registered %s from full-data retraining", register)

	return nil
}

func resolve(value string, ep project.EntryPoint, param string) string {
	if value != "" {
		return value
	}
	if def, ok := ep.DefaultFor(param); ok {
		return def
	}
	return ""
}

func newSuggester(algo string, seed int64) (hypersweep.Suggester, error) {
	switch algo {
	case "tpe.suggest", "tpe", "":
		return hypersweep.NewTPE(seed), nil
	case "rand.suggest", "rand":
		return hypersweep.NewRandomSearch(seed), nil
	default:
		return nil, fmt.Errorf("unknown search algorithm %q", algo)
	}
}

func newSplitter(backend string) (forest.Splitter, error) {
	switch backend {
	case "exact", "":
		return forest.ExactSplitter{}, nil
	case "hist":
		return forest.NewHistSplitter(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
