// Package hypersweep provides black-box hyperparameter search for machine
// learning trainers, built around a Tree-structured Parzen Estimator (TPE)
// and a bounded-parallelism trial driver.
//
// # Features
//
// The package includes the following key features:
//
//   - TPE Suggestions: Splits the trial history into good and bad sets at a
//     loss quantile and proposes the candidate with the best density ratio
//   - Random Search: A model-free baseline suggester
//   - Bounded Parallelism: Up to Parallelism trials evaluate concurrently;
//     the suggester serializes the shared trial history
//   - Evaluation Budget: Exactly MaxEvals evaluations are performed, absent
//     failures, regardless of parallelism
//   - Failure Budget: Failed trials are tolerated up to a configurable
//     budget (one in the demonstrated configuration); exceeding it aborts
//     the whole run
//   - Mixed Spaces: Continuous, integer, and quantized-integer dimensions
//   - Progress Monitoring: Per-trial updates via an optional channel
//
// # Quick start
//
//	space := hypersweep.Space{
//	    hypersweep.IntUniform("max_depth", 5, 15),
//	    hypersweep.Uniform("max_features", 0.0, 1.0),
//	    hypersweep.QuantizedInt("n_estimators", 100, 500, 100),
//	}
//
//	objective := func(ctx context.Context, params []float64) hypersweep.TrialResult {
//	    acc, err := trainAndScore(ctx, params)
//	    if err != nil {
//	        return hypersweep.Fail(err)
//	    }
//	    return hypersweep.OK(-acc)
//	}
//
//	result, err := hypersweep.Search(ctx, hypersweep.DefaultConfig(), objective, space)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("best:", result.BestParams)
//
// # Loss convention
//
// The driver minimizes. Objectives that maximize a score (such as
// classification accuracy) report its negation as the loss, so the best
// trial is the one with the lowest loss. A NaN loss means the trial was not
// scored; such trials are recorded but never win and never enter the
// suggester's history.
//
// # Thread safety
//
// Search may run trials concurrently. The only state shared between trials
// is the suggester's history, which the built-in suggesters guard with a
// mutex; objectives must be safe for concurrent calls when Parallelism > 1.
//
// The wider repository wires this package to a Random Forest trainer
// (package trainer), a Parquet-backed flight-delay dataset (package
// dataset), and a SQLite experiment-tracking store (package tracking); see
// cmd/hyperopt for the packaged entry point.
package hypersweep
