// Package imba is a configuration-free AutoML library for imbalanced
// binary classification.
//
// Given a feature matrix, a 0/1 target with the minority class as 1 and a
// target metric, the search evaluates seven model families with
// cross-validation under a Tree-structured Parzen Estimator and returns
// the best configuration refit on the full data:
//
//	im, err := automl.New("f1", automl.WithSeed(42))
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := im.Fit(ctx, X, y)
//	if err != nil {
//		log.Fatal(err)
//	}
//	pred, err := result.BestModel.Predict(X)
//
// The cmd/imba-bench command benchmarks the search on CSV datasets; see
// benchmark.sh for the batch entry point.
package imba
