package modelselection

import (
	"context"
	"sync"

	"github.com/AxiomAlive/imba-automl/core/model"
	"github.com/AxiomAlive/imba-automl/metrics"
	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"github.com/AxiomAlive/imba-automl/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// EstimatorFactory builds a fresh, unfitted classifier for one fold.
// Folds train concurrently, so the factory must not share mutable state
// between the instances it returns.
type EstimatorFactory func() model.Classifier

// CrossValScore fits one classifier per fold and scores it on the held-out
// part. Any fold error aborts the whole evaluation and is returned; a
// candidate that fails on one fold must not contribute a partial score.
func CrossValScore(ctx context.Context, factory EstimatorFactory, X, y mat.Matrix, splitter Splitter, scorer metrics.Scorer) ([]float64, error) {
	folds := splitter.Split(X, y)
	scores := make([]float64, len(folds))
	errs := make([]error, len(folds))

	var wg sync.WaitGroup
	for f, fold := range folds {
		wg.Add(1)
		go func(f int, fold Fold) {
			defer wg.Done()
			defer scierr.Recover(&errs[f], "CrossValScore")

			if err := ctx.Err(); err != nil {
				errs[f] = err
				return
			}
			scores[f], errs[f] = scoreFold(factory, X, y, fold, scorer)
		}(f, fold)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return scores, nil
}

// scoreFold trains on the fold's train split and scores the test split.
func scoreFold(factory EstimatorFactory, X, y mat.Matrix, fold Fold, scorer metrics.Scorer) (float64, error) {
	trainX, trainY := preprocessing.TakeRows(X, y, fold.TrainIndices)
	testX, testY := preprocessing.TakeRows(X, y, fold.TestIndices)

	clf := factory()
	if err := clf.Fit(trainX, trainY); err != nil {
		return 0, err
	}

	nTest := len(fold.TestIndices)
	yTrue := mat.NewVecDense(nTest, nil)
	for i := 0; i < nTest; i++ {
		yTrue.SetVec(i, testY.At(i, 0))
	}

	yScore := mat.NewVecDense(nTest, nil)
	if scorer.NeedsProba {
		proba, err := clf.PredictProba(testX)
		if err != nil {
			return 0, err
		}
		for i := 0; i < nTest; i++ {
			yScore.SetVec(i, proba.At(i, 1))
		}
	} else {
		pred, err := clf.Predict(testX)
		if err != nil {
			return 0, err
		}
		for i := 0; i < nTest; i++ {
			yScore.SetVec(i, pred.At(i, 0))
		}
	}

	return scorer.Score(yTrue, yScore)
}

// MeanScore averages fold scores.
func MeanScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
