// Package model provides the estimator interfaces shared by all classifiers
// in the library. This file complements the interfaces in estimator.go.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Estimator is the minimal interface of a trainable model.
type Estimator interface {
	Fitter
	// IsFitted reports whether Fit has completed successfully.
	IsFitted() bool
}

// Classifier combines interfaces for binary classification models.
// Predict returns hard 0/1 labels as an n×1 matrix; PredictProba returns an
// n×2 matrix of class probabilities ordered by Classes().
type Classifier interface {
	Estimator
	Predictor

	// PredictProba returns probability estimates for each class.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []int
}

// WeightedFitter is implemented by models that accept per-sample weights.
type WeightedFitter interface {
	// FitWeighted trains the model with a weight per training sample.
	FitWeighted(X, y mat.Matrix, sampleWeight []float64) error
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}
