// Package ensemble provides the tree ensembles used by the search: bagged
// forests, their class-balanced variants, cost-sensitive boosting and
// gradient boosting with depth-wise or leaf-wise growth.
package ensemble

import (
	"math"

	"github.com/AxiomAlive/imba-automl/core/model"
	"github.com/AxiomAlive/imba-automl/core/parallel"
	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"github.com/AxiomAlive/imba-automl/preprocessing"
	"github.com/AxiomAlive/imba-automl/tree"
	"gonum.org/v1/gonum/mat"
)

// ForestConfig holds the options shared by the bagged forest variants.
type ForestConfig struct {
	// NEstimators is the number of trees.
	NEstimators int
	// MaxDepth limits each tree; 0 means unlimited.
	MaxDepth int
	// MinSamplesLeaf is the minimum samples per tree leaf.
	MinSamplesLeaf int
	// MaxFeatures is the features-per-split count; 0 means sqrt(n_features).
	MaxFeatures int
	// Bootstrap draws each tree's sample with replacement.
	Bootstrap bool
	// NJobs bounds concurrent tree fitting; 0 means GOMAXPROCS.
	NJobs int
	// Seed drives bootstrap sampling and per-tree randomness.
	Seed int64
}

// DefaultForestConfig mirrors the usual forest defaults.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NEstimators:    100,
		MinSamplesLeaf: 1,
		Bootstrap:      true,
	}
}

// RandomForest is a bootstrap-aggregated ensemble of gini decision trees.
type RandomForest struct {
	state  *model.StateManager
	config ForestConfig

	// randomThresholds switches the base trees to Extra-Trees cut points.
	randomThresholds bool
	// balanced undersamples the majority class per tree before fitting.
	balanced bool

	trees     []*tree.DecisionTree
	nFeatures int
}

// NewRandomForest creates a forest with the given config.
func NewRandomForest(config ForestConfig) *RandomForest {
	return &RandomForest{state: model.NewStateManager(), config: config}
}

// NewExtraTrees creates an Extremely Randomized Trees classifier: random
// split thresholds and, by default, no bootstrap.
func NewExtraTrees(config ForestConfig) *RandomForest {
	return &RandomForest{
		state:            model.NewStateManager(),
		config:           config,
		randomThresholds: true,
	}
}

// NewBalancedRandomForest creates a forest where every tree is fit on a
// random undersample of the majority class, following the
// imbalanced-learn BalancedRandomForestClassifier.
func NewBalancedRandomForest(config ForestConfig) *RandomForest {
	return &RandomForest{
		state:    model.NewStateManager(),
		config:   config,
		balanced: true,
	}
}

// IsFitted reports whether the forest has been trained.
func (f *RandomForest) IsFitted() bool {
	return f.state.IsFitted()
}

// Classes returns the class labels in probability column order.
func (f *RandomForest) Classes() []int {
	return []int{0, 1}
}

// Fit trains NEstimators trees concurrently.
func (f *RandomForest) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if yRows != rows {
		return scierr.NewDimensionError("RandomForest.Fit", rows, yRows, 0)
	}
	if f.config.NEstimators < 1 {
		return scierr.NewValidationError("NEstimators", "must be at least 1", f.config.NEstimators)
	}

	maxFeatures := f.config.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(cols)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	f.nFeatures = cols
	f.trees = make([]*tree.DecisionTree, f.config.NEstimators)
	errs := make([]error, f.config.NEstimators)

	parallel.ForEach(f.config.NEstimators, f.config.NJobs, func(i int) {
		treeSeed := f.config.Seed + int64(i)

		tx, ty := X, y
		if f.balanced {
			sampler := preprocessing.NewRandomUnderSampler(treeSeed)
			var err error
			tx, ty, err = sampler.FitResample(X, y)
			if err != nil {
				errs[i] = err
				return
			}
		}
		if f.config.Bootstrap {
			tx, ty = bootstrapSample(tx, ty, treeSeed)
		}

		dt := tree.NewDecisionTree(
			tree.WithMaxDepth(f.config.MaxDepth),
			tree.WithMinSamplesLeaf(f.config.MinSamplesLeaf),
			tree.WithMaxFeatures(maxFeatures),
			tree.WithRandomThresholds(f.randomThresholds),
			tree.WithTreeSeed(treeSeed),
		)
		if err := dt.Fit(tx, ty); err != nil {
			errs[i] = err
			return
		}
		f.trees[i] = dt
	})

	for _, err := range errs {
		if err != nil {
			return scierr.NewModelError("RandomForest.Fit", "tree training failed", err)
		}
	}

	f.state.SetDimensions(cols, rows)
	f.state.SetFitted()
	return nil
}

// PredictProba averages the per-tree class probabilities.
func (f *RandomForest) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !f.state.IsFitted() {
		return nil, scierr.NewNotFittedError("RandomForest", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != f.nFeatures {
		return nil, scierr.NewDimensionError("RandomForest.PredictProba", f.nFeatures, cols, 1)
	}

	sum := mat.NewDense(rows, 2, nil)
	for _, dt := range f.trees {
		proba, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, proba.(*mat.Dense))
	}
	sum.Scale(1.0/float64(len(f.trees)), sum)
	return sum, nil
}

// Predict returns hard 0/1 labels as an n×1 matrix.
func (f *RandomForest) Predict(X mat.Matrix) (mat.Matrix, error) {
	return probaToLabels(f.PredictProba(X))
}

// bootstrapSample draws rows with replacement, same size as the input.
func bootstrapSample(X, y mat.Matrix, seed int64) (mat.Matrix, mat.Matrix) {
	rows, _ := X.Dims()
	rng := newRNG(seed)
	indices := make([]int, rows)
	for i := range indices {
		indices[i] = rng.IntN(rows)
	}
	rx, ry := preprocessing.TakeRows(X, y, indices)
	return rx, ry
}

// probaToLabels thresholds the positive-class column at 0.5.
func probaToLabels(proba mat.Matrix, err error) (mat.Matrix, error) {
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		if proba.At(i, 1) > 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}
