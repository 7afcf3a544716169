package ensemble

import (
	"math"

	"github.com/AxiomAlive/imba-automl/core/model"
	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"github.com/AxiomAlive/imba-automl/tree"
	"gonum.org/v1/gonum/mat"
)

// AdaCost is cost-sensitive AdaBoost: the weight update is scaled by a
// cost-adjustment term so that misclassifying an expensive (minority)
// sample raises its weight faster than a cheap one.
type AdaCost struct {
	state *model.StateManager

	// NEstimators is the maximum number of boosting rounds.
	NEstimators int
	// LearningRate shrinks every stage weight.
	LearningRate float64
	// MaxDepth is the depth of each weak learner; the default 1 gives
	// decision stumps.
	MaxDepth int
	// CostPositive is the misclassification cost of the positive class,
	// in (0, 1]. The default 1.0 makes false negatives maximally costly.
	CostPositive float64
	// CostNegative is the misclassification cost of the negative class.
	// When 0 it is set from the class ratio n_pos/n_neg at fit time.
	CostNegative float64
	// Seed drives the weak learners.
	Seed int64

	stages    []*tree.DecisionTree
	alphas    []float64
	nFeatures int
}

// NewAdaCost creates an AdaCost classifier over decision stumps.
func NewAdaCost(nEstimators int, learningRate float64, seed int64) *AdaCost {
	return &AdaCost{
		state:        model.NewStateManager(),
		NEstimators:  nEstimators,
		LearningRate: learningRate,
		MaxDepth:     1,
		CostPositive: 1.0,
		Seed:         seed,
	}
}

// IsFitted reports whether the model has been trained.
func (a *AdaCost) IsFitted() bool {
	return a.state.IsFitted()
}

// Classes returns the class labels in probability column order.
func (a *AdaCost) Classes() []int {
	return []int{0, 1}
}

// Fit runs the boosting rounds. Boosting stops early when a stage reaches
// zero weighted error or degrades past random guessing.
func (a *AdaCost) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if yRows != rows {
		return scierr.NewDimensionError("AdaCost.Fit", rows, yRows, 0)
	}
	if a.NEstimators < 1 {
		return scierr.NewValidationError("NEstimators", "must be at least 1", a.NEstimators)
	}
	if a.LearningRate <= 0 {
		return scierr.NewValidationError("LearningRate", "must be positive", a.LearningRate)
	}

	labels := make([]float64, rows)
	var nPos, nNeg int
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return scierr.NewModelError("AdaCost.Fit", "non-binary target", scierr.ErrNotBinary)
		}
		labels[i] = v
		if v == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return scierr.NewModelError("AdaCost.Fit", "single-class target", scierr.ErrNotBinary)
	}

	costNeg := a.CostNegative
	if costNeg <= 0 {
		costNeg = float64(nPos) / float64(nNeg)
		if costNeg > 1 {
			costNeg = 1
		}
	}

	weights := make([]float64, rows)
	for i := range weights {
		weights[i] = 1.0 / float64(rows)
	}

	a.nFeatures = cols
	a.stages = a.stages[:0]
	a.alphas = a.alphas[:0]

	for m := 0; m < a.NEstimators; m++ {
		weak := tree.NewDecisionTree(
			tree.WithMaxDepth(a.MaxDepth),
			tree.WithTreeSeed(a.Seed+int64(m)),
		)
		if err := weak.FitWeighted(X, y, weights); err != nil {
			return scierr.NewModelError("AdaCost.Fit", "weak learner training failed", err)
		}

		pred, err := weak.Predict(X)
		if err != nil {
			return scierr.NewModelError("AdaCost.Fit", "weak learner prediction failed", err)
		}

		var stageErr float64
		for i := 0; i < rows; i++ {
			if pred.At(i, 0) != labels[i] {
				stageErr += weights[i]
			}
		}

		if stageErr >= 0.5 {
			// Worse than chance: drop the stage and stop boosting.
			if len(a.stages) == 0 {
				a.stages = append(a.stages, weak)
				a.alphas = append(a.alphas, 1.0)
			}
			break
		}

		if stageErr <= 0 {
			a.stages = append(a.stages, weak)
			a.alphas = append(a.alphas, 1.0)
			break
		}

		alpha := a.LearningRate * 0.5 * math.Log((1-stageErr)/stageErr)
		a.stages = append(a.stages, weak)
		a.alphas = append(a.alphas, alpha)

		// Cost-adjusted reweighting: beta is higher for misclassified
		// samples and grows with the sample's class cost.
		var total float64
		for i := 0; i < rows; i++ {
			cost := costNeg
			if labels[i] == 1 {
				cost = a.CostPositive
			}
			if pred.At(i, 0) != labels[i] {
				weights[i] *= math.Exp(alpha * (0.5 + 0.5*cost))
			} else {
				weights[i] *= math.Exp(-alpha * (0.5 - 0.5*cost))
			}
			total += weights[i]
		}
		if total <= 0 {
			return scierr.NewNumericalInstabilityError("AdaCost.Fit", []float64{total}, m)
		}
		for i := range weights {
			weights[i] /= total
		}
	}

	a.state.SetDimensions(cols, rows)
	a.state.SetFitted()
	return nil
}

// PredictProba returns the normalized weighted vote share per class.
func (a *AdaCost) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !a.state.IsFitted() {
		return nil, scierr.NewNotFittedError("AdaCost", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != a.nFeatures {
		return nil, scierr.NewDimensionError("AdaCost.PredictProba", a.nFeatures, cols, 1)
	}

	votes := make([]float64, rows)
	var alphaSum float64
	for m, stage := range a.stages {
		pred, err := stage.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < rows; i++ {
			votes[i] += a.alphas[m] * pred.At(i, 0)
		}
		alphaSum += a.alphas[m]
	}

	out := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		p := votes[i] / alphaSum
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Predict returns hard 0/1 labels as an n×1 matrix.
func (a *AdaCost) Predict(X mat.Matrix) (mat.Matrix, error) {
	return probaToLabels(a.PredictProba(X))
}
