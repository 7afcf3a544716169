package ensemble

import (
	"github.com/AxiomAlive/imba-automl/core/model"
	"github.com/AxiomAlive/imba-automl/core/parallel"
	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"github.com/AxiomAlive/imba-automl/preprocessing"
	"github.com/AxiomAlive/imba-automl/tree"
	"gonum.org/v1/gonum/mat"
)

// BaseFactory builds a fresh base estimator for one bagging member. The
// seed must drive all per-member randomness so the ensemble is
// reproducible.
type BaseFactory func(seed int64) model.Classifier

// BalancedBagging bags base classifiers where each member is fit on a
// random undersample of the majority class followed by a bootstrap, after
// the imbalanced-learn BalancedBaggingClassifier.
type BalancedBagging struct {
	state *model.StateManager

	// NEstimators is the number of bagging members.
	NEstimators int
	// SamplingRatio is minority/majority after the per-member undersample.
	SamplingRatio float64
	// Bootstrap draws each member's rows with replacement after balancing.
	Bootstrap bool
	// NJobs bounds concurrent member fitting; 0 means GOMAXPROCS.
	NJobs int
	// Seed drives resampling and member seeds.
	Seed int64

	// Base builds one member; nil defaults to an unpruned decision tree.
	Base BaseFactory

	members   []model.Classifier
	nFeatures int
}

// NewBalancedBagging creates a balanced bagging ensemble over the default
// decision-tree base estimator.
func NewBalancedBagging(nEstimators int, seed int64) *BalancedBagging {
	return &BalancedBagging{
		state:         model.NewStateManager(),
		NEstimators:   nEstimators,
		SamplingRatio: 1.0,
		Bootstrap:     true,
		Seed:          seed,
	}
}

// IsFitted reports whether the ensemble has been trained.
func (b *BalancedBagging) IsFitted() bool {
	return b.state.IsFitted()
}

// Classes returns the class labels in probability column order.
func (b *BalancedBagging) Classes() []int {
	return []int{0, 1}
}

// Fit resamples and trains every bagging member concurrently.
func (b *BalancedBagging) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if yRows != rows {
		return scierr.NewDimensionError("BalancedBagging.Fit", rows, yRows, 0)
	}
	if b.NEstimators < 1 {
		return scierr.NewValidationError("NEstimators", "must be at least 1", b.NEstimators)
	}

	base := b.Base
	if base == nil {
		base = func(seed int64) model.Classifier {
			return tree.NewDecisionTree(tree.WithTreeSeed(seed))
		}
	}

	b.nFeatures = cols
	b.members = make([]model.Classifier, b.NEstimators)
	errs := make([]error, b.NEstimators)

	parallel.ForEach(b.NEstimators, b.NJobs, func(i int) {
		memberSeed := b.Seed + int64(i)

		sampler := preprocessing.NewRandomUnderSampler(memberSeed)
		sampler.SamplingRatio = b.SamplingRatio
		tx, ty, err := sampler.FitResample(X, y)
		if err != nil {
			errs[i] = err
			return
		}
		if b.Bootstrap {
			tx, ty = bootstrapSample(tx, ty, memberSeed)
		}

		member := base(memberSeed)
		if err := member.Fit(tx, ty); err != nil {
			errs[i] = err
			return
		}
		b.members[i] = member
	})

	for _, err := range errs {
		if err != nil {
			return scierr.NewModelError("BalancedBagging.Fit", "member training failed", err)
		}
	}

	b.state.SetDimensions(cols, rows)
	b.state.SetFitted()
	return nil
}

// PredictProba averages the member class probabilities.
func (b *BalancedBagging) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !b.state.IsFitted() {
		return nil, scierr.NewNotFittedError("BalancedBagging", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != b.nFeatures {
		return nil, scierr.NewDimensionError("BalancedBagging.PredictProba", b.nFeatures, cols, 1)
	}

	sum := mat.NewDense(rows, 2, nil)
	for _, member := range b.members {
		proba, err := member.PredictProba(X)
		if err != nil {
			return nil, err
		}
		var dense mat.Dense
		dense.CloneFrom(proba)
		sum.Add(sum, &dense)
	}
	sum.Scale(1.0/float64(len(b.members)), sum)
	return sum, nil
}

// Predict returns hard 0/1 labels as an n×1 matrix.
func (b *BalancedBagging) Predict(X mat.Matrix) (mat.Matrix, error) {
	return probaToLabels(b.PredictProba(X))
}
