package modelselection

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/AxiomAlive/imba-automl/core/model"
	"github.com/AxiomAlive/imba-automl/metrics"
	"github.com/AxiomAlive/imba-automl/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// separated builds two clearly separated clusters with a 3:1 class ratio.
func separated(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	nPos := n / 4
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n-nPos; i++ {
		X.Set(i, 0, rng.NormFloat64()*0.3)
		X.Set(i, 1, rng.NormFloat64()*0.3)
	}
	for i := n - nPos; i < n; i++ {
		X.Set(i, 0, 4+rng.NormFloat64()*0.3)
		X.Set(i, 1, 4+rng.NormFloat64()*0.3)
		y.Set(i, 0, 1)
	}
	return X, y
}

func TestCrossValScoreSeparable(t *testing.T) {
	X, y := separated(64, 1)

	scorer, err := metrics.ScorerByName("f1")
	require.NoError(t, err)

	factory := func() model.Classifier {
		return tree.NewDecisionTree(tree.WithTreeSeed(42))
	}

	scores, err := CrossValScore(context.Background(), factory, X, y, NewStratifiedKFold(4, true, 42), scorer)
	require.NoError(t, err)
	require.Len(t, scores, 4)
	for f, s := range scores {
		assert.GreaterOrEqual(t, s, 0.9, "fold %d f1 too low", f)
	}
}

func TestCrossValScoreNeedsProba(t *testing.T) {
	X, y := separated(64, 2)

	scorer, err := metrics.ScorerByName("average_precision")
	require.NoError(t, err)

	factory := func() model.Classifier {
		return tree.NewDecisionTree(tree.WithTreeSeed(7))
	}

	scores, err := CrossValScore(context.Background(), factory, X, y, NewStratifiedKFold(4, true, 7), scorer)
	require.NoError(t, err)
	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

// failingClassifier always fails to fit.
type failingClassifier struct{}

func (f *failingClassifier) Fit(X, y mat.Matrix) error { return assert.AnError }
func (f *failingClassifier) IsFitted() bool            { return false }
func (f *failingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	return nil, assert.AnError
}
func (f *failingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return nil, assert.AnError
}
func (f *failingClassifier) Classes() []int { return []int{0, 1} }

func TestCrossValScoreFoldErrorAborts(t *testing.T) {
	X, y := separated(32, 3)

	scorer, err := metrics.ScorerByName("f1")
	require.NoError(t, err)

	factory := func() model.Classifier { return &failingClassifier{} }

	scores, err := CrossValScore(context.Background(), factory, X, y, NewStratifiedKFold(4, true, 1), scorer)
	assert.Error(t, err)
	assert.Nil(t, scores)
}

func TestCrossValScoreCancelledContext(t *testing.T) {
	X, y := separated(32, 4)

	scorer, err := metrics.ScorerByName("f1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	factory := func() model.Classifier {
		return tree.NewDecisionTree()
	}

	_, err = CrossValScore(ctx, factory, X, y, NewStratifiedKFold(4, true, 1), scorer)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeanScore(t *testing.T) {
	assert.InDelta(t, 0.5, MeanScore([]float64{0.25, 0.75}), 1e-12)
	assert.Equal(t, 0.0, MeanScore(nil))
}
