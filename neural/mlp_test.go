package neural

import (
	"math/rand/v2"
	"testing"

	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// twoClusters builds a well-separated two-cluster dataset.
func twoClusters(nPerClass int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	n := 2 * nPerClass
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < nPerClass; i++ {
		X.Set(i, 0, -2+rng.NormFloat64()*0.3)
		X.Set(i, 1, -2+rng.NormFloat64()*0.3)
	}
	for i := nPerClass; i < n; i++ {
		X.Set(i, 0, 2+rng.NormFloat64()*0.3)
		X.Set(i, 1, 2+rng.NormFloat64()*0.3)
		y.Set(i, 0, 1)
	}
	return X, y
}

func TestMLPClassifierSeparable(t *testing.T) {
	X, y := twoClusters(40, 1)

	clf := NewMLPClassifier([]int{16}, 42)
	clf.MaxIter = 300
	clf.LearningRate = 0.01
	require.NoError(t, clf.Fit(X, y))
	require.True(t, clf.IsFitted())

	pred, err := clf.Predict(X)
	require.NoError(t, err)

	rows, _ := y.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	acc := float64(correct) / float64(rows)
	assert.GreaterOrEqual(t, acc, 0.95)
}

func TestMLPClassifierProbaShape(t *testing.T) {
	X, y := twoClusters(20, 2)

	clf := NewMLPClassifier([]int{8}, 7)
	clf.MaxIter = 50
	require.NoError(t, clf.Fit(X, y))

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	assert.Equal(t, 40, rows)
	assert.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-10)
	}
}

func TestMLPClassifierDeterministicSeed(t *testing.T) {
	X, y := twoClusters(20, 3)

	var probas []*mat.Dense
	for run := 0; run < 2; run++ {
		clf := NewMLPClassifier([]int{8}, 11)
		clf.MaxIter = 30
		require.NoError(t, clf.Fit(X, y))
		proba, err := clf.PredictProba(X)
		require.NoError(t, err)
		probas = append(probas, proba.(*mat.Dense))
	}
	assert.True(t, mat.Equal(probas[0], probas[1]), "same seed must reproduce training")
}

func TestMLPClassifierConvergenceWarning(t *testing.T) {
	X, y := twoClusters(20, 4)

	var warned error
	scierr.SetWarningHandler(func(w error) { warned = w })
	defer scierr.SetWarningHandler(nil)

	clf := NewMLPClassifier([]int{4}, 5)
	clf.MaxIter = 2
	require.NoError(t, clf.Fit(X, y))

	require.Error(t, warned)
	var cw *scierr.ConvergenceWarning
	assert.ErrorAs(t, warned, &cw)
}

func TestMLPClassifierValidation(t *testing.T) {
	X, y := twoClusters(5, 6)

	tests := []struct {
		name  string
		setup func(*MLPClassifier)
	}{
		{"zero learning rate", func(c *MLPClassifier) { c.LearningRate = 0 }},
		{"invalid layer width", func(c *MLPClassifier) { c.HiddenLayerSizes = []int{0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clf := NewMLPClassifier([]int{4}, 1)
			tt.setup(clf)
			assert.Error(t, clf.Fit(X, y))
		})
	}
}

func TestMLPClassifierNotFitted(t *testing.T) {
	clf := NewMLPClassifier([]int{4}, 1)
	_, err := clf.Predict(mat.NewDense(1, 2, []float64{0, 0}))
	assert.Error(t, err)
}

func TestMLPClassifierNonBinaryTarget(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{0, 1, 5})

	clf := NewMLPClassifier([]int{4}, 1)
	assert.Error(t, clf.Fit(X, y))
}
