// Package neural implements a multi-layer perceptron classifier with ReLU
// hidden layers, a sigmoid output and Adam optimization on the logistic
// loss.
package neural

import (
	"math"
	"math/rand/v2"

	"github.com/AxiomAlive/imba-automl/core/model"
	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MLPClassifier is a feed-forward binary classifier.
type MLPClassifier struct {
	state *model.StateManager

	// HiddenLayerSizes lists the width of each hidden layer.
	HiddenLayerSizes []int
	// LearningRate is the Adam step size.
	LearningRate float64
	// MaxIter is the maximum number of epochs.
	MaxIter int
	// BatchSize is the mini-batch size; 0 means min(200, n_samples).
	BatchSize int
	// Alpha is the L2 penalty on the weights.
	Alpha float64
	// Tol is the minimum loss improvement; training stops after
	// NIterNoChange epochs without it.
	Tol float64
	// NIterNoChange is the patience for the Tol check.
	NIterNoChange int
	// Seed drives weight initialization and batch shuffling.
	Seed int64

	weights []*mat.Dense
	biases  []*mat.Dense

	nFeatures int
	loss      float64
	nIter     int
}

// NewMLPClassifier creates an MLP with the given hidden layer widths and
// sklearn-like defaults for the remaining parameters.
func NewMLPClassifier(hiddenLayerSizes []int, seed int64) *MLPClassifier {
	if len(hiddenLayerSizes) == 0 {
		hiddenLayerSizes = []int{100}
	}
	return &MLPClassifier{
		state:            model.NewStateManager(),
		HiddenLayerSizes: hiddenLayerSizes,
		LearningRate:     1e-3,
		MaxIter:          200,
		Alpha:            1e-4,
		Tol:              1e-4,
		NIterNoChange:    10,
		Seed:             seed,
	}
}

// IsFitted reports whether the network has been trained.
func (m *MLPClassifier) IsFitted() bool {
	return m.state.IsFitted()
}

// Classes returns the class labels in probability column order.
func (m *MLPClassifier) Classes() []int {
	return []int{0, 1}
}

// Loss returns the training loss of the last epoch.
func (m *MLPClassifier) Loss() float64 {
	return m.loss
}

// NIter returns the number of completed epochs.
func (m *MLPClassifier) NIter() int {
	return m.nIter
}

// adamState holds the first and second moment estimates of one parameter.
type adamState struct {
	m *mat.Dense
	v *mat.Dense
	t int
}

// Fit trains the network with mini-batch Adam. A ConvergenceWarning is
// emitted when MaxIter epochs pass without reaching the Tol criterion.
func (m *MLPClassifier) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if yRows != rows {
		return scierr.NewDimensionError("MLPClassifier.Fit", rows, yRows, 0)
	}
	if m.LearningRate <= 0 {
		return scierr.NewValidationError("LearningRate", "must be positive", m.LearningRate)
	}
	for _, size := range m.HiddenLayerSizes {
		if size < 1 {
			return scierr.NewValidationError("HiddenLayerSizes", "layer width must be at least 1", size)
		}
	}

	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return scierr.NewModelError("MLPClassifier.Fit", "non-binary target", scierr.ErrNotBinary)
		}
		targets[i] = v
	}

	m.nFeatures = cols
	rng := rand.New(rand.NewPCG(uint64(m.Seed), uint64(m.Seed)+1))
	m.initWeights(cols, rng)

	batchSize := m.BatchSize
	if batchSize <= 0 {
		batchSize = 200
	}
	if batchSize > rows {
		batchSize = rows
	}

	adamW := make([]adamState, len(m.weights))
	adamB := make([]adamState, len(m.biases))
	for l := range m.weights {
		wr, wc := m.weights[l].Dims()
		adamW[l] = adamState{m: mat.NewDense(wr, wc, nil), v: mat.NewDense(wr, wc, nil)}
		br, bc := m.biases[l].Dims()
		adamB[l] = adamState{m: mat.NewDense(br, bc, nil), v: mat.NewDense(br, bc, nil)}
	}

	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}

	bestLoss := math.MaxFloat64
	noChange := 0
	converged := false

	for epoch := 0; epoch < m.MaxIter; epoch++ {
		rng.Shuffle(rows, func(i, j int) { order[i], order[j] = order[j], order[i] })

		var epochLoss float64
		for start := 0; start < rows; start += batchSize {
			end := start + batchSize
			if end > rows {
				end = rows
			}
			batch := order[start:end]
			epochLoss += m.trainBatch(X, targets, batch, adamW, adamB) * float64(len(batch))
		}
		epochLoss /= float64(rows)
		if err := scierr.CheckScalar("MLPClassifier.Fit", epochLoss, epoch); err != nil {
			return err
		}
		m.loss = epochLoss
		m.nIter = epoch + 1

		if epochLoss < bestLoss-m.Tol {
			bestLoss = epochLoss
			noChange = 0
		} else {
			noChange++
			if noChange >= m.NIterNoChange {
				converged = true
				break
			}
		}
	}

	if !converged {
		scierr.Warn(scierr.NewConvergenceWarning("MLPClassifier", m.MaxIter,
			"maximum iterations reached before the loss stabilized"))
	}

	m.state.SetDimensions(cols, rows)
	m.state.SetFitted()
	return nil
}

// initWeights uses He initialization for the ReLU layers.
func (m *MLPClassifier) initWeights(nFeatures int, rng *rand.Rand) {
	sizes := append([]int{nFeatures}, m.HiddenLayerSizes...)
	sizes = append(sizes, 1)

	m.weights = make([]*mat.Dense, len(sizes)-1)
	m.biases = make([]*mat.Dense, len(sizes)-1)
	for l := 0; l < len(sizes)-1; l++ {
		fanIn, fanOut := sizes[l], sizes[l+1]
		scale := math.Sqrt(2.0 / float64(fanIn))
		w := mat.NewDense(fanIn, fanOut, nil)
		for i := 0; i < fanIn; i++ {
			for j := 0; j < fanOut; j++ {
				w.Set(i, j, rng.NormFloat64()*scale)
			}
		}
		m.weights[l] = w
		m.biases[l] = mat.NewDense(1, fanOut, nil)
	}
}

// trainBatch runs one forward/backward pass and applies Adam updates.
// It returns the mean batch loss.
func (m *MLPClassifier) trainBatch(X mat.Matrix, targets []float64, batch []int, adamW, adamB []adamState) float64 {
	b := len(batch)
	input := mat.NewDense(b, m.nFeatures, nil)
	yBatch := make([]float64, b)
	for i, idx := range batch {
		for j := 0; j < m.nFeatures; j++ {
			input.Set(i, j, X.At(idx, j))
		}
		yBatch[i] = targets[idx]
	}

	// Forward pass, keeping pre-activations for backprop.
	activations := []*mat.Dense{input}
	preActs := make([]*mat.Dense, len(m.weights))
	a := input
	for l := range m.weights {
		z := m.affine(a, l)
		preActs[l] = z
		if l < len(m.weights)-1 {
			a = applyReLU(z)
		} else {
			a = applySigmoid(z)
		}
		activations = append(activations, a)
	}

	// Cross-entropy loss.
	probs := activations[len(activations)-1]
	var loss float64
	for i := 0; i < b; i++ {
		p := probs.At(i, 0)
		if yBatch[i] == 1 {
			loss -= scierr.SafeLog(p)
		} else {
			loss -= scierr.SafeLog(1 - p)
		}
	}
	loss /= float64(b)

	// Backward pass. Sigmoid + cross-entropy gives delta = p - y.
	delta := mat.NewDense(b, 1, nil)
	for i := 0; i < b; i++ {
		delta.Set(i, 0, (probs.At(i, 0)-yBatch[i])/float64(b))
	}

	for l := len(m.weights) - 1; l >= 0; l-- {
		var gradW mat.Dense
		gradW.Mul(activations[l].T(), delta)
		// L2 penalty
		var penalty mat.Dense
		penalty.Scale(m.Alpha/float64(b), m.weights[l])
		gradW.Add(&gradW, &penalty)

		gradB := columnSums(delta)

		if l > 0 {
			var next mat.Dense
			next.Mul(delta, m.weights[l].T())
			// ReLU derivative mask on the previous pre-activation.
			z := preActs[l-1]
			rowsN, colsN := next.Dims()
			for i := 0; i < rowsN; i++ {
				for j := 0; j < colsN; j++ {
					if z.At(i, j) <= 0 {
						next.Set(i, j, 0)
					}
				}
			}
			delta = &next
		}

		m.adamStep(m.weights[l], &gradW, &adamW[l])
		m.adamStep(m.biases[l], gradB, &adamB[l])
	}

	return loss
}

// affine computes a*W + bias with the bias row broadcast.
func (m *MLPClassifier) affine(a *mat.Dense, layer int) *mat.Dense {
	var z mat.Dense
	z.Mul(a, m.weights[layer])
	rows, cols := z.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			z.Set(i, j, z.At(i, j)+m.biases[layer].At(0, j))
		}
	}
	return &z
}

// adamStep applies one Adam update in place.
func (m *MLPClassifier) adamStep(param, grad *mat.Dense, state *adamState) {
	const (
		beta1   = 0.9
		beta2   = 0.999
		epsilon = 1e-8
	)
	state.t++
	rows, cols := param.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			g := grad.At(i, j)
			mo := beta1*state.m.At(i, j) + (1-beta1)*g
			vo := beta2*state.v.At(i, j) + (1-beta2)*g*g
			state.m.Set(i, j, mo)
			state.v.Set(i, j, vo)

			mHat := mo / (1 - math.Pow(beta1, float64(state.t)))
			vHat := vo / (1 - math.Pow(beta2, float64(state.t)))
			param.Set(i, j, param.At(i, j)-m.LearningRate*mHat/(math.Sqrt(vHat)+epsilon))
		}
	}
}

func applyReLU(z *mat.Dense) *mat.Dense {
	rows, cols := z.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := z.At(i, j); v > 0 {
				out.Set(i, j, v)
			}
		}
	}
	return out
}

func applySigmoid(z *mat.Dense) *mat.Dense {
	rows, cols := z.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			x := z.At(i, j)
			var p float64
			if x >= 0 {
				p = 1.0 / (1.0 + math.Exp(-x))
			} else {
				e := math.Exp(x)
				p = e / (1.0 + e)
			}
			out.Set(i, j, p)
		}
	}
	return out
}

// columnSums collapses a matrix to a single row of column sums.
func columnSums(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(1, cols, nil)
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += m.At(i, j)
		}
		out.Set(0, j, sum)
	}
	return out
}

// PredictProba returns an n×2 matrix of class probabilities.
func (m *MLPClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !m.state.IsFitted() {
		return nil, scierr.NewNotFittedError("MLPClassifier", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != m.nFeatures {
		return nil, scierr.NewDimensionError("MLPClassifier.PredictProba", m.nFeatures, cols, 1)
	}

	a := mat.DenseCopyOf(X)
	for l := range m.weights {
		z := m.affine(a, l)
		if l < len(m.weights)-1 {
			a = applyReLU(z)
		} else {
			a = applySigmoid(z)
		}
	}

	out := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		p := a.At(i, 0)
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Predict returns hard 0/1 labels as an n×1 matrix.
func (m *MLPClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := m.PredictProba(X)
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
