// Package tree implements a CART-style decision tree classifier for binary
// targets. It is the base learner for the forest, bagging and boosting
// ensembles; the Extra-Trees variants reuse it with randomized thresholds.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/AxiomAlive/imba-automl/core/model"
	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTree is a binary classification tree split on weighted gini
// impurity.
type DecisionTree struct {
	state *model.StateManager

	// MaxDepth limits tree depth; 0 means unlimited.
	MaxDepth int
	// MinSamplesLeaf is the minimum number of samples in a leaf.
	MinSamplesLeaf int
	// MinSamplesSplit is the minimum number of samples to attempt a split.
	MinSamplesSplit int
	// MaxFeatures is the number of features considered per split; 0 means all.
	MaxFeatures int
	// RandomThresholds draws one uniform threshold per candidate feature
	// instead of scanning all cut points (Extra-Trees mode).
	RandomThresholds bool
	// Seed drives feature subsampling and random thresholds.
	Seed int64

	root      *node
	nFeatures int
	rng       *rand.Rand
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	leaf      bool
	// proba holds the weighted class frequencies [P(y=0), P(y=1)].
	proba [2]float64
}

// splitCandidate carries the outcome of a split search.
type splitCandidate struct {
	feature   int
	threshold float64
	gain      float64
}

// NewDecisionTree creates a tree with the given options applied over
// defaults (unlimited depth, 1 sample per leaf, all features).
func NewDecisionTree(opts ...TreeOption) *DecisionTree {
	t := &DecisionTree{
		state:           model.NewStateManager(),
		MinSamplesLeaf:  1,
		MinSamplesSplit: 2,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TreeOption is a functional option for DecisionTree.
type TreeOption func(*DecisionTree)

// WithMaxDepth sets the maximum tree depth.
func WithMaxDepth(depth int) TreeOption {
	return func(t *DecisionTree) { t.MaxDepth = depth }
}

// WithMinSamplesLeaf sets the minimum samples per leaf.
func WithMinSamplesLeaf(n int) TreeOption {
	return func(t *DecisionTree) { t.MinSamplesLeaf = n }
}

// WithMinSamplesSplit sets the minimum samples to attempt a split.
func WithMinSamplesSplit(n int) TreeOption {
	return func(t *DecisionTree) { t.MinSamplesSplit = n }
}

// WithMaxFeatures sets the number of features considered per split.
func WithMaxFeatures(n int) TreeOption {
	return func(t *DecisionTree) { t.MaxFeatures = n }
}

// WithRandomThresholds enables Extra-Trees style random cut points.
func WithRandomThresholds(enabled bool) TreeOption {
	return func(t *DecisionTree) { t.RandomThresholds = enabled }
}

// WithTreeSeed sets the random seed.
func WithTreeSeed(seed int64) TreeOption {
	return func(t *DecisionTree) { t.Seed = seed }
}

// IsFitted reports whether the tree has been trained.
func (t *DecisionTree) IsFitted() bool {
	return t.state.IsFitted()
}

// Classes returns the class labels in probability column order.
func (t *DecisionTree) Classes() []int {
	return []int{0, 1}
}

// Fit trains the tree with uniform sample weights.
func (t *DecisionTree) Fit(X, y mat.Matrix) error {
	return t.FitWeighted(X, y, nil)
}

// FitWeighted trains the tree with per-sample weights. A nil weight slice
// means uniform weights.
func (t *DecisionTree) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return scierr.NewModelError("DecisionTree.Fit", "empty data", scierr.ErrEmptyData)
	}
	yRows, _ := y.Dims()
	if yRows != rows {
		return scierr.NewDimensionError("DecisionTree.Fit", rows, yRows, 0)
	}
	if sampleWeight != nil && len(sampleWeight) != rows {
		return scierr.NewDimensionError("DecisionTree.Fit", rows, len(sampleWeight), 0)
	}

	labels := make([]float64, rows)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return scierr.NewModelError("DecisionTree.Fit", "non-binary target", scierr.ErrNotBinary)
		}
		labels[i] = v
	}

	weights := sampleWeight
	if weights == nil {
		weights = make([]float64, rows)
		for i := range weights {
			weights[i] = 1.0
		}
	}

	t.nFeatures = cols
	t.rng = rand.New(rand.NewPCG(uint64(t.Seed), uint64(t.Seed)+1))

	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}

	t.root = t.buildNode(X, labels, weights, indices, 0)
	t.state.SetDimensions(cols, rows)
	t.state.SetFitted()
	return nil
}

// buildNode grows the tree recursively.
func (t *DecisionTree) buildNode(X mat.Matrix, labels, weights []float64, indices []int, depth int) *node {
	proba := classProba(labels, weights, indices)

	// Stopping conditions
	if (t.MaxDepth > 0 && depth >= t.MaxDepth) ||
		len(indices) < t.MinSamplesSplit ||
		proba[0] == 0 || proba[1] == 0 {
		return &node{leaf: true, proba: proba}
	}

	best := t.findBestSplit(X, labels, weights, indices)
	if best.gain <= 1e-12 {
		return &node{leaf: true, proba: proba}
	}

	var leftIdx, rightIdx []int
	for _, idx := range indices {
		if X.At(idx, best.feature) <= best.threshold {
			leftIdx = append(leftIdx, idx)
		} else {
			rightIdx = append(rightIdx, idx)
		}
	}
	if len(leftIdx) < t.MinSamplesLeaf || len(rightIdx) < t.MinSamplesLeaf {
		return &node{leaf: true, proba: proba}
	}

	return &node{
		feature:   best.feature,
		threshold: best.threshold,
		left:      t.buildNode(X, labels, weights, leftIdx, depth+1),
		right:     t.buildNode(X, labels, weights, rightIdx, depth+1),
	}
}

// findBestSplit searches candidate features for the split with the highest
// weighted gini gain.
func (t *DecisionTree) findBestSplit(X mat.Matrix, labels, weights []float64, indices []int) splitCandidate {
	best := splitCandidate{gain: -math.MaxFloat64}

	for _, feature := range t.candidateFeatures() {
		var split splitCandidate
		if t.RandomThresholds {
			split = t.randomSplitForFeature(X, labels, weights, indices, feature)
		} else {
			split = t.exactSplitForFeature(X, labels, weights, indices, feature)
		}
		if split.gain > best.gain {
			best = split
		}
	}

	return best
}

// candidateFeatures returns the feature indices considered at one node.
func (t *DecisionTree) candidateFeatures() []int {
	k := t.MaxFeatures
	if k <= 0 || k >= t.nFeatures {
		features := make([]int, t.nFeatures)
		for i := range features {
			features[i] = i
		}
		return features
	}

	perm := t.rng.Perm(t.nFeatures)
	return perm[:k]
}

// exactSplitForFeature scans sorted values and evaluates every cut point.
func (t *DecisionTree) exactSplitForFeature(X mat.Matrix, labels, weights []float64, indices []int, feature int) splitCandidate {
	values := make([]struct {
		value float64
		idx   int
	}, len(indices))
	for i, idx := range indices {
		values[i] = struct {
			value float64
			idx   int
		}{value: X.At(idx, feature), idx: idx}
	}
	sort.Slice(values, func(i, j int) bool { return values[i].value < values[j].value })

	var totalW, totalPos float64
	for _, idx := range indices {
		totalW += weights[idx]
		totalPos += weights[idx] * labels[idx]
	}
	parentImpurity := giniBinary(totalPos, totalW)

	best := splitCandidate{feature: feature, gain: -math.MaxFloat64}

	var leftW, leftPos float64
	for i := 0; i < len(values)-1; i++ {
		idx := values[i].idx
		leftW += weights[idx]
		leftPos += weights[idx] * labels[idx]

		// Skip duplicate values
		if values[i].value == values[i+1].value {
			continue
		}

		rightW := totalW - leftW
		rightPos := totalPos - leftPos
		if leftW <= 0 || rightW <= 0 {
			continue
		}

		gain := parentImpurity -
			(leftW/totalW)*giniBinary(leftPos, leftW) -
			(rightW/totalW)*giniBinary(rightPos, rightW)

		if gain > best.gain {
			best.gain = gain
			best.threshold = (values[i].value + values[i+1].value) / 2
		}
	}

	return best
}

// randomSplitForFeature draws one uniform threshold between feature min/max.
func (t *DecisionTree) randomSplitForFeature(X mat.Matrix, labels, weights []float64, indices []int, feature int) splitCandidate {
	minV, maxV := math.MaxFloat64, -math.MaxFloat64
	for _, idx := range indices {
		v := X.At(idx, feature)
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if minV == maxV {
		return splitCandidate{feature: feature, gain: -math.MaxFloat64}
	}

	threshold := minV + t.rng.Float64()*(maxV-minV)

	var totalW, totalPos, leftW, leftPos float64
	for _, idx := range indices {
		totalW += weights[idx]
		totalPos += weights[idx] * labels[idx]
		if X.At(idx, feature) <= threshold {
			leftW += weights[idx]
			leftPos += weights[idx] * labels[idx]
		}
	}
	rightW := totalW - leftW
	rightPos := totalPos - leftPos
	if leftW <= 0 || rightW <= 0 {
		return splitCandidate{feature: feature, gain: -math.MaxFloat64}
	}

	gain := giniBinary(totalPos, totalW) -
		(leftW/totalW)*giniBinary(leftPos, leftW) -
		(rightW/totalW)*giniBinary(rightPos, rightW)

	return splitCandidate{feature: feature, threshold: threshold, gain: gain}
}

// giniBinary computes weighted gini impurity from the positive-class weight
// mass and the total weight mass.
func giniBinary(posW, totalW float64) float64 {
	if totalW <= 0 {
		return 0
	}
	p := posW / totalW
	return 2 * p * (1 - p)
}

// classProba computes the weighted class distribution over a node.
func classProba(labels, weights []float64, indices []int) [2]float64 {
	var posW, totalW float64
	for _, idx := range indices {
		totalW += weights[idx]
		posW += weights[idx] * labels[idx]
	}
	if totalW <= 0 {
		return [2]float64{0.5, 0.5}
	}
	p := posW / totalW
	return [2]float64{1 - p, p}
}

// PredictProba returns an n×2 matrix of class probabilities.
func (t *DecisionTree) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !t.state.IsFitted() {
		return nil, scierr.NewNotFittedError("DecisionTree", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != t.nFeatures {
		return nil, scierr.NewDimensionError("DecisionTree.PredictProba", t.nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		n := t.root
		for !n.leaf {
			if X.At(i, n.feature) <= n.threshold {
				n = n.left
			} else {
				n = n.right
			}
		}
		out.Set(i, 0, n.proba[0])
		out.Set(i, 1, n.proba[1])
	}
	return out, nil
}

// Predict returns hard 0/1 labels as an n×1 matrix.
func (t *DecisionTree) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := t.PredictProba(X)
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
