package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/AxiomAlive/imba-automl/core/model"
	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GrowthStrategy selects how boosted trees are grown.
type GrowthStrategy int

const (
	// DepthWise expands every splittable node level by level up to
	// MaxDepth (XGBoost-style growth).
	DepthWise GrowthStrategy = iota
	// LeafWise repeatedly expands the single highest-gain leaf until
	// NumLeaves is reached (LightGBM-style growth).
	LeafWise
)

// BoostingParams holds the gradient boosting hyperparameters.
type BoostingParams struct {
	NumIterations int
	LearningRate  float64
	// MaxDepth bounds tree depth under DepthWise growth; 0 means 6.
	MaxDepth int
	// NumLeaves bounds leaf count under LeafWise growth; 0 means 31.
	NumLeaves     int
	MinDataInLeaf int
	// Lambda is the L2 regularization on leaf values.
	Lambda         float64
	MinGainToSplit float64
	// BaggingFraction subsamples rows per iteration; 1.0 disables.
	BaggingFraction float64
	// FeatureFraction subsamples features per iteration; 1.0 disables.
	FeatureFraction float64
	Strategy        GrowthStrategy
	Seed            int64
}

// GradientBoosting is a boosted-tree binary classifier trained on the
// logistic loss. Gradients, hessians and the split gain follow the usual
// second-order formulation.
type GradientBoosting struct {
	state  *model.StateManager
	params BoostingParams

	trees     []boostTree
	initScore float64
	nFeatures int

	// Training-time buffers, released after Fit.
	x         *mat.Dense
	targets   []float64
	rawScores []float64
	gradients []float64
	hessians  []float64
	features  []int
}

type boostTree struct {
	nodes []boostNode
}

type boostNode struct {
	feature    int
	threshold  float64
	leftChild  int
	rightChild int
	leafValue  float64
	leaf       bool
}

// boostSplit carries the outcome of one split search.
type boostSplit struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

// openLeaf tracks a splittable node while a tree is grown.
type openLeaf struct {
	nodeIdx int
	indices []int
	depth   int
	split   boostSplit
}

// NewGradientBoosting creates a booster, filling unset params with
// defaults.
func NewGradientBoosting(params BoostingParams) *GradientBoosting {
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.MaxDepth == 0 {
		params.MaxDepth = 6
	}
	if params.NumLeaves == 0 {
		params.NumLeaves = 31
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = 20
	}
	if params.BaggingFraction == 0 {
		params.BaggingFraction = 1.0
	}
	if params.FeatureFraction == 0 {
		params.FeatureFraction = 1.0
	}
	return &GradientBoosting{state: model.NewStateManager(), params: params}
}

// IsFitted reports whether the model has been trained.
func (g *GradientBoosting) IsFitted() bool {
	return g.state.IsFitted()
}

// Classes returns the class labels in probability column order.
func (g *GradientBoosting) Classes() []int {
	return []int{0, 1}
}

// GetParams returns the boosting hyperparameters.
func (g *GradientBoosting) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"num_iterations":   g.params.NumIterations,
		"learning_rate":    g.params.LearningRate,
		"max_depth":        g.params.MaxDepth,
		"num_leaves":       g.params.NumLeaves,
		"min_data_in_leaf": g.params.MinDataInLeaf,
		"lambda_l2":        g.params.Lambda,
		"bagging_fraction": g.params.BaggingFraction,
		"feature_fraction": g.params.FeatureFraction,
	}
}

// Fit runs the boosting iterations on the logistic loss.
func (g *GradientBoosting) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if yRows != rows {
		return scierr.NewDimensionError("GradientBoosting.Fit", rows, yRows, 0)
	}

	g.x = mat.DenseCopyOf(X)
	g.targets = make([]float64, rows)
	var nPos int
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return scierr.NewModelError("GradientBoosting.Fit", "non-binary target", scierr.ErrNotBinary)
		}
		g.targets[i] = v
		if v == 1 {
			nPos++
		}
	}
	if nPos == 0 || nPos == rows {
		return scierr.NewModelError("GradientBoosting.Fit", "single-class target", scierr.ErrNotBinary)
	}

	// Init score is the log-odds of the positive prior.
	prior := float64(nPos) / float64(rows)
	g.initScore = math.Log(prior / (1 - prior))

	g.nFeatures = cols
	g.gradients = make([]float64, rows)
	g.hessians = make([]float64, rows)
	g.rawScores = make([]float64, rows)
	for i := range g.rawScores {
		g.rawScores[i] = g.initScore
	}
	g.trees = g.trees[:0]

	rng := newRNG(g.params.Seed)

	for iter := 0; iter < g.params.NumIterations; iter++ {
		g.calculateGradients()

		rowSample := g.sampleRows(rng, rows)
		g.features = g.sampleFeatures(rng, cols)

		tree := g.buildTree(rowSample)
		g.trees = append(g.trees, tree)

		// Update raw scores for all rows, not only the sampled ones.
		for i := 0; i < rows; i++ {
			g.rawScores[i] += g.params.LearningRate * g.predictTreeRaw(tree, g.x.RawRowView(i))
		}

		// Diverging scores poison every later gradient; stop here.
		if err := scierr.CheckNumericalStability("GradientBoosting.Fit", g.rawScores, iter); err != nil {
			return err
		}
	}

	// Release training buffers; trees carry everything prediction needs.
	g.x = nil
	g.targets = nil
	g.rawScores = nil
	g.gradients = nil
	g.hessians = nil
	g.features = nil

	g.state.SetDimensions(cols, rows)
	g.state.SetFitted()
	return nil
}

// calculateGradients computes logistic-loss gradients and hessians from the
// current raw scores.
func (g *GradientBoosting) calculateGradients() {
	for i := range g.targets {
		p := sigmoid(g.rawScores[i])
		g.gradients[i] = p - g.targets[i]
		g.hessians[i] = p * (1 - p)
	}
}

// sampleRows subsamples row indices without replacement when
// BaggingFraction is below 1.
func (g *GradientBoosting) sampleRows(rng *rand.Rand, rows int) []int {
	n := rows
	if g.params.BaggingFraction < 1.0 {
		n = int(g.params.BaggingFraction * float64(rows))
		if n < 1 {
			n = 1
		}
		perm := rng.Perm(rows)
		sample := perm[:n]
		sort.Ints(sample)
		return sample
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// sampleFeatures subsamples feature indices when FeatureFraction is below 1.
func (g *GradientBoosting) sampleFeatures(rng *rand.Rand, cols int) []int {
	if g.params.FeatureFraction >= 1.0 {
		features := make([]int, cols)
		for i := range features {
			features[i] = i
		}
		return features
	}
	n := int(g.params.FeatureFraction * float64(cols))
	if n < 1 {
		n = 1
	}
	return rng.Perm(cols)[:n]
}

// buildTree grows one tree over the sampled rows. DepthWise expands all
// open leaves of the shallowest depth first; LeafWise always expands the
// highest-gain open leaf.
func (g *GradientBoosting) buildTree(indices []int) boostTree {
	tree := boostTree{}

	root := openLeaf{nodeIdx: 0, indices: indices, depth: 0}
	tree.nodes = append(tree.nodes, boostNode{leaf: true, leafValue: g.calculateLeafValue(indices)})
	root.split = g.findBestSplit(indices)

	open := []openLeaf{root}
	numLeaves := 1

	for len(open) > 0 {
		// Pick the next leaf to expand.
		pick := 0
		if g.params.Strategy == LeafWise {
			for i := 1; i < len(open); i++ {
				if open[i].split.gain > open[pick].split.gain {
					pick = i
				}
			}
		} else {
			for i := 1; i < len(open); i++ {
				if open[i].depth < open[pick].depth {
					pick = i
				}
			}
		}
		leaf := open[pick]
		open = append(open[:pick], open[pick+1:]...)

		if leaf.split.gain < g.params.MinGainToSplit || leaf.split.gain <= 0 {
			continue
		}
		if g.params.Strategy == LeafWise && numLeaves >= g.params.NumLeaves {
			break
		}
		if g.params.Strategy == DepthWise && leaf.depth >= g.params.MaxDepth {
			continue
		}

		// Turn the leaf into an internal node with two children.
		leftIdx := len(tree.nodes)
		rightIdx := leftIdx + 1
		tree.nodes[leaf.nodeIdx] = boostNode{
			feature:    leaf.split.feature,
			threshold:  leaf.split.threshold,
			leftChild:  leftIdx,
			rightChild: rightIdx,
		}
		tree.nodes = append(tree.nodes,
			boostNode{leaf: true, leafValue: g.calculateLeafValue(leaf.split.left)},
			boostNode{leaf: true, leafValue: g.calculateLeafValue(leaf.split.right)},
		)
		numLeaves++

		children := []openLeaf{
			{nodeIdx: leftIdx, indices: leaf.split.left, depth: leaf.depth + 1},
			{nodeIdx: rightIdx, indices: leaf.split.right, depth: leaf.depth + 1},
		}
		for _, child := range children {
			if len(child.indices) < 2*g.params.MinDataInLeaf {
				continue
			}
			child.split = g.findBestSplit(child.indices)
			open = append(open, child)
		}
	}

	return tree
}

// findBestSplit searches the sampled features for the highest-gain split.
func (g *GradientBoosting) findBestSplit(indices []int) boostSplit {
	best := boostSplit{gain: -math.MaxFloat64}
	for _, feature := range g.features {
		split := g.findBestSplitForFeature(indices, feature)
		if split.gain > best.gain {
			best = split
		}
	}
	if best.gain > -math.MaxFloat64 {
		best.left, best.right = g.splitData(indices, best)
	}
	return best
}

// findBestSplitForFeature scans the sorted values of one feature.
func (g *GradientBoosting) findBestSplitForFeature(indices []int, feature int) boostSplit {
	values := make([]struct {
		value float64
		idx   int
	}, len(indices))
	for i, idx := range indices {
		values[i] = struct {
			value float64
			idx   int
		}{value: g.x.At(idx, feature), idx: idx}
	}
	sort.Slice(values, func(i, j int) bool { return values[i].value < values[j].value })

	var totalGrad, totalHess float64
	for _, idx := range indices {
		totalGrad += g.gradients[idx]
		totalHess += g.hessians[idx]
	}

	best := boostSplit{feature: feature, gain: -math.MaxFloat64}

	var leftGrad, leftHess float64
	leftCount := 0
	for i := 0; i < len(values)-1; i++ {
		idx := values[i].idx
		leftGrad += g.gradients[idx]
		leftHess += g.hessians[idx]
		leftCount++

		if values[i].value == values[i+1].value {
			continue
		}

		rightCount := len(indices) - leftCount
		if leftCount < g.params.MinDataInLeaf || rightCount < g.params.MinDataInLeaf {
			continue
		}

		gain := g.calculateSplitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess, totalGrad, totalHess)
		if gain > best.gain {
			best.gain = gain
			best.threshold = (values[i].value + values[i+1].value) / 2
		}
	}

	return best
}

// calculateSplitGain is the second-order gain with L2 regularization.
func (g *GradientBoosting) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := g.params.Lambda

	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)

	return 0.5 * (leftScore + rightScore - totalScore)
}

// splitData partitions indices by the split threshold.
func (g *GradientBoosting) splitData(indices []int, split boostSplit) ([]int, []int) {
	var left, right []int
	for _, idx := range indices {
		if g.x.At(idx, split.feature) <= split.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

// calculateLeafValue is the regularized Newton step for one leaf.
func (g *GradientBoosting) calculateLeafValue(indices []int) float64 {
	var sumGrad, sumHess float64
	for _, idx := range indices {
		sumGrad += g.gradients[idx]
		sumHess += g.hessians[idx]
	}

	epsilon := 1e-10
	if math.Abs(sumHess) < epsilon {
		sumHess = epsilon
	}
	return -sumGrad / (sumHess + g.params.Lambda + epsilon)
}

// predictTreeRaw walks one tree for a single row.
func (g *GradientBoosting) predictTreeRaw(tree boostTree, row []float64) float64 {
	nodeIdx := 0
	for {
		node := tree.nodes[nodeIdx]
		if node.leaf {
			return node.leafValue
		}
		if row[node.feature] <= node.threshold {
			nodeIdx = node.leftChild
		} else {
			nodeIdx = node.rightChild
		}
	}
}

// PredictProba returns sigmoid-transformed ensemble scores as an n×2
// matrix.
func (g *GradientBoosting) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !g.state.IsFitted() {
		return nil, scierr.NewNotFittedError("GradientBoosting", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != g.nFeatures {
		return nil, scierr.NewDimensionError("GradientBoosting.PredictProba", g.nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 2, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = X.At(i, j)
		}
		score := g.initScore
		for _, tree := range g.trees {
			score += g.params.LearningRate * g.predictTreeRaw(tree, row)
		}
		p := sigmoid(score)
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Predict returns hard 0/1 labels as an n×1 matrix.
func (g *GradientBoosting) Predict(X mat.Matrix) (mat.Matrix, error) {
	return probaToLabels(g.PredictProba(X))
}
