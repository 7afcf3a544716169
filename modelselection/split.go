// Package modelselection provides cross-validation splitters and the
// scoring loop the hyperparameter search evaluates candidates with.
package modelselection

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Splitter generates cross-validation folds.
type Splitter interface {
	Split(X, y mat.Matrix) []Fold
	GetNSplits() int
}

// Fold is one train/test split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits samples into k consecutive folds.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewKFold creates a k-fold splitter; fewer than 2 splits falls back to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed int64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits.
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold.
func (kf *KFold) Split(X, _ mat.Matrix) []Fold {
	nSamples, _ := X.Dims()

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	currentIdx := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		testIndices := make([]int, testSize)
		copy(testIndices, indices[currentIdx:currentIdx+testSize])

		trainIndices := make([]int, 0, nSamples-testSize)
		trainIndices = append(trainIndices, indices[:currentIdx]...)
		trainIndices = append(trainIndices, indices[currentIdx+testSize:]...)

		folds[i] = Fold{TrainIndices: trainIndices, TestIndices: testIndices}
		currentIdx += testSize
	}

	return folds
}

// StratifiedKFold preserves the per-fold class proportions, which keeps
// every fold's minority count stable on imbalanced data.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewStratifiedKFold creates a stratified splitter; fewer than 2 splits
// falls back to 5.
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits.
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split distributes each class round-robin over the folds. Class labels
// are visited in sorted order so the result is deterministic.
func (skf *StratifiedKFold) Split(_, y mat.Matrix) []Fold {
	nSamples, _ := y.Dims()

	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}

	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(skf.RandomSeed), uint64(skf.RandomSeed)))
		for _, label := range labels {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	testSets := make([][]int, skf.NSplits)
	for _, label := range labels {
		for pos, idx := range classIndices[label] {
			fold := pos % skf.NSplits
			testSets[fold] = append(testSets[fold], idx)
		}
	}

	folds := make([]Fold, skf.NSplits)
	for f := 0; f < skf.NSplits; f++ {
		inTest := make(map[int]bool, len(testSets[f]))
		for _, idx := range testSets[f] {
			inTest[idx] = true
		}
		trainIndices := make([]int, 0, nSamples-len(testSets[f]))
		for i := 0; i < nSamples; i++ {
			if !inTest[i] {
				trainIndices = append(trainIndices, i)
			}
		}
		sort.Ints(testSets[f])
		folds[f] = Fold{TrainIndices: trainIndices, TestIndices: testSets[f]}
	}

	return folds
}

// TrainTestSplit performs a stratified holdout split. testSize is the
// fraction of samples assigned to the test set.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed int64) (trainIdx, testIdx []int) {
	nSamples, _ := y.Dims()

	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}

	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	for _, label := range labels {
		indices := classIndices[label]
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		nTest := int(testSize * float64(len(indices)))
		if nTest < 1 && len(indices) > 1 {
			nTest = 1
		}
		testIdx = append(testIdx, indices[:nTest]...)
		trainIdx = append(trainIdx, indices[nTest:]...)
	}

	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx
}
