package modelselection

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestKFoldSplit(t *testing.T) {
	X := mat.NewDense(10, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	kf := NewKFold(5, false, 0)
	folds := kf.Split(X, nil)

	if len(folds) != 5 {
		t.Fatalf("got %d folds, want 5", len(folds))
	}

	seen := make(map[int]int)
	for _, fold := range folds {
		if len(fold.TestIndices) != 2 {
			t.Errorf("test fold size = %d, want 2", len(fold.TestIndices))
		}
		if len(fold.TrainIndices)+len(fold.TestIndices) != 10 {
			t.Errorf("train+test = %d, want 10", len(fold.TrainIndices)+len(fold.TestIndices))
		}
		for _, idx := range fold.TestIndices {
			seen[idx]++
		}
	}
	// Every sample is in exactly one test fold.
	for i := 0; i < 10; i++ {
		if seen[i] != 1 {
			t.Errorf("sample %d appears in %d test folds, want 1", i, seen[i])
		}
	}
}

func TestKFoldUnevenSizes(t *testing.T) {
	X := mat.NewDense(7, 1, nil)

	kf := NewKFold(3, false, 0)
	folds := kf.Split(X, nil)

	sizes := []int{len(folds[0].TestIndices), len(folds[1].TestIndices), len(folds[2].TestIndices)}
	if sizes[0] != 3 || sizes[1] != 2 || sizes[2] != 2 {
		t.Errorf("fold sizes = %v, want [3 2 2]", sizes)
	}
}

func TestKFoldDefaultSplits(t *testing.T) {
	kf := NewKFold(1, false, 0)
	if kf.GetNSplits() != 5 {
		t.Errorf("NSplits = %d, want fallback 5", kf.GetNSplits())
	}
}

func TestStratifiedKFoldPreservesRatio(t *testing.T) {
	// 16 samples: 4 positives, 4 folds => exactly 1 positive per fold.
	y := mat.NewDense(16, 1, []float64{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1,
	})
	X := mat.NewDense(16, 1, nil)

	skf := NewStratifiedKFold(4, false, 0)
	folds := skf.Split(X, y)

	for f, fold := range folds {
		var pos int
		for _, idx := range fold.TestIndices {
			if y.At(idx, 0) == 1 {
				pos++
			}
		}
		if pos != 1 {
			t.Errorf("fold %d has %d positives, want 1", f, pos)
		}
		if len(fold.TestIndices) != 4 {
			t.Errorf("fold %d test size = %d, want 4", f, len(fold.TestIndices))
		}
	}
}

func TestStratifiedKFoldShuffleDeterministic(t *testing.T) {
	y := mat.NewDense(20, 1, nil)
	for i := 15; i < 20; i++ {
		y.Set(i, 0, 1)
	}
	X := mat.NewDense(20, 1, nil)

	a := NewStratifiedKFold(5, true, 7).Split(X, y)
	b := NewStratifiedKFold(5, true, 7).Split(X, y)

	for f := range a {
		if len(a[f].TestIndices) != len(b[f].TestIndices) {
			t.Fatalf("fold %d sizes differ", f)
		}
		for i := range a[f].TestIndices {
			if a[f].TestIndices[i] != b[f].TestIndices[i] {
				t.Errorf("fold %d: same seed produced different splits", f)
				break
			}
		}
	}
}

func TestTrainTestSplitStratified(t *testing.T) {
	y := mat.NewDense(20, 1, nil)
	for i := 16; i < 20; i++ {
		y.Set(i, 0, 1)
	}
	X := mat.NewDense(20, 1, nil)

	trainIdx, testIdx := TrainTestSplit(X, y, 0.25, 42)

	if len(trainIdx)+len(testIdx) != 20 {
		t.Fatalf("train+test = %d, want 20", len(trainIdx)+len(testIdx))
	}

	var testPos int
	for _, idx := range testIdx {
		if y.At(idx, 0) == 1 {
			testPos++
		}
	}
	// 25% of 4 positives = 1 positive in the test set.
	if testPos != 1 {
		t.Errorf("test positives = %d, want 1", testPos)
	}
}
