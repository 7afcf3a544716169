package preprocessing

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func makeImbalanced(nNeg, nPos int) (*mat.Dense, *mat.Dense) {
	rows := nNeg + nPos
	X := mat.NewDense(rows, 2, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i*2))
		if i >= nNeg {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func countClasses(y mat.Matrix) (neg, pos int) {
	rows, _ := y.Dims()
	for i := 0; i < rows; i++ {
		if y.At(i, 0) == 1 {
			pos++
		} else {
			neg++
		}
	}
	return neg, pos
}

func TestRandomUnderSamplerBalances(t *testing.T) {
	X, y := makeImbalanced(90, 10)

	sampler := NewRandomUnderSampler(42)
	rx, ry, err := sampler.FitResample(X, y)
	if err != nil {
		t.Fatalf("FitResample() unexpected error: %v", err)
	}

	neg, pos := countClasses(ry)
	if pos != 10 {
		t.Errorf("minority count = %d, want 10 (kept in full)", pos)
	}
	if neg != 10 {
		t.Errorf("majority count = %d, want 10", neg)
	}

	rows, cols := rx.Dims()
	if rows != 20 || cols != 2 {
		t.Errorf("resampled X dims = (%d, %d), want (20, 2)", rows, cols)
	}
}

func TestRandomUnderSamplerDeterministic(t *testing.T) {
	_, y := makeImbalanced(50, 5)

	a, err := NewRandomUnderSampler(7).SampleIndices(y)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRandomUnderSampler(7).SampleIndices(y)
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != len(b) {
		t.Fatalf("index counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("indices differ at %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestRandomOverSamplerBalances(t *testing.T) {
	X, y := makeImbalanced(40, 8)

	sampler := NewRandomOverSampler(42)
	_, ry, err := sampler.FitResample(X, y)
	if err != nil {
		t.Fatalf("FitResample() unexpected error: %v", err)
	}

	neg, pos := countClasses(ry)
	if neg != 40 {
		t.Errorf("majority count = %d, want 40 (untouched)", neg)
	}
	if pos != 40 {
		t.Errorf("minority count = %d, want 40 (oversampled to balance)", pos)
	}
}

func TestResamplerSingleClassError(t *testing.T) {
	y := mat.NewDense(5, 1, []float64{0, 0, 0, 0, 0})

	if _, err := NewRandomUnderSampler(1).SampleIndices(y); err == nil {
		t.Error("SampleIndices() expected error when only one class present")
	}
}

func TestResamplerNonBinaryError(t *testing.T) {
	y := mat.NewDense(3, 1, []float64{0, 1, 2})

	if _, err := NewRandomOverSampler(1).SampleIndices(y); err == nil {
		t.Error("SampleIndices() expected error for non-binary target")
	}
}
