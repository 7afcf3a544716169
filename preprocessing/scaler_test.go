package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestStandardScalerFitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 10,
		2, 20,
		4, 30,
		6, 40,
	})

	scaler := NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() unexpected error: %v", err)
	}

	// 各列の平均が0、標準偏差が1になっていることを確認
	r, c := scaled.Dims()
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += scaled.At(i, j)
		}
		mean := sum / float64(r)
		if math.Abs(mean) > 1e-9 {
			t.Errorf("column %d mean = %v, want 0", j, mean)
		}

		sumSq := 0.0
		for i := 0; i < r; i++ {
			sumSq += scaled.At(i, j) * scaled.At(i, j)
		}
		std := math.Sqrt(sumSq / float64(r))
		if math.Abs(std-1) > 1e-9 {
			t.Errorf("column %d std = %v, want 1", j, std)
		}
	}
}

func TestStandardScalerInverseTransform(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, -5,
		2, 0,
		3, 5,
	})

	scaler := NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}

	restored, err := scaler.InverseTransform(scaled)
	if err != nil {
		t.Fatalf("InverseTransform() unexpected error: %v", err)
	}

	r, c := X.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.Abs(restored.At(i, j)-X.At(i, j)) > 1e-9 {
				t.Errorf("restored[%d][%d] = %v, want %v", i, j, restored.At(i, j), X.At(i, j))
			}
		}
	}
}

func TestStandardScalerNotFitted(t *testing.T) {
	scaler := NewStandardScalerDefault()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	if _, err := scaler.Transform(X); err == nil {
		t.Error("Transform() before Fit() should return error")
	}
}

func TestStandardScalerConstantColumn(t *testing.T) {
	// 分散ゼロの列はスケール1として扱われ、ゼロ除算を起こさない
	X := mat.NewDense(3, 1, []float64{5, 5, 5})

	scaler := NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if scaled.At(i, 0) != 0 {
			t.Errorf("scaled[%d] = %v, want 0", i, scaled.At(i, 0))
		}
	}
}
