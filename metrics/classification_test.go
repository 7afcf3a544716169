package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestConfusionMatrix(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    ConfusionCounts
		wantErr bool
	}{
		{
			name:  "Mixed outcomes",
			yTrue: []float64{1, 0, 1, 0, 1, 0},
			yPred: []float64{1, 0, 0, 1, 1, 0},
			want:  ConfusionCounts{TP: 2, FP: 1, TN: 2, FN: 1},
		},
		{
			name:  "All correct",
			yTrue: []float64{1, 0, 1, 0},
			yPred: []float64{1, 0, 1, 0},
			want:  ConfusionCounts{TP: 2, FP: 0, TN: 2, FN: 0},
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 2, 1},
			yPred:   []float64{0, 1, 1},
			wantErr: true,
		},
		{
			name:    "Non-binary predictions",
			yTrue:   []float64{0, 1, 1},
			yPred:   []float64{0, 0.5, 1},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{1},
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := ConfusionMatrix(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("ConfusionMatrix() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ConfusionMatrix() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPrecision(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{
			name:  "Typical case",
			yTrue: []float64{1, 0, 1, 0, 1, 0},
			yPred: []float64{1, 0, 0, 1, 1, 0},
			want:  2.0 / 3.0,
		},
		{
			name:  "Perfect precision",
			yTrue: []float64{1, 0, 1, 0},
			yPred: []float64{1, 0, 1, 0},
			want:  1.0,
		},
		{
			name:  "No predicted positives returns 0",
			yTrue: []float64{1, 0, 1},
			yPred: []float64{0, 0, 0},
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yTrue := mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			yPred := mat.NewVecDense(len(tt.yPred), tt.yPred)

			got, err := Precision(yTrue, yPred)
			if err != nil {
				t.Fatalf("Precision() unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Precision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecall(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{
			name:  "Typical case",
			yTrue: []float64{1, 0, 1, 0, 1, 0},
			yPred: []float64{1, 0, 0, 1, 1, 0},
			want:  2.0 / 3.0,
		},
		{
			name:  "No positive samples returns 0",
			yTrue: []float64{0, 0, 0},
			yPred: []float64{1, 0, 1},
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yTrue := mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			yPred := mat.NewVecDense(len(tt.yPred), tt.yPred)

			got, err := Recall(yTrue, yPred)
			if err != nil {
				t.Fatalf("Recall() unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Recall() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestF1(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{
			name:  "Precision and recall both 2/3",
			yTrue: []float64{1, 0, 1, 0, 1, 0},
			yPred: []float64{1, 0, 0, 1, 1, 0},
			want:  2.0 / 3.0,
		},
		{
			name:  "Perfect F1",
			yTrue: []float64{1, 1, 0, 0},
			yPred: []float64{1, 1, 0, 0},
			want:  1.0,
		},
		{
			name:  "All wrong returns 0",
			yTrue: []float64{1, 1, 0, 0},
			yPred: []float64{0, 0, 1, 1},
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yTrue := mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			yPred := mat.NewVecDense(len(tt.yPred), tt.yPred)

			got, err := F1(yTrue, yPred)
			if err != nil {
				t.Fatalf("F1() unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("F1() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFBetaInvalidBeta(t *testing.T) {
	yTrue := mat.NewVecDense(2, []float64{0, 1})
	yPred := mat.NewVecDense(2, []float64{0, 1})

	if _, err := FBeta(yTrue, yPred, 0); err == nil {
		t.Error("FBeta() expected error for beta = 0")
	}
	if _, err := FBeta(yTrue, yPred, -1); err == nil {
		t.Error("FBeta() expected error for negative beta")
	}
}

func TestBalancedAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{
			name:  "Sensitivity 0.5, specificity 2/3",
			yTrue: []float64{0, 0, 0, 1, 1},
			yPred: []float64{0, 0, 1, 1, 0},
			want:  (0.5 + 2.0/3.0) / 2,
		},
		{
			name:  "Perfect classification",
			yTrue: []float64{0, 1, 0, 1},
			yPred: []float64{0, 1, 0, 1},
			want:  1.0,
		},
		{
			name:  "Majority-class guessing on imbalanced data",
			yTrue: []float64{0, 0, 0, 0, 0, 0, 0, 0, 1, 1},
			yPred: []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			want:  0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yTrue := mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			yPred := mat.NewVecDense(len(tt.yPred), tt.yPred)

			got, err := BalancedAccuracy(yTrue, yPred)
			if err != nil {
				t.Fatalf("BalancedAccuracy() unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("BalancedAccuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGMean(t *testing.T) {
	yTrue := mat.NewVecDense(5, []float64{0, 0, 0, 1, 1})
	yPred := mat.NewVecDense(5, []float64{0, 0, 1, 1, 0})

	got, err := GMean(yTrue, yPred)
	if err != nil {
		t.Fatalf("GMean() unexpected error: %v", err)
	}
	want := math.Sqrt(0.5 * (2.0 / 3.0))
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("GMean() = %v, want %v", got, want)
	}
}

func TestAccuracyMatrix(t *testing.T) {
	yTrue := mat.NewDense(4, 1, []float64{0, 1, 1, 0})
	yPred := mat.NewDense(4, 1, []float64{0, 1, 0, 0})

	got, err := AccuracyMatrix(yTrue, yPred)
	if err != nil {
		t.Fatalf("AccuracyMatrix() unexpected error: %v", err)
	}
	if math.Abs(got-0.75) > 1e-9 {
		t.Errorf("AccuracyMatrix() = %v, want 0.75", got)
	}

	if _, err := AccuracyMatrix(nil, yPred); err == nil {
		t.Error("AccuracyMatrix() expected error for nil matrix")
	}
}
