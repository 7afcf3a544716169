package dataset

import (
	"strings"
	"testing"
)

const sampleCSV = `f1,f2,label
1.0,2.0,ok
1.5,2.5,ok
2.0,3.0,ok
2.5,3.5,ok
9.0,9.0,fraud
`

func TestReadCSV(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV), "label")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if ds.NumSamples() != 5 {
		t.Errorf("NumSamples = %d, want 5", ds.NumSamples())
	}
	if ds.NumFeatures() != 2 {
		t.Errorf("NumFeatures = %d, want 2", ds.NumFeatures())
	}
	if got := []string{"f1", "f2"}; ds.FeatureNames[0] != got[0] || ds.FeatureNames[1] != got[1] {
		t.Errorf("FeatureNames = %v, want %v", ds.FeatureNames, got)
	}
	if ds.X.At(4, 0) != 9.0 {
		t.Errorf("X[4][0] = %v, want 9.0", ds.X.At(4, 0))
	}
}

func TestReadDefaultsTargetToLastColumn(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV), "")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if ds.TargetName != "label" {
		t.Errorf("TargetName = %q, want %q", ds.TargetName, "label")
	}
	if ds.NumFeatures() != 2 {
		t.Errorf("NumFeatures = %d, want 2", ds.NumFeatures())
	}
	if ds.PositiveLabel != "fraud" {
		t.Errorf("PositiveLabel = %q, want %q", ds.PositiveLabel, "fraud")
	}
}

func TestMinorityMappedToPositive(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV), "label")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if ds.PositiveLabel != "fraud" {
		t.Errorf("PositiveLabel = %q, want %q", ds.PositiveLabel, "fraud")
	}
	if ds.NegativeLabel != "ok" {
		t.Errorf("NegativeLabel = %q, want %q", ds.NegativeLabel, "ok")
	}
	if ds.Y.At(4, 0) != 1 {
		t.Error("minority row should be encoded as 1")
	}
	for i := 0; i < 4; i++ {
		if ds.Y.At(i, 0) != 0 {
			t.Errorf("majority row %d should be encoded as 0", i)
		}
	}
}

func TestClassBalance(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV), "label")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	nNeg, nPos, ratio := ds.ClassBalance()
	if nNeg != 4 || nPos != 1 {
		t.Errorf("balance = (%d, %d), want (4, 1)", nNeg, nPos)
	}
	if ratio != 4.0 {
		t.Errorf("ratio = %v, want 4.0", ratio)
	}
}

func TestSizeBytes(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV), "label")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	// 5 rows x 2 features x 8 bytes.
	if ds.SizeBytes() != 80 {
		t.Errorf("SizeBytes = %d, want 80", ds.SizeBytes())
	}
}

func TestSubset(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV), "label")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	sub := ds.Subset([]int{0, 4})
	if sub.NumSamples() != 2 {
		t.Errorf("subset samples = %d, want 2", sub.NumSamples())
	}
	if sub.Y.At(1, 0) != 1 {
		t.Error("subset should preserve the target encoding")
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name   string
		csv    string
		target string
	}{
		{"missing target column", sampleCSV, "nope"},
		{"non-numeric feature", "f1,label\nabc,ok\n1.0,fraud\n", "label"},
		{"single class", "f1,label\n1.0,ok\n2.0,ok\n", "label"},
		{"three classes", "f1,label\n1.0,a\n2.0,b\n3.0,c\n", "label"},
		{"no rows", "f1,label\n", "label"},
		{"target only", "label\nok\nfraud\n", "label"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.csv), tt.target); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
