// Package dataset loads tabular CSV data into matrices and normalizes the
// binary target so the minority class is always encoded as 1.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dataset is a loaded classification table.
type Dataset struct {
	// X holds the numeric feature columns.
	X *mat.Dense
	// Y holds the 0/1 target with the minority class as 1.
	Y *mat.Dense

	// FeatureNames are the feature column headers in X column order.
	FeatureNames []string
	// TargetName is the target column header.
	TargetName string
	// PositiveLabel is the original label mapped to 1 (the minority).
	PositiveLabel string
	// NegativeLabel is the original label mapped to 0 (the majority).
	NegativeLabel string
}

// LoadCSV reads a headered CSV file and splits off the named target
// column; an empty name selects the last column. All feature columns must
// parse as floats; the target may hold any two distinct labels.
func LoadCSV(path, targetColumn string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, scierr.Wrapf(err, "opening dataset %s", path)
	}
	defer func() { _ = f.Close() }()

	return Read(f, targetColumn)
}

// Read parses CSV content from a reader. See LoadCSV.
func Read(r io.Reader, targetColumn string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		return nil, scierr.Wrap(err, "reading csv header")
	}

	if targetColumn == "" {
		// Unnamed target defaults to the last column.
		targetColumn = header[len(header)-1]
	}

	targetIdx := -1
	featureNames := make([]string, 0, len(header)-1)
	for i, name := range header {
		if name == targetColumn {
			targetIdx = i
			continue
		}
		featureNames = append(featureNames, name)
	}
	if targetIdx < 0 {
		return nil, scierr.NewValidationError("target", "column not found in header", targetColumn)
	}
	if len(featureNames) == 0 {
		return nil, scierr.NewValidationError("features", "no feature columns besides the target", targetColumn)
	}

	var (
		features []float64
		labels   []string
		rows     int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, scierr.Wrapf(err, "reading csv row %d", rows+2)
		}
		if len(record) != len(header) {
			return nil, scierr.Newf("row %d has %d fields, header has %d", rows+2, len(record), len(header))
		}

		for i, field := range record {
			if i == targetIdx {
				labels = append(labels, field)
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, scierr.Wrapf(err, "parsing feature %q at row %d", header[i], rows+2)
			}
			features = append(features, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, scierr.NewModelError("dataset.Read", "no data rows", scierr.ErrEmptyData)
	}

	y, posLabel, negLabel, err := encodeTarget(labels)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		X:             mat.NewDense(rows, len(featureNames), features),
		Y:             y,
		FeatureNames:  featureNames,
		TargetName:    targetColumn,
		PositiveLabel: posLabel,
		NegativeLabel: negLabel,
	}, nil
}

// encodeTarget maps the two observed labels to 0/1 with the minority
// class as 1. Ties keep the lexicographically larger label positive.
func encodeTarget(labels []string) (*mat.Dense, string, string, error) {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	if len(counts) != 2 {
		return nil, "", "", scierr.NewModelError("dataset.encodeTarget",
			"target must have exactly two classes", scierr.ErrNotBinary)
	}

	var a, b string
	for l := range counts {
		if a == "" {
			a = l
		} else {
			b = l
		}
	}
	if a > b {
		a, b = b, a
	}

	// b is positive unless it is the majority.
	pos, neg := b, a
	if counts[b] > counts[a] {
		pos, neg = a, b
	}

	y := mat.NewDense(len(labels), 1, nil)
	for i, l := range labels {
		if l == pos {
			y.Set(i, 0, 1)
		}
	}
	return y, pos, neg, nil
}

// NumSamples returns the row count.
func (d *Dataset) NumSamples() int {
	rows, _ := d.X.Dims()
	return rows
}

// NumFeatures returns the feature column count.
func (d *Dataset) NumFeatures() int {
	_, cols := d.X.Dims()
	return cols
}

// ClassBalance returns the negative count, positive count and the
// imbalance ratio n_neg/n_pos.
func (d *Dataset) ClassBalance() (nNeg, nPos int, ratio float64) {
	rows, _ := d.Y.Dims()
	for i := 0; i < rows; i++ {
		if d.Y.At(i, 0) == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos > 0 {
		ratio = float64(nNeg) / float64(nPos)
	}
	return nNeg, nPos, ratio
}

// SizeBytes estimates the in-memory feature matrix size.
func (d *Dataset) SizeBytes() int64 {
	rows, cols := d.X.Dims()
	return int64(rows) * int64(cols) * 8
}

// Subset returns a new dataset restricted to the given row indices.
func (d *Dataset) Subset(indices []int) *Dataset {
	_, cols := d.X.Dims()
	X := mat.NewDense(len(indices), cols, nil)
	Y := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			X.Set(i, j, d.X.At(idx, j))
		}
		Y.Set(i, 0, d.Y.At(idx, 0))
	}
	return &Dataset{
		X:             X,
		Y:             Y,
		FeatureNames:  d.FeatureNames,
		TargetName:    d.TargetName,
		PositiveLabel: d.PositiveLabel,
		NegativeLabel: d.NegativeLabel,
	}
}
