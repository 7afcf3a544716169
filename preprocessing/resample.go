// Resamplers counteract class imbalance at the data level. They operate on
// row indices so callers can resample X and y consistently, following the
// imbalanced-learn sampler semantics.
package preprocessing

import (
	"math/rand/v2"

	"github.com/AxiomAlive/imba-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RandomUnderSampler removes majority-class samples at random until the
// class counts reach the requested ratio.
type RandomUnderSampler struct {
	// SamplingRatio is minority/majority count after resampling.
	// 1.0 (default) fully balances the classes.
	SamplingRatio float64
	Seed          int64
}

// NewRandomUnderSampler creates an undersampler with the given seed.
func NewRandomUnderSampler(seed int64) *RandomUnderSampler {
	return &RandomUnderSampler{SamplingRatio: 1.0, Seed: seed}
}

// SampleIndices returns the retained row indices. The minority class is kept
// in full; the majority class is subsampled without replacement.
func (s *RandomUnderSampler) SampleIndices(y mat.Matrix) ([]int, error) {
	minority, majority, err := splitByClass(y)
	if err != nil {
		return nil, err
	}

	ratio := s.SamplingRatio
	if ratio <= 0 {
		ratio = 1.0
	}

	nMajority := int(float64(len(minority)) / ratio)
	if nMajority > len(majority) {
		nMajority = len(majority)
	}
	if nMajority < 1 {
		nMajority = 1
	}

	r := rand.New(rand.NewPCG(uint64(s.Seed), uint64(s.Seed)))
	r.Shuffle(len(majority), func(i, j int) {
		majority[i], majority[j] = majority[j], majority[i]
	})

	indices := make([]int, 0, len(minority)+nMajority)
	indices = append(indices, minority...)
	indices = append(indices, majority[:nMajority]...)
	return indices, nil
}

// FitResample resamples X and y together.
func (s *RandomUnderSampler) FitResample(X, y mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	indices, err := s.SampleIndices(y)
	if err != nil {
		return nil, nil, err
	}
	rx, ry := TakeRows(X, y, indices)
	return rx, ry, nil
}

// RandomOverSampler duplicates minority-class samples at random until the
// class counts reach the requested ratio.
type RandomOverSampler struct {
	// SamplingRatio is minority/majority count after resampling.
	SamplingRatio float64
	Seed          int64
}

// NewRandomOverSampler creates an oversampler with the given seed.
func NewRandomOverSampler(seed int64) *RandomOverSampler {
	return &RandomOverSampler{SamplingRatio: 1.0, Seed: seed}
}

// SampleIndices returns row indices with minority rows repeated. All original
// rows are always retained.
func (s *RandomOverSampler) SampleIndices(y mat.Matrix) ([]int, error) {
	minority, majority, err := splitByClass(y)
	if err != nil {
		return nil, err
	}

	ratio := s.SamplingRatio
	if ratio <= 0 {
		ratio = 1.0
	}

	target := int(float64(len(majority)) * ratio)
	extra := target - len(minority)

	rows, _ := y.Dims()
	indices := make([]int, 0, rows+extra)
	for i := 0; i < rows; i++ {
		indices = append(indices, i)
	}

	r := rand.New(rand.NewPCG(uint64(s.Seed), uint64(s.Seed)))
	for i := 0; i < extra; i++ {
		indices = append(indices, minority[r.IntN(len(minority))])
	}
	return indices, nil
}

// FitResample resamples X and y together.
func (s *RandomOverSampler) FitResample(X, y mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	indices, err := s.SampleIndices(y)
	if err != nil {
		return nil, nil, err
	}
	rx, ry := TakeRows(X, y, indices)
	return rx, ry, nil
}

// splitByClass partitions row indices into minority and majority groups.
func splitByClass(y mat.Matrix) (minority, majority []int, err error) {
	rows, _ := y.Dims()
	if rows == 0 {
		return nil, nil, errors.NewModelError("splitByClass", "empty data", errors.ErrEmptyData)
	}

	var pos, neg []int
	for i := 0; i < rows; i++ {
		switch y.At(i, 0) {
		case 1:
			pos = append(pos, i)
		case 0:
			neg = append(neg, i)
		default:
			return nil, nil, errors.NewModelError("splitByClass", "non-binary target", errors.ErrNotBinary)
		}
	}
	if len(pos) == 0 || len(neg) == 0 {
		return nil, nil, errors.NewValueError("splitByClass", "both classes must be present")
	}

	if len(pos) <= len(neg) {
		return pos, neg, nil
	}
	return neg, pos, nil
}

// TakeRows materializes the selected rows of X and y as dense matrices.
func TakeRows(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, xCols := X.Dims()
	_, yCols := y.Dims()

	xOut := mat.NewDense(len(indices), xCols, nil)
	yOut := mat.NewDense(len(indices), yCols, nil)
	for i, idx := range indices {
		for j := 0; j < xCols; j++ {
			xOut.Set(i, j, X.At(idx, j))
		}
		for j := 0; j < yCols; j++ {
			yOut.Set(i, j, y.At(idx, j))
		}
	}
	return xOut, yOut
}
