// Package automl implements the configuration-free model search: candidate
// generators over seven model families, a Tree-structured Parzen Estimator
// sampler and a budgeted concurrent tuner behind the Imba entry point.
package automl

import (
	"math"
	"math/rand/v2"
)

// ParamKind selects the prior distribution of one hyperparameter.
type ParamKind int

const (
	// Uniform draws from [Low, High].
	Uniform ParamKind = iota
	// LogUniform draws log-uniformly from [Low, High]; both bounds must
	// be positive.
	LogUniform
	// QUniform draws from [Low, High] and rounds to a multiple of Q.
	// With Q=1 it behaves as an integer range.
	QUniform
	// Choice draws one of NChoices categories; values are category
	// indices.
	Choice
)

// Param is one dimension of a search space.
type Param struct {
	Name     string
	Kind     ParamKind
	Low      float64
	High     float64
	Q        float64
	NChoices int
}

// Space is an ordered list of search dimensions.
type Space []Param

// Params maps dimension names to sampled values. Choice dimensions store
// the category index.
type Params map[string]float64

// Int reads a parameter as int.
func (p Params) Int(name string) int {
	return int(math.Round(p[name]))
}

// Float reads a parameter as float64.
func (p Params) Float(name string) float64 {
	return p[name]
}

// sample draws one value from the dimension's prior.
func (d Param) sample(rng *rand.Rand) float64 {
	switch d.Kind {
	case LogUniform:
		logLow, logHigh := math.Log(d.Low), math.Log(d.High)
		return math.Exp(logLow + rng.Float64()*(logHigh-logLow))
	case QUniform:
		v := d.Low + rng.Float64()*(d.High-d.Low)
		return d.quantize(v)
	case Choice:
		return float64(rng.IntN(d.NChoices))
	default:
		return d.Low + rng.Float64()*(d.High-d.Low)
	}
}

// quantize rounds to the nearest multiple of Q and clips to the bounds.
func (d Param) quantize(v float64) float64 {
	q := d.Q
	if q <= 0 {
		q = 1
	}
	v = math.Round(v/q) * q
	return d.clip(v)
}

// clip bounds a value to [Low, High].
func (d Param) clip(v float64) float64 {
	if v < d.Low {
		return d.Low
	}
	if v > d.High {
		return d.High
	}
	return v
}

// samplePrior draws a full configuration from the priors.
func (s Space) samplePrior(rng *rand.Rand) Params {
	params := make(Params, len(s))
	for _, d := range s {
		params[d.Name] = d.sample(rng)
	}
	return params
}
