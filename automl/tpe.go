package automl

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Observation is one completed trial seen by the sampler: a configuration
// and the loss it achieved. Lower loss is better.
type Observation struct {
	Params Params
	Loss   float64
}

// Sampler proposes the next configuration to evaluate. completed is the
// number of trials finished across the whole search, not just in this
// space's history.
type Sampler interface {
	Suggest(space Space, history []Observation, completed int, rng *rand.Rand) Params
}

// RandomSampler draws every configuration from the priors.
type RandomSampler struct{}

// Suggest ignores the history.
func (RandomSampler) Suggest(space Space, _ []Observation, _ int, rng *rand.Rand) Params {
	return space.samplePrior(rng)
}

// TPESampler implements the Tree-structured Parzen Estimator. Completed
// trials are split into a good and a bad set at the Gamma quantile of the
// loss; each dimension is modelled with Parzen windows over both sets and
// candidates drawn from the good density are ranked by the density ratio
// l(x)/g(x).
type TPESampler struct {
	// NStartupTrials is the number of completed trials across the whole
	// search before the estimator kicks in. Counting per space instead
	// would starve the estimator once the budget is shared between many
	// model families.
	NStartupTrials int
	// Gamma is the quantile separating good from bad trials.
	Gamma float64
	// NEICandidates is the number of candidates ranked per dimension.
	NEICandidates int
}

// NewTPESampler creates a sampler with the usual defaults.
func NewTPESampler() *TPESampler {
	return &TPESampler{
		NStartupTrials: 20,
		Gamma:          0.25,
		NEICandidates:  24,
	}
}

// Suggest proposes the next configuration. The estimator activates once
// the search as a whole has finished NStartupTrials trials; from then on
// each space is modelled with whatever observations it has.
func (s *TPESampler) Suggest(space Space, history []Observation, completed int, rng *rand.Rand) Params {
	if completed < s.NStartupTrials || len(history) < 2 {
		return space.samplePrior(rng)
	}

	good, bad := s.splitByLoss(history)

	params := make(Params, len(space))
	for _, dim := range space {
		if dim.Kind == Choice {
			params[dim.Name] = s.suggestCategorical(dim, good, bad)
		} else {
			params[dim.Name] = s.suggestNumeric(dim, good, bad, rng)
		}
	}
	return params
}

// splitByLoss sorts the history and cuts it at the Gamma quantile.
func (s *TPESampler) splitByLoss(history []Observation) (good, bad []Observation) {
	sorted := make([]Observation, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Loss < sorted[j].Loss })

	nGood := int(math.Ceil(s.Gamma * float64(len(sorted))))
	if nGood < 1 {
		nGood = 1
	}
	if nGood >= len(sorted) {
		nGood = len(sorted) - 1
	}
	return sorted[:nGood], sorted[nGood:]
}

// suggestNumeric draws NEICandidates from the good-set Parzen density and
// keeps the candidate with the highest log l(x) - log g(x).
func (s *TPESampler) suggestNumeric(dim Param, good, bad []Observation, rng *rand.Rand) float64 {
	l := newParzen(dim, values(dim, good))
	g := newParzen(dim, values(dim, bad))

	bestScore := math.Inf(-1)
	var best float64
	for c := 0; c < s.NEICandidates; c++ {
		x := l.sample(rng)
		score := l.logPDF(x) - g.logPDF(x)
		if score > bestScore {
			bestScore = score
			best = x
		}
	}

	v := best
	if dim.Kind == LogUniform {
		v = math.Exp(v)
	}
	if dim.Kind == QUniform {
		return dim.quantize(v)
	}
	return dim.clip(v)
}

// suggestCategorical ranks the categories by their smoothed probability
// ratio between the good and bad sets.
func (s *TPESampler) suggestCategorical(dim Param, good, bad []Observation) float64 {
	goodCounts := categoryCounts(dim, good)
	badCounts := categoryCounts(dim, bad)

	bestScore := math.Inf(-1)
	best := 0
	for c := 0; c < dim.NChoices; c++ {
		// Laplace-smoothed frequencies.
		pGood := (goodCounts[c] + 1) / float64(len(good)+dim.NChoices)
		pBad := (badCounts[c] + 1) / float64(len(bad)+dim.NChoices)
		score := math.Log(pGood) - math.Log(pBad)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return float64(best)
}

// values extracts one dimension from a set of observations, mapped into
// the sampler's working scale (log scale for LogUniform dimensions).
func values(dim Param, obs []Observation) []float64 {
	out := make([]float64, 0, len(obs))
	for _, o := range obs {
		v, ok := o.Params[dim.Name]
		if !ok {
			continue
		}
		if dim.Kind == LogUniform {
			v = math.Log(v)
		}
		out = append(out, v)
	}
	return out
}

// categoryCounts tallies category frequencies for one Choice dimension.
func categoryCounts(dim Param, obs []Observation) []float64 {
	counts := make([]float64, dim.NChoices)
	for _, o := range obs {
		if v, ok := o.Params[dim.Name]; ok {
			idx := int(v)
			if idx >= 0 && idx < dim.NChoices {
				counts[idx]++
			}
		}
	}
	return counts
}

// parzen is a truncated mixture of Gaussians centered on observed values.
type parzen struct {
	centers []float64
	sigmas  []float64
	low     float64
	high    float64
}

// newParzen builds the estimator for one dimension. Bandwidths follow the
// neighbor-distance heuristic clipped to a fraction of the range.
func newParzen(dim Param, centers []float64) parzen {
	low, high := dim.Low, dim.High
	if dim.Kind == LogUniform {
		low, high = math.Log(dim.Low), math.Log(dim.High)
	}

	p := parzen{low: low, high: high}
	if len(centers) == 0 {
		// Fall back to the prior: one wide component over the range.
		p.centers = []float64{(low + high) / 2}
		p.sigmas = []float64{high - low}
		return p
	}

	sorted := make([]float64, len(centers))
	copy(sorted, centers)
	sort.Float64s(sorted)

	maxSigma := high - low
	minSigma := (high - low) / math.Max(100, float64(len(sorted)))

	sigmas := make([]float64, len(sorted))
	for i := range sorted {
		var left, right float64
		if i > 0 {
			left = sorted[i] - sorted[i-1]
		} else {
			left = sorted[i] - low
		}
		if i < len(sorted)-1 {
			right = sorted[i+1] - sorted[i]
		} else {
			right = high - sorted[i]
		}
		sigma := math.Max(left, right)
		if sigma > maxSigma {
			sigma = maxSigma
		}
		if sigma < minSigma {
			sigma = minSigma
		}
		sigmas[i] = sigma
	}

	p.centers = sorted
	p.sigmas = sigmas
	return p
}

// sample draws from a random mixture component, rejecting values outside
// the range.
func (p parzen) sample(rng *rand.Rand) float64 {
	for attempt := 0; attempt < 100; attempt++ {
		i := rng.IntN(len(p.centers))
		x := p.centers[i] + rng.NormFloat64()*p.sigmas[i]
		if x >= p.low && x <= p.high {
			return x
		}
	}
	return p.low + rng.Float64()*(p.high-p.low)
}

// logPDF evaluates the mixture log-density.
func (p parzen) logPDF(x float64) float64 {
	var sum float64
	for i := range p.centers {
		z := (x - p.centers[i]) / p.sigmas[i]
		sum += math.Exp(-0.5*z*z) / (p.sigmas[i] * math.Sqrt(2*math.Pi))
	}
	if sum <= 0 {
		return math.Inf(-1)
	}
	return math.Log(sum / float64(len(p.centers)))
}
