package automl

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func TestSpaceSamplePriorBounds(t *testing.T) {
	space := Space{
		{Name: "u", Kind: Uniform, Low: -1, High: 1},
		{Name: "lu", Kind: LogUniform, Low: 1e-3, High: 10},
		{Name: "qu", Kind: QUniform, Low: 2, High: 12, Q: 2},
		{Name: "c", Kind: Choice, NChoices: 3},
	}

	rng := testRNG(1)
	for i := 0; i < 200; i++ {
		p := space.samplePrior(rng)

		assert.GreaterOrEqual(t, p["u"], -1.0)
		assert.LessOrEqual(t, p["u"], 1.0)

		assert.GreaterOrEqual(t, p["lu"], 1e-3)
		assert.LessOrEqual(t, p["lu"], 10.0)

		q := p["qu"]
		assert.GreaterOrEqual(t, q, 2.0)
		assert.LessOrEqual(t, q, 12.0)
		assert.Equal(t, 0.0, math.Mod(q, 2), "quantized value %v not a multiple of 2", q)

		c := int(p["c"])
		assert.GreaterOrEqual(t, c, 0)
		assert.Less(t, c, 3)
	}
}

func TestTPESamplerStartupUsesPrior(t *testing.T) {
	space := Space{{Name: "x", Kind: Uniform, Low: 0, High: 1}}
	sampler := NewTPESampler()

	// Fewer completed trials than NStartupTrials: still random search.
	history := []Observation{{Params: Params{"x": 0.5}, Loss: 1.0}}
	p := sampler.Suggest(space, history, 1, testRNG(2))
	assert.GreaterOrEqual(t, p["x"], 0.0)
	assert.LessOrEqual(t, p["x"], 1.0)
}

// Startup counts trials across the whole search. A space holding only a
// handful of observations must still be modelled once the search itself is
// past startup, otherwise a budget shared between several families never
// leaves random sampling.
func TestTPESamplerActivatesWithSmallSpaceHistory(t *testing.T) {
	space := Space{{Name: "x", Kind: Uniform, Low: 0, High: 1}}
	sampler := NewTPESampler()

	rng := testRNG(6)
	var history []Observation
	for i := 0; i < 8; i++ {
		x := rng.Float64()
		history = append(history, Observation{
			Params: Params{"x": x},
			Loss:   (x - 0.2) * (x - 0.2),
		})
	}

	// 30 trials finished overall, only 8 in this family.
	var nearOptimum int
	const proposals = 50
	for i := 0; i < proposals; i++ {
		p := sampler.Suggest(space, history, 30, rng)
		if math.Abs(p["x"]-0.2) < 0.25 {
			nearOptimum++
		}
	}
	assert.Greater(t, nearOptimum, proposals/2,
		"only %d/%d proposals near the optimum with a small family history", nearOptimum, proposals)
}

func TestTPESamplerExploitsGoodRegion(t *testing.T) {
	// Quadratic loss minimized at x=0.2. The history marks the region
	// around the optimum as good; TPE proposals should concentrate there.
	space := Space{{Name: "x", Kind: Uniform, Low: 0, High: 1}}
	sampler := NewTPESampler()

	rng := testRNG(3)
	var history []Observation
	for i := 0; i < 60; i++ {
		x := rng.Float64()
		history = append(history, Observation{
			Params: Params{"x": x},
			Loss:   (x - 0.2) * (x - 0.2),
		})
	}

	var nearOptimum int
	const proposals = 50
	for i := 0; i < proposals; i++ {
		p := sampler.Suggest(space, history, len(history), rng)
		require.GreaterOrEqual(t, p["x"], 0.0)
		require.LessOrEqual(t, p["x"], 1.0)
		if math.Abs(p["x"]-0.2) < 0.25 {
			nearOptimum++
		}
	}
	assert.Greater(t, nearOptimum, proposals/2,
		"only %d/%d proposals near the optimum", nearOptimum, proposals)
}

func TestTPESamplerCategoricalPrefersGood(t *testing.T) {
	space := Space{{Name: "c", Kind: Choice, NChoices: 3}}
	sampler := NewTPESampler()

	// Category 1 always wins, the others always lose.
	var history []Observation
	for i := 0; i < 30; i++ {
		c := float64(i % 3)
		loss := 1.0
		if c == 1 {
			loss = 0.1
		}
		history = append(history, Observation{Params: Params{"c": c}, Loss: loss})
	}

	p := sampler.Suggest(space, history, len(history), testRNG(4))
	assert.Equal(t, 1, p.Int("c"))
}

func TestTPESamplerLogUniformStaysInBounds(t *testing.T) {
	space := Space{{Name: "lr", Kind: LogUniform, Low: 1e-4, High: 1.0}}
	sampler := NewTPESampler()

	rng := testRNG(5)
	var history []Observation
	for i := 0; i < 40; i++ {
		lr := math.Exp(math.Log(1e-4) + rng.Float64()*math.Log(1e4))
		history = append(history, Observation{Params: Params{"lr": lr}, Loss: lr})
	}

	for i := 0; i < 50; i++ {
		p := sampler.Suggest(space, history, len(history), rng)
		assert.GreaterOrEqual(t, p["lr"], 1e-4)
		assert.LessOrEqual(t, p["lr"], 1.0)
	}
}

func TestSplitByLossKeepsGammaQuantile(t *testing.T) {
	sampler := NewTPESampler()

	var history []Observation
	for i := 0; i < 40; i++ {
		history = append(history, Observation{Loss: float64(i)})
	}

	good, bad := sampler.splitByLoss(history)
	assert.Len(t, good, 10)
	assert.Len(t, bad, 30)
	for _, g := range good {
		assert.Less(t, g.Loss, 10.0)
	}
}
