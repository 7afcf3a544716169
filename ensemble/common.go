package ensemble

import (
	"math"
	"math/rand/v2"
)

// newRNG builds a deterministic generator from a single seed.
func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)+1))
}

// sigmoid maps a raw score to (0, 1) without overflowing for large |x|.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}
