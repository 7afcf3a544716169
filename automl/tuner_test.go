package automl

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/AxiomAlive/imba-automl/core/model"
	"github.com/AxiomAlive/imba-automl/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toyGenerators returns two fast single-parameter families for tuner tests.
func toyGenerators() []Generator {
	build := func(p Params, seed int64) model.Classifier {
		return tree.NewDecisionTree(tree.WithTreeSeed(seed))
	}
	return []Generator{
		{
			Name:  "family_a",
			Space: Space{{Name: "x", Kind: Uniform, Low: 0, High: 1}},
			Build: build,
		},
		{
			Name:  "family_b",
			Space: Space{{Name: "x", Kind: Uniform, Low: 0, High: 1}},
			Build: build,
		},
	}
}

func TestTunerRunsFullBudget(t *testing.T) {
	tuner := NewTuner(42)
	tuner.MaxConcurrent = 3

	objective := func(_ context.Context, gen Generator, p Params, _ int64) (float64, error) {
		return p["x"], nil
	}

	trials, err := tuner.Run(context.Background(), toyGenerators(), 25, objective)
	require.NoError(t, err)
	assert.Len(t, trials, 25)

	// Every trial ID appears exactly once.
	seen := make(map[int]bool)
	for _, trial := range trials {
		assert.False(t, seen[trial.ID], "trial %d recorded twice", trial.ID)
		seen[trial.ID] = true
	}
}

func TestTunerConcurrencyLimit(t *testing.T) {
	tuner := NewTuner(1)
	tuner.MaxConcurrent = 2

	var running, peak atomic.Int32
	objective := func(_ context.Context, _ Generator, p Params, _ int64) (float64, error) {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		defer running.Add(-1)
		return p["x"], nil
	}

	_, err := tuner.Run(context.Background(), toyGenerators(), 20, objective)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestTunerFailedTrialsAreRecorded(t *testing.T) {
	tuner := NewTuner(7)

	objective := func(_ context.Context, gen Generator, p Params, _ int64) (float64, error) {
		if gen.Name == "family_b" {
			return 0, assert.AnError
		}
		return p["x"], nil
	}

	trials, err := tuner.Run(context.Background(), toyGenerators(), 10, objective)
	require.NoError(t, err)
	require.Len(t, trials, 10)

	var failed int
	for _, trial := range trials {
		if trial.Failed() {
			failed++
			assert.Equal(t, "family_b", trial.Family)
		}
	}
	assert.Greater(t, failed, 0, "family_b trials must fail")
}

// Two identically-seeded searches must propose the same configurations in
// the same order, concurrency notwithstanding.
func TestTunerDeterministicAtFullConcurrency(t *testing.T) {
	objective := func(_ context.Context, _ Generator, p Params, _ int64) (float64, error) {
		return (p["x"] - 0.3) * (p["x"] - 0.3), nil
	}

	var runs [][]Trial
	for run := 0; run < 2; run++ {
		tuner := NewTuner(7)
		tuner.MaxConcurrent = 5

		trials, err := tuner.Run(context.Background(), toyGenerators(), 40, objective)
		require.NoError(t, err)
		require.Len(t, trials, 40)
		runs = append(runs, trials)
	}

	for i := range runs[0] {
		assert.Equal(t, runs[0][i].ID, runs[1][i].ID, "trial %d", i)
		assert.Equal(t, runs[0][i].Family, runs[1][i].Family, "trial %d", i)
		assert.Equal(t, runs[0][i].Params, runs[1][i].Params, "trial %d", i)
		assert.Equal(t, runs[0][i].Loss, runs[1][i].Loss, "trial %d", i)
	}
}

func TestTunerCancelledContextReturnsPartial(t *testing.T) {
	tuner := NewTuner(3)
	tuner.MaxConcurrent = 1

	ctx, cancel := context.WithCancel(context.Background())

	var count atomic.Int32
	objective := func(_ context.Context, _ Generator, p Params, _ int64) (float64, error) {
		if count.Add(1) == 5 {
			cancel()
		}
		return p["x"], nil
	}

	trials, err := tuner.Run(ctx, toyGenerators(), 1000, objective)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEmpty(t, trials)
	assert.Less(t, len(trials), 1000)
}

func TestTunerProgressCallback(t *testing.T) {
	tuner := NewTuner(9)

	var calls atomic.Int32
	var lastTotal atomic.Int32
	tuner.OnProgress = func(completed, total int) {
		calls.Add(1)
		lastTotal.Store(int32(total))
	}

	objective := func(_ context.Context, _ Generator, p Params, _ int64) (float64, error) {
		return p["x"], nil
	}

	_, err := tuner.Run(context.Background(), toyGenerators(), 8, objective)
	require.NoError(t, err)
	assert.Equal(t, int32(8), calls.Load())
	assert.Equal(t, int32(8), lastTotal.Load())
}
