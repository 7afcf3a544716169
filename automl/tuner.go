package automl

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"github.com/AxiomAlive/imba-automl/pkg/log"
)

// Trial is one evaluated configuration.
type Trial struct {
	ID       int
	Family   string
	Params   Params
	Loss     float64
	Err      error
	Duration time.Duration
}

// Failed reports whether the trial errored instead of producing a loss.
func (t Trial) Failed() bool {
	return t.Err != nil
}

// Objective evaluates one configuration of one family and returns its
// loss. Lower is better.
type Objective func(ctx context.Context, gen Generator, params Params, seed int64) (float64, error)

// ProgressFunc is called after every finished trial.
type ProgressFunc func(completed, total int)

// Tuner runs the budgeted search in waves: configurations for up to
// MaxConcurrent trials are proposed sequentially on one goroutine, the wave
// evaluates concurrently, and results are recorded in trial-ID order before
// the next wave is proposed. The sampler therefore consumes its RNG and the
// trial history in an order independent of goroutine scheduling, keeping
// the search deterministic under a fixed seed at any concurrency.
type Tuner struct {
	// MaxConcurrent bounds simultaneously running trials.
	MaxConcurrent int
	// Sampler proposes configurations; nil means TPE with defaults.
	Sampler Sampler
	// ExploreFraction is the share of post-startup trials whose family is
	// drawn uniformly instead of from the family statistics.
	ExploreFraction float64
	// Seed drives the sampler and the per-trial model seeds.
	Seed int64
	// OnProgress, when set, is invoked after each finished trial.
	OnProgress ProgressFunc

	logger log.Logger
}

// NewTuner creates a tuner with the default concurrency of 5.
func NewTuner(seed int64) *Tuner {
	return &Tuner{
		MaxConcurrent:   5,
		Sampler:         NewTPESampler(),
		ExploreFraction: 0.25,
		Seed:            seed,
		logger:          log.GetLoggerWithName("automl.tuner"),
	}
}

// Run evaluates up to budget trials over the given generators and returns
// every trial, including failed ones. When the context is cancelled the
// trials completed so far are returned along with the context error.
func (t *Tuner) Run(ctx context.Context, generators []Generator, budget int, objective Objective) ([]Trial, error) {
	sampler := t.Sampler
	if sampler == nil {
		sampler = NewTPESampler()
	}
	maxConcurrent := t.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("automl.tuner")
	}

	familySpace := Space{{Name: "family", Kind: Choice, NChoices: len(generators)}}

	var (
		rng           = rand.New(rand.NewPCG(uint64(t.Seed), uint64(t.Seed)+1))
		familyHistory []Observation
		paramHistory  = make([][]Observation, len(generators))
		trials        []Trial
	)

	// suggest proposes the next (family, params) pair. Only the wave loop
	// calls it, so sampler state advances in trial-ID order.
	suggest := func(trialID int) (int, Params) {
		var familyIdx int
		if len(familyHistory) < len(generators) {
			// Seed every family once before modelling them.
			familyIdx = trialID % len(generators)
		} else if rng.Float64() < t.ExploreFraction {
			familyIdx = rng.IntN(len(generators))
		} else {
			proposal := sampler.Suggest(familySpace, familyHistory, len(trials), rng)
			familyIdx = proposal.Int("family")
		}

		params := sampler.Suggest(generators[familyIdx].Space, paramHistory[familyIdx], len(trials), rng)
		return familyIdx, params
	}

	record := func(trial Trial, familyIdx int) {
		trials = append(trials, trial)
		if !trial.Failed() {
			obs := Observation{Params: trial.Params, Loss: trial.Loss}
			paramHistory[familyIdx] = append(paramHistory[familyIdx], obs)
			familyHistory = append(familyHistory, Observation{
				Params: Params{"family": float64(familyIdx)},
				Loss:   trial.Loss,
			})
		}
		if t.OnProgress != nil {
			t.OnProgress(len(trials), budget)
		}

		if trial.Failed() {
			t.logger.Warn("trial failed",
				log.TrialIDKey, trial.ID,
				log.FamilyKey, trial.Family,
				log.ErrAttrKey, trial.Err.Error())
		} else {
			t.logger.Debug("trial finished",
				log.TrialIDKey, trial.ID,
				log.FamilyKey, trial.Family,
				log.LossKey, trial.Loss,
				log.DurationMsKey, trial.Duration.Milliseconds())
		}
	}

	for next := 0; next < budget; {
		if err := ctx.Err(); err != nil {
			return trials, err
		}

		wave := maxConcurrent
		if remaining := budget - next; remaining < wave {
			wave = remaining
		}

		families := make([]int, wave)
		waveTrials := make([]Trial, wave)
		for i := 0; i < wave; i++ {
			id := next + i
			familyIdx, params := suggest(id)
			families[i] = familyIdx
			waveTrials[i] = Trial{
				ID:     id,
				Family: generators[familyIdx].Name,
				Params: params,
			}
		}

		var wg sync.WaitGroup
		for i := 0; i < wave; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				trial := &waveTrials[i]

				start := time.Now()
				loss, err := objective(ctx, generators[families[i]], trial.Params, t.Seed+int64(trial.ID))
				if err != nil {
					err = scierr.NewTrialError(trial.Family, trial.ID, err)
				}
				trial.Loss = loss
				trial.Err = err
				trial.Duration = time.Since(start)
			}(i)
		}
		wg.Wait()

		for i := 0; i < wave; i++ {
			record(waveTrials[i], families[i])
		}
		next += wave
	}

	if err := ctx.Err(); err != nil {
		return trials, err
	}
	return trials, nil
}
