package automl

import (
	"context"
	"time"

	"github.com/AxiomAlive/imba-automl/core/model"
	"github.com/AxiomAlive/imba-automl/metrics"
	"github.com/AxiomAlive/imba-automl/modelselection"
	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
	"github.com/AxiomAlive/imba-automl/pkg/log"
	"gonum.org/v1/gonum/mat"
)

const (
	// defaultTrialBudget is the base number of search trials before the
	// dataset-size scaling is applied.
	defaultTrialBudget = 60
	// defaultCVSplits is the stratified fold count per trial.
	defaultCVSplits = 8
	// defaultMaxConcurrent bounds simultaneously evaluated trials.
	defaultMaxConcurrent = 5
)

// Imba searches the model families for the configuration with the best
// cross-validated score on an imbalanced binary classification task. No
// configuration is required beyond the target metric.
type Imba struct {
	metric string
	scorer metrics.Scorer

	trialBudget   int
	cvSplits      int
	maxConcurrent int
	seed          int64
	generators    []Generator
	onProgress    ProgressFunc

	logger log.Logger
}

// Option customizes an Imba search.
type Option func(*Imba)

// WithTrialBudget overrides the base trial budget.
func WithTrialBudget(n int) Option {
	return func(im *Imba) { im.trialBudget = n }
}

// WithCVSplits overrides the stratified fold count.
func WithCVSplits(n int) Option {
	return func(im *Imba) { im.cvSplits = n }
}

// WithMaxConcurrent overrides the trial concurrency limit.
func WithMaxConcurrent(n int) Option {
	return func(im *Imba) { im.maxConcurrent = n }
}

// WithSeed fixes all search randomness.
func WithSeed(seed int64) Option {
	return func(im *Imba) { im.seed = seed }
}

// WithGenerators replaces the default model families.
func WithGenerators(generators []Generator) Option {
	return func(im *Imba) { im.generators = generators }
}

// WithProgress registers a per-trial progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(im *Imba) { im.onProgress = fn }
}

// New creates a search for the given target metric. Supported metrics are
// f1, balanced_accuracy, average_precision, recall and precision.
func New(metric string, opts ...Option) (*Imba, error) {
	scorer, err := metrics.ScorerByName(metric)
	if err != nil {
		return nil, err
	}

	im := &Imba{
		metric:        metric,
		scorer:        scorer,
		trialBudget:   defaultTrialBudget,
		cvSplits:      defaultCVSplits,
		maxConcurrent: defaultMaxConcurrent,
		generators:    DefaultGenerators(),
		logger:        log.GetLoggerWithName("automl.imba"),
	}
	for _, opt := range opts {
		opt(im)
	}

	if im.trialBudget < 1 {
		return nil, scierr.NewValidationError("trialBudget", "must be at least 1", im.trialBudget)
	}
	if im.cvSplits < 2 {
		return nil, scierr.NewValidationError("cvSplits", "must be at least 2", im.cvSplits)
	}
	if len(im.generators) == 0 {
		return nil, scierr.NewValidationError("generators", "at least one model family is required", 0)
	}
	return im, nil
}

// Result holds the outcome of a search.
type Result struct {
	// Metric is the optimized metric name.
	Metric string
	// BestTrial is the trial with the lowest loss.
	BestTrial Trial
	// BestScore is the best mean cross-validated score.
	BestScore float64
	// BestModel is the winning configuration refit on the full data.
	BestModel model.Classifier
	// Trials lists every evaluated trial, including failed ones.
	Trials []Trial
	// Budget is the trial budget after dataset-size scaling.
	Budget int
	// Elapsed is the wall-clock search duration.
	Elapsed time.Duration
}

// FailedTrials counts the trials that errored.
func (r *Result) FailedTrials() int {
	var n int
	for _, t := range r.Trials {
		if t.Failed() {
			n++
		}
	}
	return n
}

// Fit runs the search. The target must contain only the labels 0 and 1
// with the minority class encoded as 1. When the context is cancelled the
// trials finished so far still produce a Result alongside the context
// error, as long as at least one trial succeeded.
func (im *Imba) Fit(ctx context.Context, X, y mat.Matrix) (*Result, error) {
	start := time.Now()

	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if yRows != rows {
		return nil, scierr.NewDimensionError("Imba.Fit", rows, yRows, 0)
	}
	if err := scierr.CheckMatrix("Imba.Fit", X, rows, cols, 0); err != nil {
		return nil, err
	}

	var nPos int
	for i := 0; i < rows; i++ {
		switch y.At(i, 0) {
		case 1:
			nPos++
		case 0:
		default:
			return nil, scierr.NewModelError("Imba.Fit", "labels must be 0 or 1", scierr.ErrNotBinary)
		}
	}
	if nPos == 0 || nPos == rows {
		return nil, scierr.NewModelError("Imba.Fit", "both classes must be present", scierr.ErrNotBinary)
	}

	budget := im.scaledBudget(rows, cols)
	imbalanceRatio := float64(rows-nPos) / float64(nPos)

	im.logger.Info("starting search",
		log.MetricNameKey, im.metric,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.ImbalanceRatioKey, imbalanceRatio,
		log.TrialBudgetKey, budget,
		log.RandomSeedKey, im.seed)

	tuner := NewTuner(im.seed)
	tuner.MaxConcurrent = im.maxConcurrent
	tuner.OnProgress = im.onProgress

	trials, runErr := tuner.Run(ctx, im.generators, budget, im.objective(X, y))

	best, ok := bestTrial(trials)
	if !ok {
		if runErr != nil {
			return nil, runErr
		}
		return nil, scierr.NewModelError("Imba.Fit", "every trial failed", scierr.ErrNoSuccessfulTrial)
	}

	gen, found := im.generatorByName(best.Family)
	if !found {
		return nil, scierr.Newf("unknown family %q in best trial", best.Family)
	}
	bestModel := gen.Build(best.Params, im.seed+int64(best.ID))
	if err := bestModel.Fit(X, y); err != nil {
		return nil, scierr.Wrap(err, "refitting the best configuration failed")
	}

	result := &Result{
		Metric:    im.metric,
		BestTrial: best,
		BestScore: -best.Loss,
		BestModel: bestModel,
		Trials:    trials,
		Budget:    budget,
		Elapsed:   time.Since(start),
	}

	im.logger.Info("search finished",
		log.MetricNameKey, im.metric,
		log.FamilyKey, best.Family,
		log.ScoreKey, result.BestScore,
		log.DurationSecondsKey, result.Elapsed.Seconds())

	return result, runErr
}

// scaledBudget applies the dataset-size scaling: datasets over 50 MB get a
// quarter of the budget, over 5 MB a third.
func (im *Imba) scaledBudget(rows, cols int) int {
	sizeBytes := rows * cols * 8
	sizeMB := float64(sizeBytes) / (1024 * 1024)

	budget := im.trialBudget
	if sizeMB > 50 {
		budget /= 4
	} else if sizeMB > 5 {
		budget /= 3
	}
	if budget < 1 {
		budget = 1
	}

	im.logger.Info("dataset measured",
		log.DataSizeKey, sizeBytes,
		log.TrialBudgetKey, budget)
	return budget
}

// objective evaluates one configuration with stratified cross-validation.
// The loss is the negated mean score; a failure on any fold fails the
// whole trial.
func (im *Imba) objective(X, y mat.Matrix) Objective {
	return func(ctx context.Context, gen Generator, params Params, seed int64) (float64, error) {
		var loss float64
		err := scierr.SafeExecute("automl.trial", func() error {
			splitter := modelselection.NewStratifiedKFold(im.cvSplits, true, im.seed)
			factory := func() model.Classifier {
				return gen.Build(params, seed)
			}
			scores, err := modelselection.CrossValScore(ctx, factory, X, y, splitter, im.scorer)
			if err != nil {
				return err
			}
			loss = -modelselection.MeanScore(scores)
			return nil
		})
		if err != nil {
			return 0, err
		}
		return loss, nil
	}
}

// bestTrial returns the successful trial with the lowest loss.
func bestTrial(trials []Trial) (Trial, bool) {
	var best Trial
	found := false
	for _, t := range trials {
		if t.Failed() {
			continue
		}
		if !found || t.Loss < best.Loss {
			best = t
			found = true
		}
	}
	return best, found
}

// generatorByName resolves a family name back to its generator.
func (im *Imba) generatorByName(name string) (Generator, bool) {
	for _, gen := range im.generators {
		if gen.Name == name {
			return gen, true
		}
	}
	return Generator{}, false
}
