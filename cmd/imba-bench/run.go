package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"

	"github.com/AxiomAlive/imba-automl/automl"
	"github.com/AxiomAlive/imba-automl/dataset"
	"github.com/AxiomAlive/imba-automl/internal/bench"
	"github.com/AxiomAlive/imba-automl/metrics"
	"github.com/AxiomAlive/imba-automl/modelselection"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the search on a CSV dataset and store the result",
		RunE:  runBenchmark,
	}

	cmd.Flags().String("dataset", "", "path to the CSV dataset (required)")
	cmd.Flags().String("target", "class", "name of the target column")
	cmd.Flags().String("metric", "f1", "metric to optimize (f1, balanced_accuracy, average_precision, recall, precision)")
	cmd.Flags().Int("budget", 60, "base trial budget before dataset-size scaling")
	cmd.Flags().Int64("seed", 42, "random seed")
	cmd.Flags().Float64("holdout", 0.2, "holdout fraction for the final evaluation")
	cmd.Flags().String("plot", "", "write a score-vs-trial PNG to this path")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	datasetPath, _ := flags.GetString("dataset")
	target, _ := flags.GetString("target")
	metric, _ := flags.GetString("metric")
	budget, _ := flags.GetInt("budget")
	seed, _ := flags.GetInt64("seed")
	holdout, _ := flags.GetFloat64("holdout")
	plotPath, _ := flags.GetString("plot")

	ds, err := dataset.LoadCSV(datasetPath, target)
	if err != nil {
		return err
	}
	nNeg, nPos, ratio := ds.ClassBalance()
	fmt.Fprintf(os.Stderr, "loaded %d samples, %d features (%d:%d, imbalance %.1f, positive label %q)\n",
		ds.NumSamples(), ds.NumFeatures(), nNeg, nPos, ratio, ds.PositiveLabel)

	trainIdx, testIdx := modelselection.TrainTestSplit(ds.X, ds.Y, holdout, seed)
	train := ds.Subset(trainIdx)
	test := ds.Subset(testIdx)

	bar := progressbar.NewOptions(budget,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("searching"),
	)

	im, err := automl.New(metric,
		automl.WithTrialBudget(budget),
		automl.WithSeed(seed),
		automl.WithProgress(func(completed, total int) {
			bar.ChangeMax(total)
			_ = bar.Set(completed)
		}),
	)
	if err != nil {
		return err
	}

	startedAt := time.Now()
	result, err := im.Fit(cmd.Context(), train.X, train.Y)
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	holdoutScore, err := evaluateHoldout(result, metric, test.X, test.Y)
	if err != nil {
		return err
	}

	rec := bench.RunRecord{
		StartedAt:    startedAt,
		Dataset:      datasetPath,
		Target:       target,
		Metric:       metric,
		Seed:         seed,
		Budget:       result.Budget,
		BestFamily:   result.BestTrial.Family,
		BestScore:    result.BestScore,
		HoldoutScore: holdoutScore,
		ElapsedSec:   result.Elapsed.Seconds(),
		Host:         bench.CollectHostInfo(),
	}

	store, err := bench.NewStore(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runID, err := store.SaveRun(cmd.Context(), rec, result.Trials)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "stored run %d in %s\n", runID, viper.GetString("db"))

	if plotPath != "" {
		if err := bench.PlotScores(result.Trials, metric, plotPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote plot to %s\n", plotPath)
	}

	return bench.WriteReport(os.Stdout, rec, result)
}

// evaluateHoldout scores the refit best model on the holdout split.
func evaluateHoldout(result *automl.Result, metric string, X, y mat.Matrix) (float64, error) {
	scorer, err := metrics.ScorerByName(metric)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	yTrue := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yTrue.SetVec(i, y.At(i, 0))
	}

	yScore := mat.NewVecDense(rows, nil)
	if scorer.NeedsProba {
		proba, err := result.BestModel.PredictProba(X)
		if err != nil {
			return 0, err
		}
		for i := 0; i < rows; i++ {
			yScore.SetVec(i, proba.At(i, 1))
		}
	} else {
		pred, err := result.BestModel.Predict(X)
		if err != nil {
			return 0, err
		}
		for i := 0; i < rows; i++ {
			yScore.SetVec(i, pred.At(i, 0))
		}
	}

	return scorer.Score(yTrue, yScore)
}
