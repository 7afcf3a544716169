package bench

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/AxiomAlive/imba-automl/automl"
)

// WriteReport prints a human-readable summary of one run.
func WriteReport(w io.Writer, rec RunRecord, result *automl.Result) error {
	fmt.Fprintf(w, "\nDataset:        %s (target %q)\n", rec.Dataset, rec.Target)
	fmt.Fprintf(w, "Metric:         %s\n", rec.Metric)
	fmt.Fprintf(w, "Trials:         %d (%d failed)\n", len(result.Trials), result.FailedTrials())
	fmt.Fprintf(w, "Best family:    %s\n", result.BestTrial.Family)
	fmt.Fprintf(w, "Best CV score:  %.4f\n", result.BestScore)
	fmt.Fprintf(w, "Holdout score:  %.4f\n", rec.HoldoutScore)
	fmt.Fprintf(w, "Elapsed:        %.1fs\n\n", rec.ElapsedSec)

	fmt.Fprintf(w, "Best configuration:\n")
	names := make([]string, 0, len(result.BestTrial.Params))
	for name := range result.BestTrial.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %v\n", name, result.BestTrial.Params[name])
	}

	fmt.Fprintf(w, "\nPer-family results:\n")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  family\ttrials\tfailed\tbest score")
	for _, row := range familySummary(result.Trials) {
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%s\n", row.family, row.trials, row.failed, row.bestScore)
	}
	return tw.Flush()
}

type familyRow struct {
	family    string
	trials    int
	failed    int
	bestScore string
}

// familySummary aggregates trials per family, sorted by best score.
func familySummary(trials []automl.Trial) []familyRow {
	type agg struct {
		trials int
		failed int
		best   float64
		any    bool
	}
	byFamily := make(map[string]*agg)
	for _, trial := range trials {
		a, ok := byFamily[trial.Family]
		if !ok {
			a = &agg{}
			byFamily[trial.Family] = a
		}
		a.trials++
		if trial.Failed() {
			a.failed++
			continue
		}
		score := -trial.Loss
		if !a.any || score > a.best {
			a.best = score
			a.any = true
		}
	}

	rows := make([]familyRow, 0, len(byFamily))
	for family, a := range byFamily {
		row := familyRow{family: family, trials: a.trials, failed: a.failed, bestScore: "-"}
		if a.any {
			row.bestScore = fmt.Sprintf("%.4f", a.best)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].bestScore == rows[j].bestScore {
			return rows[i].family < rows[j].family
		}
		return rows[i].bestScore > rows[j].bestScore
	})
	return rows
}
