package bench

import (
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/AxiomAlive/imba-automl/automl"
	scierr "github.com/AxiomAlive/imba-automl/pkg/errors"
)

// PlotScores renders the per-trial score and the best-so-far curve to a
// PNG file. Failed trials are skipped.
func PlotScores(trials []automl.Trial, metric, path string) error {
	p := plot.New()
	p.Title.Text = "Search progress"
	p.X.Label.Text = "trial"
	p.Y.Label.Text = metric

	ordered := make([]automl.Trial, len(trials))
	copy(ordered, trials)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var points plotter.XYs
	var bestCurve plotter.XYs
	best := -1.0
	for _, trial := range ordered {
		if trial.Failed() {
			continue
		}
		score := -trial.Loss
		points = append(points, plotter.XY{X: float64(trial.ID), Y: score})
		if score > best {
			best = score
		}
		bestCurve = append(bestCurve, plotter.XY{X: float64(trial.ID), Y: best})
	}
	if len(points) == 0 {
		return scierr.New("no successful trials to plot")
	}

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return scierr.Wrap(err, "building trial scatter")
	}
	line, err := plotter.NewLine(bestCurve)
	if err != nil {
		return scierr.Wrap(err, "building best-so-far line")
	}

	p.Add(scatter, line)
	p.Legend.Add("trial score", scatter)
	p.Legend.Add("best so far", line)
	p.Legend.Top = false

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return scierr.Wrapf(err, "saving plot to %s", path)
	}
	return nil
}
