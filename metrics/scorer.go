package metrics

import (
	"github.com/AxiomAlive/imba-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Scorer evaluates predictions against ground truth with a named metric.
// Score-based metrics (average_precision) consume probability scores for the
// positive class; label-based metrics consume hard 0/1 predictions.
type Scorer struct {
	Name       string
	NeedsProba bool
	fn         func(yTrue, y *mat.VecDense) (float64, error)
}

// Score applies the metric. For NeedsProba scorers y holds positive-class
// probabilities, otherwise predicted labels.
func (s Scorer) Score(yTrue, y *mat.VecDense) (float64, error) {
	return s.fn(yTrue, y)
}

// ScorerByName resolves a metric name to a Scorer. Supported names are
// f1, balanced_accuracy, average_precision, recall and precision.
func ScorerByName(name string) (Scorer, error) {
	switch name {
	case "f1":
		return Scorer{Name: name, fn: F1}, nil
	case "balanced_accuracy":
		return Scorer{Name: name, fn: BalancedAccuracy}, nil
	case "average_precision":
		return Scorer{Name: name, NeedsProba: true, fn: AveragePrecision}, nil
	case "recall":
		return Scorer{Name: name, fn: Recall}, nil
	case "precision":
		return Scorer{Name: name, fn: Precision}, nil
	default:
		return Scorer{}, errors.NewValidationError("metric", "unsupported metric name", name)
	}
}

// SupportedMetrics lists the metric names ScorerByName accepts.
func SupportedMetrics() []string {
	return []string{"f1", "balanced_accuracy", "average_precision", "recall", "precision"}
}
