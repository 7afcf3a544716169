// Package log defines standard attribute keys for AutoML operations.
//
// Using these keys consistently enables filtering of search logs by trial,
// model family, dataset shape and metric across the whole pipeline.
package log

// Model and operation context.
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "BalancedRandomForest", "GradientBoosting", "MLPClassifier"
	ModelNameKey = "model.name"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "automl.tuner", "ensemble", "modelselection"
	ComponentKey = "ml.component"

	// OperationKey specifies the machine learning operation being performed.
	// Standard values: "fit", "predict", "cross_validate", "search"
	OperationKey = "ml.operation"
)

// Search context.
const (
	// TrialIDKey identifies a single trial within a search.
	TrialIDKey = "search.trial_id"

	// FamilyKey records the model family a trial was sampled from.
	FamilyKey = "search.family"

	// MetricNameKey records the optimization metric of the search.
	MetricNameKey = "search.metric"

	// TrialBudgetKey records the number of trials the search will run.
	TrialBudgetKey = "search.trial_budget"

	// LossKey records the trial loss (negated CV score).
	LossKey = "search.loss"

	// TrialStatusKey records the terminal status of a trial ("ok", "failed").
	TrialStatusKey = "search.trial_status"
)

// Data shape and characteristics.
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// DataSizeKey indicates the memory size of the data in bytes.
	DataSizeKey = "data.size_bytes"

	// ImbalanceRatioKey records majority/minority class count ratio.
	ImbalanceRatioKey = "data.imbalance_ratio"
)

// Performance.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// DurationSecondsKey records the execution time in seconds for longer operations.
	DurationSecondsKey = "perf.duration_seconds"

	// ScoreKey records a metric score for evaluation operations.
	ScoreKey = "metrics.score"
)

// Configuration.
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit           = "fit"
	OperationPredict       = "predict"
	OperationCrossValidate = "cross_validate"
	OperationSearch        = "search"
)
