package automl

import (
	"github.com/AxiomAlive/imba-automl/core/model"
	"github.com/AxiomAlive/imba-automl/ensemble"
	"github.com/AxiomAlive/imba-automl/neural"
	"github.com/AxiomAlive/imba-automl/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// Generator describes one model family: its hyperparameter space and a
// factory turning a sampled configuration into an unfitted classifier.
type Generator struct {
	// Name identifies the family in results and logs.
	Name string
	// Space is the family's hyperparameter search space.
	Space Space
	// Build constructs a classifier from sampled parameters. The seed
	// must drive all model-internal randomness.
	Build func(p Params, seed int64) model.Classifier
}

// DefaultGenerators returns the seven family generators the search
/// considers: depth-wise and leaf-wise gradient boosting, extra trees, the
// balanced forest and bagging ensembles, cost-sensitive boosting and an
// MLP.
func DefaultGenerators() []Generator {
	return []Generator{
		gradientBoostingDepthWiseGenerator(),
		adaCostGenerator(),
		balancedRandomForestGenerator(),
		balancedBaggingGenerator(),
		gradientBoostingLeafWiseGenerator(),
		extraTreesGenerator(),
		mlpGenerator(),
	}
}

func gradientBoostingDepthWiseGenerator() Generator {
	return Generator{
		Name: "gbdt_depthwise",
		Space: Space{
			{Name: "num_iterations", Kind: QUniform, Low: 50, High: 500, Q: 10},
			{Name: "learning_rate", Kind: LogUniform, Low: 0.01, High: 0.3},
			{Name: "max_depth", Kind: QUniform, Low: 2, High: 10, Q: 1},
			{Name: "min_data_in_leaf", Kind: QUniform, Low: 1, High: 30, Q: 1},
			{Name: "lambda_l2", Kind: LogUniform, Low: 1e-3, High: 10},
			{Name: "bagging_fraction", Kind: Uniform, Low: 0.5, High: 1.0},
			{Name: "feature_fraction", Kind: Uniform, Low: 0.5, High: 1.0},
		},
		Build: func(p Params, seed int64) model.Classifier {
			return ensemble.NewGradientBoosting(ensemble.BoostingParams{
				NumIterations:   p.Int("num_iterations"),
				LearningRate:    p.Float("learning_rate"),
				MaxDepth:        p.Int("max_depth"),
				MinDataInLeaf:   p.Int("min_data_in_leaf"),
				Lambda:          p.Float("lambda_l2"),
				BaggingFraction: p.Float("bagging_fraction"),
				FeatureFraction: p.Float("feature_fraction"),
				Strategy:        ensemble.DepthWise,
				Seed:            seed,
			})
		},
	}
}

func gradientBoostingLeafWiseGenerator() Generator {
	return Generator{
		Name: "gbdt_leafwise",
		Space: Space{
			{Name: "num_iterations", Kind: QUniform, Low: 50, High: 500, Q: 10},
			{Name: "learning_rate", Kind: LogUniform, Low: 0.01, High: 0.3},
			{Name: "num_leaves", Kind: QUniform, Low: 4, High: 128, Q: 1},
			{Name: "min_data_in_leaf", Kind: QUniform, Low: 1, High: 30, Q: 1},
			{Name: "lambda_l2", Kind: LogUniform, Low: 1e-3, High: 10},
			{Name: "bagging_fraction", Kind: Uniform, Low: 0.5, High: 1.0},
			{Name: "feature_fraction", Kind: Uniform, Low: 0.5, High: 1.0},
		},
		Build: func(p Params, seed int64) model.Classifier {
			return ensemble.NewGradientBoosting(ensemble.BoostingParams{
				NumIterations:   p.Int("num_iterations"),
				LearningRate:    p.Float("learning_rate"),
				NumLeaves:       p.Int("num_leaves"),
				MinDataInLeaf:   p.Int("min_data_in_leaf"),
				Lambda:          p.Float("lambda_l2"),
				BaggingFraction: p.Float("bagging_fraction"),
				FeatureFraction: p.Float("feature_fraction"),
				Strategy:        ensemble.LeafWise,
				Seed:            seed,
			})
		},
	}
}

func extraTreesGenerator() Generator {
	return Generator{
		Name: "extra_trees",
		Space: Space{
			{Name: "n_estimators", Kind: QUniform, Low: 50, High: 500, Q: 10},
			{Name: "max_depth", Kind: QUniform, Low: 0, High: 30, Q: 1},
			{Name: "min_samples_leaf", Kind: QUniform, Low: 1, High: 20, Q: 1},
			{Name: "bootstrap", Kind: Choice, NChoices: 2},
		},
		Build: func(p Params, seed int64) model.Classifier {
			config := ensemble.DefaultForestConfig()
			config.NEstimators = p.Int("n_estimators")
			config.MaxDepth = p.Int("max_depth")
			config.MinSamplesLeaf = p.Int("min_samples_leaf")
			config.Bootstrap = p.Int("bootstrap") == 1
			config.Seed = seed
			return ensemble.NewExtraTrees(config)
		},
	}
}

func balancedRandomForestGenerator() Generator {
	return Generator{
		Name: "balanced_random_forest",
		Space: Space{
			{Name: "n_estimators", Kind: QUniform, Low: 50, High: 500, Q: 10},
			{Name: "max_depth", Kind: QUniform, Low: 0, High: 30, Q: 1},
			{Name: "min_samples_leaf", Kind: QUniform, Low: 1, High: 20, Q: 1},
		},
		Build: func(p Params, seed int64) model.Classifier {
			config := ensemble.DefaultForestConfig()
			config.NEstimators = p.Int("n_estimators")
			config.MaxDepth = p.Int("max_depth")
			config.MinSamplesLeaf = p.Int("min_samples_leaf")
			config.Seed = seed
			return ensemble.NewBalancedRandomForest(config)
		},
	}
}

func balancedBaggingGenerator() Generator {
	return Generator{
		Name: "balanced_bagging",
		Space: Space{
			{Name: "n_estimators", Kind: QUniform, Low: 5, High: 100, Q: 5},
			{Name: "sampling_ratio", Kind: Uniform, Low: 0.5, High: 1.0},
		},
		Build: func(p Params, seed int64) model.Classifier {
			bb := ensemble.NewBalancedBagging(p.Int("n_estimators"), seed)
			bb.SamplingRatio = p.Float("sampling_ratio")
			return bb
		},
	}
}

func adaCostGenerator() Generator {
	return Generator{
		Name: "adacost",
		Space: Space{
			{Name: "n_estimators", Kind: QUniform, Low: 20, High: 300, Q: 10},
			{Name: "learning_rate", Kind: LogUniform, Low: 0.01, High: 2.0},
			{Name: "max_depth", Kind: QUniform, Low: 1, High: 4, Q: 1},
		},
		Build: func(p Params, seed int64) model.Classifier {
			ac := ensemble.NewAdaCost(p.Int("n_estimators"), p.Float("learning_rate"), seed)
			ac.MaxDepth = p.Int("max_depth")
			return ac
		},
	}
}

// mlpHiddenLayouts are the hidden layer shapes the MLP family chooses
// between.
var mlpHiddenLayouts = [][]int{
	{50},
	{100},
	{50, 50},
	{100, 50},
}

func mlpGenerator() Generator {
	return Generator{
		Name: "mlp",
		Space: Space{
			{Name: "hidden_layout", Kind: Choice, NChoices: len(mlpHiddenLayouts)},
			{Name: "learning_rate", Kind: LogUniform, Low: 1e-4, High: 1e-2},
			{Name: "alpha", Kind: LogUniform, Low: 1e-6, High: 1e-2},
			{Name: "max_iter", Kind: QUniform, Low: 100, High: 400, Q: 50},
		},
		Build: func(p Params, seed int64) model.Classifier {
			layout := mlpHiddenLayouts[p.Int("hidden_layout")]
			clf := neural.NewMLPClassifier(layout, seed)
			clf.LearningRate = p.Float("learning_rate")
			clf.Alpha = p.Float("alpha")
			clf.MaxIter = p.Int("max_iter")
			// The network is sensitive to feature scale.
			return &scaledClassifier{
				scaler: preprocessing.NewStandardScalerDefault(),
				inner:  clf,
			}
		},
	}
}

// scaledClassifier standardizes the features before delegating to the
// wrapped classifier.
type scaledClassifier struct {
	scaler *preprocessing.StandardScaler
	inner  model.Classifier
}

func (s *scaledClassifier) Fit(X, y mat.Matrix) error {
	scaled, err := s.scaler.FitTransform(X)
	if err != nil {
		return err
	}
	return s.inner.Fit(scaled, y)
}

func (s *scaledClassifier) IsFitted() bool {
	return s.inner.IsFitted()
}

func (s *scaledClassifier) Classes() []int {
	return s.inner.Classes()
}

func (s *scaledClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	scaled, err := s.scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return s.inner.Predict(scaled)
}

func (s *scaledClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scaled, err := s.scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return s.inner.PredictProba(scaled)
}
