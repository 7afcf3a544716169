package metrics

import (
	"math"

	"github.com/AxiomAlive/imba-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ConfusionCounts は二値分類の混同行列の要素を保持する
type ConfusionCounts struct {
	TP int // 真陽性
	FP int // 偽陽性
	TN int // 真陰性
	FN int // 偽陰性
}

// validateBinaryPair はラベルベクトルの組を検証する共通ヘルパー
func validateBinaryPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	for i := 0; i < n; i++ {
		if v := yTrue.AtVec(i); v != 0 && v != 1 {
			return 0, errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return n, nil
}

// ConfusionMatrix は二値ラベルの混同行列を計算する
// 予測側も0/1ラベルである必要がある
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (ConfusionCounts, error) {
	n, err := validateBinaryPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return ConfusionCounts{}, err
	}

	var c ConfusionCounts
	for i := 0; i < n; i++ {
		truth := yTrue.AtVec(i)
		pred := yPred.AtVec(i)
		if pred != 0 && pred != 1 {
			return ConfusionCounts{}, errors.NewValueError("ConfusionMatrix", "predictions must be binary (0 or 1)")
		}
		switch {
		case truth == 1 && pred == 1:
			c.TP++
		case truth == 0 && pred == 1:
			c.FP++
		case truth == 0 && pred == 0:
			c.TN++
		default:
			c.FN++
		}
	}
	return c, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	total := c.TP + c.FP + c.TN + c.FN
	return float64(c.TP+c.TN) / float64(total), nil
}

// Precision は適合率 TP/(TP+FP) を計算する
// 陽性予測が一つもない場合はUndefinedMetricWarningを発行して0を返す
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if c.TP+c.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted positives", 0))
		return 0, nil
	}
	return float64(c.TP) / float64(c.TP+c.FP), nil
}

// Recall は再現率 TP/(TP+FN) を計算する
// 陽性サンプルが一つもない場合はUndefinedMetricWarningを発行して0を返す
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if c.TP+c.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no positive samples", 0))
		return 0, nil
	}
	return float64(c.TP) / float64(c.TP+c.FN), nil
}

// F1 はF1スコア（適合率と再現率の調和平均）を計算する
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	return FBeta(yTrue, yPred, 1.0)
}

// FBeta は重み付きF値を計算する
// beta > 1 は再現率を、beta < 1 は適合率を重視する
func FBeta(yTrue, yPred *mat.VecDense, beta float64) (float64, error) {
	if beta <= 0 {
		return 0, errors.NewValueError("FBeta", "beta must be positive")
	}
	p, err := Precision(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	r, err := Recall(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	b2 := beta * beta
	denom := b2*p + r
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f_beta", "precision and recall are both zero", 0))
		return 0, nil
	}
	return (1 + b2) * p * r / denom, nil
}

// BalancedAccuracy は感度と特異度の算術平均を計算する
// 不均衡データにおけるAccuracyの代替指標
func BalancedAccuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sensitivity, specificity float64
	if c.TP+c.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("balanced_accuracy", "no positive samples", 0))
	} else {
		sensitivity = float64(c.TP) / float64(c.TP+c.FN)
	}
	if c.TN+c.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("balanced_accuracy", "no negative samples", 0))
	} else {
		specificity = float64(c.TN) / float64(c.TN+c.FP)
	}
	return (sensitivity + specificity) / 2, nil
}

// GMean は感度と特異度の幾何平均を計算する
func GMean(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sensitivity, specificity float64
	if c.TP+c.FN > 0 {
		sensitivity = float64(c.TP) / float64(c.TP+c.FN)
	}
	if c.TN+c.FP > 0 {
		specificity = float64(c.TN) / float64(c.TN+c.FP)
	}
	return math.Sqrt(sensitivity * specificity), nil
}

// AccuracyMatrix は行列形式の入力に対してAccuracyを計算する
// 複数列の場合は先頭列をラベルとして使用する
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	tVec, pVec, err := matrixPairToVecs("AccuracyMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(tVec, pVec)
}

// F1Matrix は行列形式の入力に対してF1を計算する
func F1Matrix(yTrue, yPred mat.Matrix) (float64, error) {
	tVec, pVec, err := matrixPairToVecs("F1Matrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return F1(tVec, pVec)
}

// matrixPairToVecs は行列の先頭列をVecDenseへ変換する
func matrixPairToVecs(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 || rPred == 0 || cPred == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}

	tVec := mat.NewVecDense(rTrue, nil)
	pVec := mat.NewVecDense(rPred, nil)
	for i := 0; i < rTrue; i++ {
		tVec.SetVec(i, yTrue.At(i, 0))
		pVec.SetVec(i, yPred.At(i, 0))
	}
	return tVec, pVec, nil
}
