package metrics

import (
	"sort"

	"github.com/AxiomAlive/imba-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// validateScorePair はスコアベース指標の入力を検証する
func validateScorePair(op string, yTrue, yScore *mat.VecDense) (int, error) {
	if yTrue == nil || yScore == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yScore.Len() != n {
		return 0, errors.NewDimensionError(op, n, yScore.Len(), 0)
	}
	for i := 0; i < n; i++ {
		if v := yTrue.AtVec(i); v != 0 && v != 1 {
			return 0, errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return n, nil
}

// AUC はROC曲線下面積をランク統計（Mann-Whitney U）で計算する
// 同順位のスコアは0.5として扱う。片方のクラスしか存在しない場合は
// UndefinedMetricWarningを発行して0.5を返す
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := validateScorePair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}

	nPos, nNeg := 0, 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present", 0.5))
		return 0.5, nil
	}

	// スコア昇順のランクを計算（同順位は平均ランク）
	type scored struct {
		score float64
		label float64
	}
	items := make([]scored, n)
	for i := 0; i < n; i++ {
		items[i] = scored{score: yScore.AtVec(i), label: yTrue.AtVec(i)}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].score < items[j].score })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && items[j].score == items[i].score {
			j++
		}
		// [i, j) は同一スコア。平均ランクを割り当てる
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		i = j
	}

	sumPosRanks := 0.0
	for i := 0; i < n; i++ {
		if items[i].label == 1 {
			sumPosRanks += ranks[i]
		}
	}

	u := sumPosRanks - float64(nPos)*float64(nPos+1)/2.0
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AveragePrecision はPR曲線下面積（AP）をステップ補間で計算する
// AP = Σ (R_k - R_{k-1}) * P_k （スコア降順）
func AveragePrecision(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := validateScorePair("AveragePrecision", yTrue, yScore)
	if err != nil {
		return 0, err
	}

	nPos := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
		}
	}
	if nPos == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("average_precision", "no positive samples", 0))
		return 0, nil
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool {
		return yScore.AtVec(indices[a]) > yScore.AtVec(indices[b])
	})

	ap := 0.0
	tp := 0
	prevRecall := 0.0
	for k, idx := range indices {
		if yTrue.AtVec(idx) == 1 {
			tp++
			precision := float64(tp) / float64(k+1)
			recall := float64(tp) / float64(nPos)
			ap += (recall - prevRecall) * precision
			prevRecall = recall
		}
	}
	return ap, nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	tVec, sVec, err := matrixPairToVecs("AUCMatrix", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	return AUC(tVec, sVec)
}
