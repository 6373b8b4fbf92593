package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistat/pkg/errors"
)

// MeanPoissonDeviance は平均ポアソン逸脱度を計算する
//
//	D = (2/n) Σ [ yᵢ log(yᵢ/μᵢ) − (yᵢ − μᵢ) ]
//
// yTrue は非負、yPred は正でなければならない。yᵢ=0 の項は μᵢ のみとなる。
func MeanPoissonDeviance(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MeanPoissonDeviance", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	dev, err := poissonDeviance("MeanPoissonDeviance", yTrue, yPred, n)
	if err != nil {
		return 0, err
	}
	return dev / float64(n), nil
}

// D2PoissonScore はポアソン逸脱度で測った説明率を計算する
//
//	D² = 1 − D(y, μ) / D(y, ȳ)
//
// 帰無モデルは全観測の平均 ȳ を予測する。R² のポアソン版で、完全な予測で1になる。
func D2PoissonScore(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("D2PoissonScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if n < 2 {
		errors.Warn(errors.NewUndefinedMetricWarning("D2PoissonScore", "fewer than two samples", math.NaN()))
		return math.NaN(), nil
	}

	dev, err := poissonDeviance("D2PoissonScore", yTrue, yPred, n)
	if err != nil {
		return 0, err
	}

	mean := mat.Sum(yTrue) / float64(n)
	null := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		null.SetVec(i, mean)
	}
	if mean == 0 {
		// 全て0の応答では帰無逸脱度が0
		return explained("D2PoissonScore", dev, 0), nil
	}
	nullDev, err := poissonDeviance("D2PoissonScore", yTrue, null, n)
	if err != nil {
		return 0, err
	}
	return explained("D2PoissonScore", dev, nullDev), nil
}

func poissonDeviance(op string, yTrue, yPred *mat.VecDense, n int) (float64, error) {
	var sum float64
	for i := 0; i < n; i++ {
		y, mu := yTrue.AtVec(i), yPred.AtVec(i)
		if y < 0 || !errors.IsFinite(y) {
			return 0, errors.NewValueError(op, fmt.Sprintf("y_true must be non-negative and finite, got %v at index %d", y, i))
		}
		if !(mu > 0) || math.IsInf(mu, 1) {
			return 0, errors.NewValueError(op, fmt.Sprintf("y_pred must be positive and finite, got %v at index %d", mu, i))
		}
		if y > 0 {
			sum += y * math.Log(y/mu)
		}
		sum -= y - mu
	}
	return 2 * sum, nil
}
