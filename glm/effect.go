package glm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistat/pkg/errors"
)

// TreatmentEffect は反実仮想による平均処置効果を計算する。
//
// X の column 列を全行 v0 に置き換えた場合と v1 に置き換えた場合の
// 予測平均 exp(Xβ) の標本平均の差を返す。X 自体は変更しない。
//
//	effect := mean(exp(X₁β)) − mean(exp(X₀β))
func TreatmentEffect(coef []float64, X mat.Matrix, column int, v0, v1 float64) (float64, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return 0, errors.NewModelError("TreatmentEffect", "empty data", errors.ErrEmptyData)
	}
	if len(coef) != c {
		return 0, errors.NewDimensionError("TreatmentEffect", len(coef), c, 1)
	}
	if column < 0 || column >= c {
		return 0, errors.NewInvalidParameterError("column", "out of range", column)
	}

	// η = Xβ から処置列の寄与を差し引いた部分は共通
	eta := mat.NewVecDense(r, nil)
	eta.MulVec(X, mat.NewVecDense(c, coef))
	base := eta.RawVector().Data
	b := coef[column]

	mu0 := make([]float64, r)
	mu1 := make([]float64, r)
	for i := range base {
		rest := base[i] - X.At(i, column)*b
		mu0[i] = math.Exp(rest + v0*b)
		mu1[i] = math.Exp(rest + v1*b)
	}
	return (floats.Sum(mu1) - floats.Sum(mu0)) / float64(r), nil
}
