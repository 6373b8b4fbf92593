package glm

import (
	"bytes"
	"fmt"
	"math"
	"text/tabwriter"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/scistat/pkg/errors"
)

// FitResult はポアソン回帰の推定結果
//
// Converged が false の場合、Coefficients は最適解とは限らず StdErrors は
// 信頼できない。呼び出し側は必ず Converged を確認すること。
type FitResult struct {
	// Coefficients は推定された係数 β̂（デザイン行列の列順）
	Coefficients []float64

	// StdErrors は sqrt(diag(H⁻¹))。ヘッセ行列が正定値でない場合は NaN
	StdErrors []float64

	// Converged は最適化が停止条件を満たして終了したかどうか
	Converged bool

	// NegLogLikelihood は Coefficients における負の対数尤度
	NegLogLikelihood float64

	// Covariance は H⁻¹。ヘッセ行列が正定値でない場合は nil
	Covariance *mat.SymDense

	Iterations      int
	FuncEvaluations int

	// Status は最適化器の終了状態（例: "GradientThreshold"）
	Status string

	// OverflowEvents は目的関数がペナルティ値に置き換えられた回数
	OverflowEvents int

	NumObs    int
	NumParams int

	FeatureNames []string
}

// ZValues は各係数の Wald 統計量 β̂ⱼ/SEⱼ を返す
func (r *FitResult) ZValues() []float64 {
	z := make([]float64, len(r.Coefficients))
	for j, b := range r.Coefficients {
		z[j] = b / r.StdErrors[j]
	}
	return z
}

// PValues は標準正規分布に基づく両側p値を返す
func (r *FitResult) PValues() []float64 {
	pv := make([]float64, len(r.Coefficients))
	for j, z := range r.ZValues() {
		pv[j] = 2 * distuv.UnitNormal.Survival(math.Abs(z))
	}
	return pv
}

// ConfInt は各係数の 1-alpha 信頼区間を返す
func (r *FitResult) ConfInt(alpha float64) (lower, upper []float64, err error) {
	if !(alpha > 0 && alpha < 1) {
		return nil, nil, errors.NewInvalidParameterError("alpha", "must be in (0, 1)", alpha)
	}
	q := distuv.UnitNormal.Quantile(1 - alpha/2)
	lower = make([]float64, len(r.Coefficients))
	upper = make([]float64, len(r.Coefficients))
	for j, b := range r.Coefficients {
		lower[j] = b - q*r.StdErrors[j]
		upper[j] = b + q*r.StdErrors[j]
	}
	return lower, upper, nil
}

// LogLikelihood は最大対数尤度を返す
func (r *FitResult) LogLikelihood() float64 {
	return -r.NegLogLikelihood
}

// AIC は赤池情報量規準 2k + 2NLL
func (r *FitResult) AIC() float64 {
	return 2*float64(r.NumParams) + 2*r.NegLogLikelihood
}

// BIC はベイズ情報量規準 k·ln(n) + 2NLL
func (r *FitResult) BIC() float64 {
	return float64(r.NumParams)*math.Log(float64(r.NumObs)) + 2*r.NegLogLikelihood
}

// Summary は係数表をテキストで返す。names が nil の場合は FeatureNames、
// それもなければ x0, x1, ... を使う。
func (r *FitResult) Summary(names []string) string {
	if names == nil {
		names = r.FeatureNames
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Poisson regression  n=%d  p=%d  converged=%t (%s)\n",
		r.NumObs, r.NumParams, r.Converged, r.Status)
	fmt.Fprintf(&buf, "log-likelihood=%.4f  AIC=%.4f  BIC=%.4f\n\n",
		r.LogLikelihood(), r.AIC(), r.BIC())

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "variable\tcoef\tstd err\tz\tP>|z|\t")
	z := r.ZValues()
	pv := r.PValues()
	for j, b := range r.Coefficients {
		name := fmt.Sprintf("x%d", j)
		if j < len(names) {
			name = names[j]
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.3f\t%.4f\t\n", name, b, r.StdErrors[j], z[j], pv[j])
	}
	tw.Flush()
	return buf.String()
}
