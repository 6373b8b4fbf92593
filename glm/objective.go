package glm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistat/pkg/errors"
	"github.com/YuminosukeSato/scistat/pkg/log"
)

// 線形予測子のクリッピング範囲の既定値。exp(20)≈4.9e8 なので
// 数百万件の観測を合計してもfloat64の範囲に収まる。
const (
	DefaultEtaMin  = -20.0
	DefaultEtaMax  = 20.0
	DefaultPenalty = 1e10
)

// NegLogLikelihood はポアソン回帰の負の対数尤度を返す
//
//	NLL(β) = -Σ [ yᵢηᵢ − exp(ηᵢ) − lgamma(yᵢ+1) ],  η = Xβ
//
// ηᵢ は [DefaultEtaMin, DefaultEtaMax] にクリップされる。
// 入力の形状が一致しない場合はgonumがpanicする。
func NegLogLikelihood(beta []float64, X mat.Matrix, y []float64) float64 {
	eta := linearPredictor(beta, X)
	return nll(eta, y, nil, DefaultEtaMin, DefaultEtaMax)
}

// NegLogLikelihoodGrad は負の対数尤度の勾配 -Xᵀ(y − μ) を grad に書き込む。
// クリップされた観測は勾配に寄与しない。
func NegLogLikelihoodGrad(grad, beta []float64, X mat.Matrix, y []float64) {
	eta := linearPredictor(beta, X)
	nllGrad(grad, eta, X, y, DefaultEtaMin, DefaultEtaMax)
}

// NegLogLikelihoodHess は負の対数尤度のヘッセ行列 XᵀWX (W = diag(μ)) を hess に書き込む。
// hess は空か p×p でなければならない。
func NegLogLikelihoodHess(hess *mat.SymDense, beta []float64, X mat.Matrix, y []float64) {
	eta := linearPredictor(beta, X)
	nllHess(hess, eta, X, DefaultEtaMin, DefaultEtaMax)
}

func linearPredictor(beta []float64, X mat.Matrix) []float64 {
	r, _ := X.Dims()
	eta := mat.NewVecDense(r, nil)
	eta.MulVec(X, mat.NewVecDense(len(beta), beta))
	return eta.RawVector().Data
}

// nll は線形予測子から負の対数尤度を計算する。lgy が nil の場合は lgamma をその場で計算する
func nll(eta, y, lgy []float64, lo, hi float64) float64 {
	var ll float64
	for i, e := range eta {
		e = errors.ClipValue(e, lo, hi)
		var lf float64
		if lgy != nil {
			lf = lgy[i]
		} else {
			lf, _ = math.Lgamma(y[i] + 1)
		}
		ll += y[i]*e - math.Exp(e) - lf
	}
	return -ll
}

func nllGrad(grad, eta []float64, X mat.Matrix, y []float64, lo, hi float64) {
	resid := make([]float64, len(eta))
	for i, e := range eta {
		// 境界に張り付いた観測は目的関数上で定数
		if e <= lo || e >= hi {
			continue
		}
		resid[i] = y[i] - math.Exp(e)
	}
	g := mat.NewVecDense(len(grad), grad)
	g.MulVec(X.T(), mat.NewVecDense(len(resid), resid))
	g.ScaleVec(-1, g)
}

func nllHess(hess *mat.SymDense, eta []float64, X mat.Matrix, lo, hi float64) {
	r, c := X.Dims()
	// 各行を sqrt(μᵢ) でスケールして XᵀWX = (W½X)ᵀ(W½X)
	xw := mat.NewDense(r, c, nil)
	for i, e := range eta {
		if e <= lo || e >= hi {
			continue
		}
		w := math.Exp(0.5 * e)
		for j := 0; j < c; j++ {
			xw.Set(i, j, w*X.At(i, j))
		}
	}
	hess.SymOuterK(1, xw.T())
}

// poissonObjective は最適化器に渡す目的関数。評価は逐次的に行われる前提で
// 線形予測子のバッファを使い回す。
type poissonObjective struct {
	x       *mat.Dense
	y       []float64
	lgy     []float64
	lo, hi  float64
	penalty float64

	eta   *mat.VecDense
	evals int

	overflows int
	hook      func(*errors.NumericOverflowError)
	logger    log.Logger
}

func newPoissonObjective(x *mat.Dense, y []float64, cfg *config, logger log.Logger) *poissonObjective {
	r, _ := x.Dims()
	lgy := make([]float64, len(y))
	for i, v := range y {
		lgy[i], _ = math.Lgamma(v + 1)
	}
	return &poissonObjective{
		x:       x,
		y:       y,
		lgy:     lgy,
		lo:      cfg.etaMin,
		hi:      cfg.etaMax,
		penalty: cfg.penalty,
		eta:     mat.NewVecDense(r, nil),
		hook:    cfg.overflowHook,
		logger:  logger,
	}
}

func (o *poissonObjective) linpred(beta []float64) []float64 {
	o.eta.MulVec(o.x, mat.NewVecDense(len(beta), beta))
	return o.eta.RawVector().Data
}

// Func は負の対数尤度を返す。NaN/Infはペナルティ値に置き換えて最適化器が
// その領域から離れられるようにする。
func (o *poissonObjective) Func(beta []float64) float64 {
	o.evals++
	v := nll(o.linpred(beta), o.y, o.lgy, o.lo, o.hi)
	v, err := errors.SanitizeScalar("poisson_nll", v, o.penalty, o.evals)
	if err != nil {
		o.reportOverflow(err)
	}
	return v
}

// rawValue はペナルティ置換前の目的関数値を返す。評価回数には数えない。
func (o *poissonObjective) rawValue(beta []float64) float64 {
	return nll(o.linpred(beta), o.y, o.lgy, o.lo, o.hi)
}

// Grad は勾配を grad に書き込む。非有限の成分が出た場合は零ベクトルにする。
func (o *poissonObjective) Grad(grad, beta []float64) {
	nllGrad(grad, o.linpred(beta), o.x, o.y, o.lo, o.hi)
	if errors.FirstNonFinite(grad) >= 0 {
		for j := range grad {
			grad[j] = 0
		}
	}
}

// Hess はヘッセ行列を hess に書き込む。
func (o *poissonObjective) Hess(hess *mat.SymDense, beta []float64) {
	nllHess(hess, o.linpred(beta), o.x, o.lo, o.hi)
}

func (o *poissonObjective) reportOverflow(err error) {
	o.overflows++
	var ovErr *errors.NumericOverflowError
	if o.hook != nil && errors.As(err, &ovErr) {
		o.hook(ovErr)
	}
	o.logger.Warn("objective overflow replaced by penalty",
		log.ErrAttrKey, err,
		log.ErrorCodeKey, log.ErrorNumericOverflow,
		log.EvaluationKey, o.evals,
	)
}
