// Package linear は最小二乗法による線形回帰（OLS）を提供する
package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/scistat/core/model"
	"github.com/YuminosukeSato/scistat/core/parallel"
	"github.com/YuminosukeSato/scistat/metrics"
	"github.com/YuminosukeSato/scistat/pkg/errors"
)

const modelName = "LinearRegression"

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// LinearRegression は線形回帰モデル
//
// 係数は QR 分解で求め、標準誤差は σ̂²(XᵀX)⁻¹ から計算する。
// 二値の応答に当てはめれば線形確率モデルになる。
type LinearRegression struct {
	state *model.StateManager

	fitIntercept bool

	Weights   *mat.VecDense // 重み（係数）
	Intercept float64       // 切片

	// 切片を含む全係数の標準誤差。fitIntercept のとき先頭が切片
	StdErrors []float64
	// 残差の標準偏差 sqrt(RSS/(n-k))
	Sigma float64
	// 学習データでの決定係数
	RSquared float64
	// 残差自由度 n-k
	DFResid int
}

var (
	_ model.Regressor      = (*LinearRegression)(nil)
	_ model.WeightExporter = (*LinearRegression)(nil)
)

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")
	lr.state.Reset()

	// 入力の検証
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	yVec, err := metrics.ColumnVector("LinearRegression.Fit", y)
	if err != nil {
		return err
	}
	if yVec.Len() != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, yVec.Len(), 0)
	}
	if err := errors.CheckMatrix("LinearRegression.Fit", X, r, c); err != nil {
		return err
	}
	if i := errors.FirstNonFinite(yVec.RawVector().Data); i >= 0 {
		return errors.NewValueError("LinearRegression.Fit", "y contains non-finite values")
	}

	design := lr.design(X)
	_, k := design.Dims()
	if r <= k {
		return errors.NewInsufficientDataError("LinearRegression.Fit", r, k)
	}

	// 正規方程式の代わりに QR 分解で解く
	var qr mat.QR
	qr.Factorize(design)
	if !fullRank(&qr, k) {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}
	beta := mat.NewVecDense(k, nil)
	if err := qr.SolveVecTo(beta, false, yVec); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(design, beta)
	resid.SubVec(yVec, &fitted)
	rss := mat.Dot(&resid, &resid)
	df := r - k
	sigma2 := rss / float64(df)

	cov, err := covariance(design, sigma2)
	if err != nil {
		return err
	}
	se := make([]float64, k)
	for j := range se {
		se[j] = math.Sqrt(cov.At(j, j))
	}

	// 切片と重みを分離
	offset := 0
	lr.Intercept = 0
	if lr.fitIntercept {
		lr.Intercept = beta.AtVec(0)
		offset = 1
	}
	lr.Weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.Weights.SetVec(j, beta.AtVec(j+offset))
	}
	lr.StdErrors = se
	lr.Sigma = math.Sqrt(sigma2)
	lr.DFResid = df
	lr.RSquared, err = metrics.R2Score(yVec, &fitted)
	if err != nil {
		return err
	}

	// モデルを学習済み状態に設定
	lr.state.SetFitted(c, r)
	return nil
}

// design は fitIntercept のとき先頭に 1 の列を加えた行列を返す
func (lr *LinearRegression) design(X mat.Matrix) *mat.Dense {
	if !lr.fitIntercept {
		return mat.DenseCopyOf(X)
	}
	r, c := X.Dims()
	out := mat.NewDense(r, c+1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				out.Set(i, j+1, X.At(i, j))
			}
		}
	})
	return out
}

// rankTol は R の対角要素の最大値に対する相対的な許容値
const rankTol = 1e-10

// fullRank は R の対角要素から列がフルランクかを判定する
func fullRank(qr *mat.QR, k int) bool {
	var r mat.Dense
	qr.RTo(&r)
	var maxDiag float64
	for j := 0; j < k; j++ {
		maxDiag = math.Max(maxDiag, math.Abs(r.At(j, j)))
	}
	for j := 0; j < k; j++ {
		if math.Abs(r.At(j, j)) <= rankTol*maxDiag {
			return false
		}
	}
	return maxDiag > 0
}

// covariance は σ²(XᵀX)⁻¹ を返す
func covariance(design *mat.Dense, sigma2 float64) (*mat.SymDense, error) {
	_, k := design.Dims()
	xtx := mat.NewSymDense(k, nil)
	xtx.SymOuterK(1, design.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(xtx); !ok {
		return nil, errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}
	inv.ScaleSym(sigma2, &inv)
	return &inv, nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted(modelName, "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := lr.state.RequireFeatures("LinearRegression.Predict", c); err != nil {
		return nil, err
	}

	// 予測: y = X * weights + intercept
	predictions := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			pred := lr.Intercept
			for j := 0; j < c; j++ {
				pred += X.At(i, j) * lr.Weights.AtVec(j)
			}
			predictions.Set(i, 0, pred)
		}
	})
	return predictions, nil
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := metrics.ColumnVector("LinearRegression.Score", y)
	if err != nil {
		return 0, err
	}
	yHat, err := metrics.ColumnVector("LinearRegression.Score", yPred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yHat)
}

// GetWeights は学習された重み（係数）を返す
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}
	weights := make([]float64, lr.Weights.Len())
	for i := range weights {
		weights[i] = lr.Weights.AtVec(i)
	}
	return weights
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.state.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// IsFitted はモデルが学習済みかどうかを返す
func (lr *LinearRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// Coefficients は切片（fitIntercept のとき先頭）を含む全係数を返す
func (lr *LinearRegression) Coefficients() []float64 {
	if !lr.state.IsFitted() {
		return nil
	}
	if !lr.fitIntercept {
		return lr.GetWeights()
	}
	return append([]float64{lr.Intercept}, lr.GetWeights()...)
}

// TValues は係数 / 標準誤差を返す
func (lr *LinearRegression) TValues() []float64 {
	coef := lr.Coefficients()
	if coef == nil {
		return nil
	}
	t := make([]float64, len(coef))
	for i, b := range coef {
		t[i] = b / lr.StdErrors[i]
	}
	return t
}

// PValues は自由度 n-k の t 分布による両側 p 値を返す
func (lr *LinearRegression) PValues() []float64 {
	t := lr.TValues()
	if t == nil {
		return nil
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(lr.DFResid)}
	p := make([]float64, len(t))
	for i, v := range t {
		p[i] = 2 * dist.Survival(math.Abs(v))
	}
	return p
}

// GetParams はハイパーパラメータを返す
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.fitIntercept,
	}
}

// ExportWeights は学習済みの係数を ModelWeights として返す。
// fit_intercept が真のとき Coefficients の先頭が切片
func (lr *LinearRegression) ExportWeights() (*model.ModelWeights, error) {
	if err := lr.state.RequireFitted(modelName, "ExportWeights"); err != nil {
		return nil, err
	}
	_, nSamples := lr.state.GetDimensions()
	return &model.ModelWeights{
		ModelType:       modelName,
		Version:         model.WeightsVersion,
		Coefficients:    lr.Coefficients(),
		StdErrors:       model.EncodeStdErrors(lr.StdErrors),
		Hyperparameters: lr.GetParams(),
		Metadata: map[string]interface{}{
			"n_samples": nSamples,
			"r_squared": lr.RSquared,
			"sigma":     lr.Sigma,
			"df_resid":  lr.DFResid,
		},
		IsFitted: true,
	}, nil
}

// ImportWeights は ExportWeights の出力から予測可能な状態を復元する
func (lr *LinearRegression) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("LinearRegression.ImportWeights", "weights are nil")
	}
	if err := w.Validate(); err != nil {
		return err
	}
	if w.ModelType != modelName {
		return errors.NewValueError("LinearRegression.ImportWeights", "model type mismatch: "+w.ModelType)
	}
	if !w.IsFitted {
		return errors.NewValueError("LinearRegression.ImportWeights", "weights are not fitted")
	}

	// 検査が終わるまでレシーバには触れない
	coef := w.Coefficients
	fitIntercept := true
	if v, ok := w.Hyperparameters["fit_intercept"].(bool); ok {
		fitIntercept = v
	}
	var intercept float64
	if fitIntercept {
		intercept = coef[0]
		coef = coef[1:]
	}
	if len(coef) == 0 {
		return errors.NewValueError("LinearRegression.ImportWeights", "no feature coefficients")
	}
	se := model.DecodeStdErrors(w.StdErrors)
	if se == nil {
		se = make([]float64, len(w.Coefficients))
		for j := range se {
			se[j] = math.NaN()
		}
	}

	lr.fitIntercept = fitIntercept
	lr.Intercept = intercept
	lr.Weights = mat.NewVecDense(len(coef), append([]float64(nil), coef...))
	lr.StdErrors = se
	lr.RSquared, _ = model.MetadataNumber(w.Metadata, "r_squared")
	lr.Sigma, _ = model.MetadataNumber(w.Metadata, "sigma")
	df, _ := model.MetadataNumber(w.Metadata, "df_resid")
	lr.DFResid = int(df)
	nSamples, _ := model.MetadataNumber(w.Metadata, "n_samples")

	lr.state.SetFitted(len(coef), int(nSamples))
	return nil
}
