// Package glm はポアソン回帰（対数リンク）の最尤推定を提供する
package glm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistat/core/model"
	"github.com/YuminosukeSato/scistat/core/parallel"
	"github.com/YuminosukeSato/scistat/metrics"
	"github.com/YuminosukeSato/scistat/pkg/errors"
	"github.com/YuminosukeSato/scistat/pkg/log"
)

const modelName = "PoissonRegressor"

// 予測時の並列化の閾値（行数）
const predictParallelThreshold = 1000

// PoissonRegressor はFit/Predict/Scoreを備えたポアソン回帰の推定器
//
// デザイン行列は切片列を含めて渡す（preprocessing.DesignBuilder を参照）。
type PoissonRegressor struct {
	state  *model.StateManager
	opts   []Option
	result *FitResult
}

var (
	_ model.Regressor      = (*PoissonRegressor)(nil)
	_ model.WeightExporter = (*PoissonRegressor)(nil)
)

// NewPoissonRegressor は新しいPoissonRegressorを作成する。
// オプションは Fit 時に検証される。
func NewPoissonRegressor(opts ...Option) *PoissonRegressor {
	return &PoissonRegressor{
		state: model.NewStateManager(),
		opts:  opts,
	}
}

// Fit はモデルを学習する。y は n×1 の列ベクトル。
// 収束しなかった場合もエラーにはならないので Result().Converged を確認すること。
func (pr *PoissonRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "PoissonRegressor.Fit")
	pr.state.Reset()

	yVec, err := metrics.ColumnVector("PoissonRegressor.Fit", y)
	if err != nil {
		return err
	}
	res, err := FitPoisson(X, yVec.RawVector().Data, pr.opts...)
	if err != nil {
		return err
	}

	pr.result = res
	pr.state.SetFitted(res.NumParams, res.NumObs)
	return nil
}

// Predict は期待値 μ = exp(Xβ̂) を n×1 行列で返す
func (pr *PoissonRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	mu, err := pr.predictMean("Predict", X)
	if err != nil {
		return nil, err
	}
	pr.logger().Debug("poisson predict", log.OperationKey, log.OperationPredict, log.SamplesKey, len(mu))
	return mat.NewDense(len(mu), 1, mu), nil
}

func (pr *PoissonRegressor) predictMean(method string, X mat.Matrix) ([]float64, error) {
	if err := pr.state.RequireFitted(modelName, method); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := pr.state.RequireFeatures("PoissonRegressor."+method, c); err != nil {
		return nil, err
	}

	beta := pr.result.Coefficients
	mu := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, predictParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			var eta float64
			for j := 0; j < c; j++ {
				eta += X.At(i, j) * beta[j]
			}
			mu[i] = math.Exp(eta)
		}
	})
	return mu, nil
}

// Score はポアソン逸脱度に基づく D² を返す（1が完全一致、0が切片のみのモデル相当）
func (pr *PoissonRegressor) Score(X, y mat.Matrix) (float64, error) {
	mu, err := pr.predictMean("Score", X)
	if err != nil {
		return 0, err
	}
	yTrue, err := metrics.ColumnVector("PoissonRegressor.Score", y)
	if err != nil {
		return 0, err
	}
	score, err := metrics.D2PoissonScore(yTrue, mat.NewVecDense(len(mu), mu))
	if err != nil {
		return 0, err
	}
	pr.logger().Debug("poisson score", log.OperationKey, log.OperationScore, log.SamplesKey, len(mu), log.LossKey, score)
	return score, nil
}

func (pr *PoissonRegressor) logger() log.Logger {
	cfg := defaultConfig()
	for _, opt := range pr.opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		return log.GetLogger().With(log.ModelNameKey, modelName)
	}
	return cfg.logger.With(log.ModelNameKey, modelName)
}

// Coef は推定された係数のコピーを返す。未学習の場合は nil
func (pr *PoissonRegressor) Coef() []float64 {
	if !pr.state.IsFitted() {
		return nil
	}
	return append([]float64(nil), pr.result.Coefficients...)
}

// Result は推定結果を返す。未学習の場合は nil
func (pr *PoissonRegressor) Result() *FitResult {
	if !pr.state.IsFitted() {
		return nil
	}
	return pr.result
}

// IsFitted はモデルが学習済みかどうかを返す
func (pr *PoissonRegressor) IsFitted() bool {
	return pr.state.IsFitted()
}

// GetParams は有効なハイパーパラメータを返す
func (pr *PoissonRegressor) GetParams() map[string]interface{} {
	cfg := defaultConfig()
	for _, opt := range pr.opts {
		opt(cfg)
	}
	return cfg.params()
}

// TreatmentEffect は学習済み係数で column 列を v0, v1 に置き換えたときの
// 平均予測値の差 mean(exp(X₁β̂)) − mean(exp(X₀β̂)) を返す
func (pr *PoissonRegressor) TreatmentEffect(X mat.Matrix, column int, v0, v1 float64) (float64, error) {
	if err := pr.state.RequireFitted(modelName, "TreatmentEffect"); err != nil {
		return 0, err
	}
	_, c := X.Dims()
	if err := pr.state.RequireFeatures("PoissonRegressor.TreatmentEffect", c); err != nil {
		return 0, err
	}
	return TreatmentEffect(pr.result.Coefficients, X, column, v0, v1)
}

// ExportWeights は学習済みの係数を交換形式で返す
func (pr *PoissonRegressor) ExportWeights() (*model.ModelWeights, error) {
	if err := pr.state.RequireFitted(modelName, "ExportWeights"); err != nil {
		return nil, err
	}
	res := pr.result
	return &model.ModelWeights{
		ModelType:       modelName,
		Version:         model.WeightsVersion,
		Coefficients:    append([]float64(nil), res.Coefficients...),
		StdErrors:       model.EncodeStdErrors(res.StdErrors),
		Features:        append([]string(nil), res.FeatureNames...),
		Hyperparameters: pr.GetParams(),
		Metadata: map[string]interface{}{
			"converged":          res.Converged,
			"status":             res.Status,
			"neg_log_likelihood": res.NegLogLikelihood,
			"n_obs":              res.NumObs,
			"iterations":         res.Iterations,
		},
		IsFitted: true,
	}, nil
}

// ImportWeights は交換形式から係数を読み込み、学習済み状態にする。
// 共分散行列は復元されない。
func (pr *PoissonRegressor) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("PoissonRegressor.ImportWeights", "weights are nil")
	}
	if err := w.Validate(); err != nil {
		return err
	}
	if w.ModelType != modelName {
		return errors.NewValueError("PoissonRegressor.ImportWeights", "model type mismatch: "+w.ModelType)
	}
	if !w.IsFitted {
		return errors.NewValueError("PoissonRegressor.ImportWeights", "weights are not fitted")
	}

	p := len(w.Coefficients)
	se := model.DecodeStdErrors(w.StdErrors)
	if se == nil {
		se = make([]float64, p)
		for j := range se {
			se[j] = math.NaN()
		}
	}
	res := &FitResult{
		Coefficients:     append([]float64(nil), w.Coefficients...),
		StdErrors:        se,
		NumParams:        p,
		NegLogLikelihood: math.NaN(),
	}
	if len(w.Features) > 0 {
		res.FeatureNames = append([]string(nil), w.Features...)
	}
	if v, ok := model.MetadataNumber(w.Metadata, "neg_log_likelihood"); ok {
		res.NegLogLikelihood = v
	}
	if v, ok := model.MetadataNumber(w.Metadata, "n_obs"); ok {
		res.NumObs = int(v)
	}
	if v, ok := model.MetadataNumber(w.Metadata, "iterations"); ok {
		res.Iterations = int(v)
	}
	if v, ok := w.Metadata["converged"].(bool); ok {
		res.Converged = v
	}
	if v, ok := w.Metadata["status"].(string); ok {
		res.Status = v
	}

	pr.result = res
	pr.state.SetFitted(p, res.NumObs)
	return nil
}
