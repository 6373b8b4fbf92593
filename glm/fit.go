package glm

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/scistat/pkg/errors"
	"github.com/YuminosukeSato/scistat/pkg/log"
)

// ヘッセ行列の条件数がこれを超える場合は特異とみなす
const maxHessianCond = 1e12

// y=0 の観測の当てはめ平均がこれを下回るとき、推定値は発散方向にあるとみなす
const minFittedMean = 1e-5

// FitPoisson はポアソン回帰の係数を最尤推定する。
//
// X は n×p のデザイン行列（切片が必要なら1の列を含める）、y は長さ n の
// 非負整数の応答ベクトル。β=0 から準ニュートン法で負の対数尤度を最小化し、
// 最適点でのヘッセ行列の逆行列から標準誤差を求める。
//
// 入力が不正な場合はエラーを返す。収束しなかった場合はエラーではなく
// FitResult.Converged=false として返し、ConvergenceWarningを発行する。
func FitPoisson(X mat.Matrix, y []float64, opts ...Option) (*FitResult, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := cfg.logger
	if logger == nil {
		logger = log.GetLogger()
	}
	logger = logger.With(log.OperationKey, log.OperationFit, log.MethodKey, cfg.methodName())
	start := time.Now()

	x, err := validateInputs(X, y)
	if err != nil {
		c := classifyInputError(err)
		logger.Error("invalid input",
			log.ErrAttrKey, err,
			log.ErrorCodeKey, c.code,
			log.ErrorTypeKey, c.typ,
			log.SuggestionKey, c.suggestion,
		)
		return nil, err
	}
	n, p := x.Dims()
	if cfg.featureNames != nil && len(cfg.featureNames) != p {
		return nil, errors.NewInvalidParameterError("feature_names",
			fmt.Sprintf("expected %d names", p), len(cfg.featureNames))
	}

	obj := newPoissonObjective(x, y, cfg, logger)
	problem := optimize.Problem{
		Func: obj.Func,
		Grad: obj.Grad,
		Hess: obj.Hess,
	}
	settings := &optimize.Settings{
		GradientThreshold: cfg.gradTol,
		MajorIterations:   cfg.maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   cfg.funcTol,
			Relative:   cfg.funcTol,
			Iterations: 20,
		},
	}
	if logger.Enabled(context.Background(), log.LevelDebug) {
		settings.Recorder = newLogRecorder(logger)
	}

	beta0 := make([]float64, p)
	f0 := obj.Func(beta0)

	logger.Debug("starting optimization",
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.LossKey, f0,
	)

	var res *optimize.Result
	runErr := errors.SafeExecute("optimize.Minimize", func() error {
		var minErr error
		res, minErr = optimize.Minimize(problem, beta0, settings, cfg.newMethod())
		return minErr
	})
	if res == nil {
		err := errors.NewModelError("FitPoisson", "optimizer failure", runErr)
		logger.Error("optimizer failed", log.ErrAttrKey, err)
		return nil, err
	}

	result := &FitResult{
		Coefficients:     append([]float64(nil), res.X...),
		NegLogLikelihood: res.F,
		Iterations:       res.Stats.MajorIterations,
		FuncEvaluations:  obj.evals,
		Status:           res.Status.String(),
		NumObs:           n,
		NumParams:        p,
		FeatureNames:     cfg.featureNames,
	}

	suggestion := "increase max_iter or check the design matrix for collinearity"
	converged := succeeded(res.Status)
	rescuable := res.Status == optimize.Failure
	reason := res.Status.String()
	if runErr != nil {
		reason = runErr.Error()
	}
	if !errors.IsFinite(res.F) || res.F > f0 || errors.FirstNonFinite(res.X) >= 0 {
		// 開始点より悪化した場合は β=0 に戻す
		for j := range result.Coefficients {
			result.Coefficients[j] = 0
		}
		result.NegLogLikelihood = f0
		converged, rescuable = false, false
		reason = "optimizer returned a point worse than the start; falling back to zero coefficients"
	}
	if !errors.IsFinite(obj.rawValue(result.Coefficients)) {
		converged, rescuable = false, false
		reason = "objective is not finite at the estimate"
	}

	// 最適点でのヘッセ行列からの共分散
	cov, decrement, ok := covarianceAt(obj, result.Coefficients)
	switch {
	case !ok:
		converged = false
		reason = "Hessian is not positive definite at the estimate; the design matrix may be collinear"
	case rescuable && decrement <= cfg.decrementTol:
		// 最適点近傍で直線探索が進めなくなったケース
		converged = true
	}
	if converged {
		if i := boundaryObservation(x, result.Coefficients, y, cfg); i >= 0 {
			converged = false
			reason = fmt.Sprintf("linear predictor of observation %d is at the edge of its range; "+
				"a group whose counts are all zero has no finite estimate", i)
			suggestion = "drop or merge categories whose counts are all zero"
		}
	}
	result.Covariance = cov
	result.Converged = converged
	result.StdErrors = stdErrors(cov, p)
	result.OverflowEvents = obj.overflows

	if !converged {
		warning := errors.NewConvergenceWarning(cfg.methodName(), result.Iterations, reason)
		errors.Warn(warning)
		logger.Warn("poisson fit did not converge",
			log.ErrAttrKey, warning,
			log.ErrorCodeKey, log.ErrorConvergence,
			log.SuggestionKey, suggestion,
			log.StatusKey, result.Status,
			log.IterationKey, result.Iterations,
		)
	}

	logger.Info("poisson fit finished",
		log.ConvergedKey, result.Converged,
		log.StatusKey, result.Status,
		log.IterationKey, result.Iterations,
		log.EvaluationKey, result.FuncEvaluations,
		log.LossKey, result.NegLogLikelihood,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

type inputErrorClass struct {
	code, typ, suggestion string
}

// classifyInputError は validateInputs のエラーをログ用のコードに分類する
func classifyInputError(err error) inputErrorClass {
	var (
		ide *errors.InsufficientDataError
		de  *errors.DimensionError
		ve  *errors.ValueError
	)
	switch {
	case errors.As(err, &ide):
		return inputErrorClass{log.ErrorInsufficientData, "InsufficientDataError",
			"collect more observations or remove columns from the design"}
	case errors.As(err, &de):
		return inputErrorClass{log.ErrorDimensionMismatch, "DimensionError",
			"y needs one entry per row of X"}
	case errors.As(err, &ve):
		return inputErrorClass{log.ErrorInvalidInput, "ValueError",
			"responses must be finite non-negative integers and X must be finite"}
	}
	return inputErrorClass{log.ErrorInvalidInput, "ModelError", "X and y must be non-empty"}
}

// validateInputs は入力を検査し、密行列のコピーを返す
func validateInputs(X mat.Matrix, y []float64) (*mat.Dense, error) {
	if X == nil {
		return nil, errors.NewModelError("FitPoisson", "empty data", errors.ErrEmptyData)
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, errors.NewModelError("FitPoisson", "empty data", errors.ErrEmptyData)
	}
	if len(y) != n {
		return nil, errors.NewDimensionError("FitPoisson", n, len(y), 0)
	}
	if n < p {
		return nil, errors.NewInsufficientDataError("FitPoisson", n, p)
	}
	if err := errors.CheckMatrix("FitPoisson", X, n, p); err != nil {
		return nil, err
	}
	for i, v := range y {
		switch {
		case !errors.IsFinite(v):
			return nil, errors.NewValueError("FitPoisson", fmt.Sprintf("non-finite response %v at index %d", v, i))
		case v < 0:
			return nil, errors.NewValueError("FitPoisson", fmt.Sprintf("negative response %v at index %d", v, i))
		case v != math.Trunc(v):
			return nil, errors.NewValueError("FitPoisson", fmt.Sprintf("non-integer response %v at index %d", v, i))
		}
	}
	return mat.DenseCopyOf(X), nil
}

// succeeded は最適化器の終了状態が停止条件を満たしたものかを返す
func succeeded(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.GradientThreshold,
		optimize.FunctionConvergence,
		optimize.StepConvergence,
		optimize.FunctionThreshold,
		optimize.MethodConverge:
		return true
	}
	return false
}

// covarianceAt は beta でのヘッセ行列をCholesky分解し、その逆行列と
// ニュートン減少量 gᵀH⁻¹g/2 を返す。正定値でなければ ok=false。
func covarianceAt(obj *poissonObjective, beta []float64) (cov *mat.SymDense, decrement float64, ok bool) {
	p := len(beta)
	hess := mat.NewSymDense(p, nil)
	obj.Hess(hess, beta)

	var chol mat.Cholesky
	if !chol.Factorize(hess) || chol.Cond() > maxHessianCond {
		return nil, math.NaN(), false
	}
	cov = mat.NewSymDense(p, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, math.NaN(), false
	}

	grad := make([]float64, p)
	obj.Grad(grad, beta)
	step := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(step, mat.NewVecDense(p, grad)); err != nil {
		return nil, math.NaN(), false
	}
	decrement = 0.5 * floats.Dot(grad, step.RawVector().Data)
	return cov, decrement, true
}

// boundaryObservation は η がクリップ範囲の端にある観測、または y=0 で当てはめ平均が
// ほぼ 0 の観測の添字を返す。全ゼロの群があると MLE は -∞ に発散し、最適化は
// 勾配が閾値を下回った時点で止まるため、収束扱いにしない。該当がなければ -1
func boundaryObservation(X mat.Matrix, beta, y []float64, cfg *config) int {
	margin := math.Min(1, (cfg.etaMax-cfg.etaMin)/10)
	for i, e := range linearPredictor(beta, X) {
		if e <= cfg.etaMin+margin || e >= cfg.etaMax-margin {
			return i
		}
		if y[i] == 0 && math.Exp(e) < minFittedMean {
			return i
		}
	}
	return -1
}

func stdErrors(cov *mat.SymDense, p int) []float64 {
	se := make([]float64, p)
	for j := range se {
		if cov == nil {
			se[j] = math.NaN()
			continue
		}
		// 負の対角要素は math.Sqrt が NaN を返す
		se[j] = math.Sqrt(cov.At(j, j))
	}
	return se
}
