package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/rs/zerolog"
)

// 警告の出力先。zerolog が登録されていればそちらを優先する
var warnings = struct {
	mu      sync.RWMutex
	handler func(error)
	zerolog func(error)
}{
	handler: func(w error) { log.Printf("scistat-warning: %v", w) },
}

// SetWarningHandler はライブラリ全体の警告ハンドラを差し替える。
// nil を渡すと警告を捨てる。
//
//	errors.SetWarningHandler(func(w error) {
//	    var cw *errors.ConvergenceWarning
//	    if errors.As(w, &cw) {
//	        metrics.Inc("non_converged_fits")
//	    }
//	})
func SetWarningHandler(handler func(w error)) {
	warnings.mu.Lock()
	warnings.handler = handler
	warnings.mu.Unlock()
}

// SetZerologWarnFunc は構造化ログへの警告出力を登録する。pkg/log から呼ばれる。
// nil で解除する。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warnings.mu.Lock()
	warnings.zerolog = warnFunc
	warnings.mu.Unlock()
}

// Warn は警告を登録済みの出力先に渡す。ハンドラはロックの外で呼ばれる。
func Warn(w error) {
	warnings.mu.RLock()
	sink := warnings.zerolog
	if sink == nil {
		sink = warnings.handler
	}
	warnings.mu.RUnlock()

	if sink != nil {
		sink(w)
	}
}

// ConvergenceWarning は最適化が停止条件を満たさずに終わったことを表す。
// エラーとしては返さず、FitResult.Converged=false と併せて Warn で通知する。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	msg := w.Message
	if msg == "" {
		msg = "increase max_iter or check the design matrix for collinearity"
	}
	return fmt.Sprintf("%s did not converge in %d iterations: %s", w.Algorithm, w.Iterations, msg)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "ConvergenceWarning").
		Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message)
}

// NewConvergenceWarning は ConvergenceWarning を作る
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// UndefinedMetricWarning は指標が定義できず、慣例の値 Result を返したことを表す。
// 帰無モデルの逸脱度が 0 で D² が決まらない場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("%s is undefined when %s; returning %g", w.Metric, w.Condition, w.Result)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "UndefinedMetricWarning").
		Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result)
}

// NewUndefinedMetricWarning は UndefinedMetricWarning を作る
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}
