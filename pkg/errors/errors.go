// Package errors はscistatのエラー型と警告を定義する。
//
// 入力の不備はエラーとして即座に返す。数値的な不安定さや収束しなかった
// ことは処理を止めずに警告（Warn）で知らせる。コンストラクタはすべて
// cockroachdb/errors でスタックトレースを付ける。
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// cockroachdb/errors の再エクスポート。呼び出し側はこのパッケージだけを import すればよい
var (
	Is        = errors.Is
	As        = errors.As
	New       = errors.New
	Newf      = errors.Newf
	Wrap      = errors.Wrap
	Wrapf     = errors.Wrapf
	WithStack = errors.WithStack
)

// よく使う原因。ModelError.Err に入れて errors.Is で判定する
var (
	ErrEmptyData      = New("empty data")
	ErrSingularMatrix = New("singular matrix")
)

// NotFittedError は Fit 前に Predict などを呼んだ場合のエラー
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("scistat: %s.%s called before Fit", e.ModelName, e.Method)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *NotFittedError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "NotFittedError").
		Str("model_name", e.ModelName).
		Str("method", e.Method)
}

// NewNotFittedError は NotFittedError を作る
func NewNotFittedError(modelName, method string) error {
	return WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は行数または列数が合わない場合のエラー。
// Axis は 0 が行（観測）、1 が列（特徴量・係数）
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) unit() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "columns"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("scistat: %s: expected %d %s, got %d", e.Op, e.Expected, e.unit(), e.Got)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *DimensionError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "DimensionError").
		Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("axis", e.unit())
}

// NewDimensionError は DimensionError を作る
func NewDimensionError(op string, expected, got, axis int) error {
	return WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// InsufficientDataError は観測数 n がパラメータ数 p より少なく、推定が不定になる場合のエラー
type InsufficientDataError struct {
	Op      string
	Samples int
	Params  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("scistat: %s: %d observations cannot identify %d parameters", e.Op, e.Samples, e.Params)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *InsufficientDataError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "InsufficientDataError").
		Str("operation", e.Op).
		Int("samples", e.Samples).
		Int("params", e.Params)
}

// NewInsufficientDataError は InsufficientDataError を作る
func NewInsufficientDataError(op string, samples, params int) error {
	return WithStack(&InsufficientDataError{Op: op, Samples: samples, Params: params})
}

// InvalidParameterError は設定値や引数が許容範囲外の場合のエラー。
// 確率が (0,1) の外、サンプルサイズが正でないなど
type InvalidParameterError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("scistat: %s %s, got %v", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *InvalidParameterError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "InvalidParameterError").
		Str("param", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value)
}

// NewInvalidParameterError は InvalidParameterError を作る
func NewInvalidParameterError(param, reason string, value interface{}) error {
	return WithStack(&InvalidParameterError{ParamName: param, Reason: reason, Value: value})
}

// ValueError はデータの値そのものが不正な場合のエラー（負の応答、非整数、NaN など）
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return "scistat: " + e.Op + ": " + e.Message
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *ValueError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "ValueError").
		Str("operation", e.Op).
		Str("message", e.Message)
}

// NewValueError は ValueError を作る
func NewValueError(op, message string) error {
	return WithStack(&ValueError{Op: op, Message: message})
}

// ModelError は推定処理そのものの失敗。Err に原因（ErrEmptyData など）を持つ
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	msg := "scistat: " + e.Op + ": " + e.Kind
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は ModelError を作る
func NewModelError(op, kind string, err error) error {
	return WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericOverflowError はクリッピング後も目的関数が NaN/Inf になったことを表す。
// 最適化は止めずにペナルティ値で続けるので、フックとログにだけ渡される
type NumericOverflowError struct {
	Operation  string
	Value      float64
	Penalty    float64
	Evaluation int
}

func (e *NumericOverflowError) Error() string {
	return fmt.Sprintf("scistat: numeric overflow in %s at evaluation %d: value %v replaced by penalty %g",
		e.Operation, e.Evaluation, e.Value, e.Penalty)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *NumericOverflowError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "NumericOverflowError").
		Str("operation", e.Operation).
		Float64("value", e.Value).
		Float64("penalty", e.Penalty).
		Int("evaluation", e.Evaluation)
}

// NewNumericOverflowError は NumericOverflowError を作る
func NewNumericOverflowError(operation string, value, penalty float64, evaluation int) error {
	return WithStack(&NumericOverflowError{
		Operation:  operation,
		Value:      value,
		Penalty:    penalty,
		Evaluation: evaluation,
	})
}
