package model

import (
	"encoding/json"
	"maps"
	"math"
	"slices"

	"github.com/YuminosukeSato/scistat/pkg/errors"
)

// ModelWeights は学習済みモデルの係数を外部のレポート処理へ渡すための交換形式
type ModelWeights struct {
	// ModelType はモデルの種類（PoissonRegressor等）
	ModelType string `json:"model_type"`

	// Version は形式のバージョン（互換性チェック用）
	Version string `json:"version"`

	// Coefficients は係数。切片はデザイン行列の列として含まれる
	Coefficients []float64 `json:"coefficients"`

	// StdErrors は係数の標準誤差。未定義の場合はnull
	StdErrors []*float64 `json:"std_errors,omitempty"`

	// Features は列の名前（オプション）
	Features []string `json:"features,omitempty"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty"`

	// Metadata は追加のメタデータ（収束状態、対数尤度等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// WeightsVersion は現在の交換形式のバージョン
const WeightsVersion = "1.0"

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, mw); err != nil {
		return errors.Wrap(err, "decode model weights")
	}
	return mw.Validate()
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValueError("ModelWeights.Validate", "model_type is required")
	}
	if mw.Version == "" {
		return errors.NewValueError("ModelWeights.Validate", "version is required")
	}
	if !mw.IsFitted && len(mw.Coefficients) > 0 {
		return errors.NewValueError("ModelWeights.Validate", "unfitted model should not have coefficients")
	}
	if mw.IsFitted && len(mw.Coefficients) == 0 {
		return errors.NewValueError("ModelWeights.Validate", "fitted model must have coefficients")
	}
	if len(mw.StdErrors) > 0 && len(mw.StdErrors) != len(mw.Coefficients) {
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.Coefficients), len(mw.StdErrors), 1)
	}
	if len(mw.Features) > 0 && len(mw.Features) != len(mw.Coefficients) {
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.Coefficients), len(mw.Features), 1)
	}
	return nil
}

// EncodeStdErrors はNaNをnullに置き換えてJSONで表現可能にする
func EncodeStdErrors(se []float64) []*float64 {
	if se == nil {
		return nil
	}
	out := make([]*float64, len(se))
	for i, v := range se {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		v := v
		out[i] = &v
	}
	return out
}

// DecodeStdErrors はEncodeStdErrorsの逆変換。nullはNaNになる
func DecodeStdErrors(se []*float64) []float64 {
	if se == nil {
		return nil
	}
	out := make([]float64, len(se))
	for i, v := range se {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}

// MetadataNumber はメタデータの数値を読む。JSON経由（float64）と
// 直接渡し（int）の両方を受け付ける
func MetadataNumber(meta map[string]interface{}, key string) (float64, bool) {
	switch v := meta[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Clone は係数・メタデータを共有しないコピーを返す
func (mw *ModelWeights) Clone() *ModelWeights {
	c := *mw
	c.Coefficients = slices.Clone(mw.Coefficients)
	c.Features = slices.Clone(mw.Features)
	c.Hyperparameters = maps.Clone(mw.Hyperparameters)
	c.Metadata = maps.Clone(mw.Metadata)
	if mw.StdErrors != nil {
		c.StdErrors = EncodeStdErrors(DecodeStdErrors(mw.StdErrors))
	}
	return &c
}
