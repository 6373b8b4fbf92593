// Package preprocessing はモデルに渡すデザイン行列の構築と変換を提供する
package preprocessing

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistat/pkg/errors"
)

// InterceptName は切片列の名前
const InterceptName = "intercept"

type designColumn struct {
	name   string
	values []float64
	// scalable は Standardize の対象になるかどうか（ダミー列は対象外）
	scalable bool
}

// DesignBuilder は列を1つずつ追加してデザイン行列を組み立てる
//
// 最初に発生したエラーを保持し、Build で返す。
//
//	X, names, err := preprocessing.NewDesignBuilder(n).
//		Numeric("age", age).
//		Squared("age", age).
//		Categorical("region", region).
//		Indicator("customer", isCustomer).
//		Build()
type DesignBuilder struct {
	n           int
	intercept   bool
	standardize bool
	columns     []designColumn
	scaler      *StandardScaler
	err         error
}

// NewDesignBuilder は n 行のデザイン行列のビルダーを作成する。切片列は既定で含む
func NewDesignBuilder(n int) *DesignBuilder {
	b := &DesignBuilder{n: n, intercept: true}
	if n <= 0 {
		b.err = errors.NewInvalidParameterError("n", "must be positive", n)
	}
	return b
}

// WithoutIntercept は切片列を含めない
func (b *DesignBuilder) WithoutIntercept() *DesignBuilder {
	b.intercept = false
	return b
}

// Standardize は数値列（二乗項を含む）を StandardScaler で標準化する
func (b *DesignBuilder) Standardize() *DesignBuilder {
	b.standardize = true
	return b
}

// Numeric は数値列を追加する
func (b *DesignBuilder) Numeric(name string, values []float64) *DesignBuilder {
	if !b.check(name, len(values)) {
		return b
	}
	if i := errors.FirstNonFinite(values); i >= 0 {
		b.err = errors.NewValueError("DesignBuilder.Numeric", fmt.Sprintf("column %q has non-finite value %v at row %d", name, values[i], i))
		return b
	}
	b.columns = append(b.columns, designColumn{name: name, values: slices.Clone(values), scalable: true})
	return b
}

// Squared は values の二乗を "name^2" という列名で追加する
func (b *DesignBuilder) Squared(name string, values []float64) *DesignBuilder {
	sq := make([]float64, len(values))
	for i, v := range values {
		sq[i] = v * v
	}
	return b.Numeric(name+"^2", sq)
}

// Indicator は真偽値を0/1の列として追加する
func (b *DesignBuilder) Indicator(name string, values []bool) *DesignBuilder {
	if !b.check(name, len(values)) {
		return b
	}
	col := make([]float64, len(values))
	for i, v := range values {
		if v {
			col[i] = 1
		}
	}
	b.columns = append(b.columns, designColumn{name: name, values: col})
	return b
}

// Categorical はカテゴリ変数をダミー変数に展開する。水準は辞書順に並べ、
// 最初の水準を基準として除外する。列名は "name[T.level]"。
func (b *DesignBuilder) Categorical(name string, labels []string) *DesignBuilder {
	if !b.check(name, len(labels)) {
		return b
	}
	levels := slices.Compact(slices.Sorted(slices.Values(labels)))
	if len(levels) < 2 {
		b.err = errors.NewValueError("DesignBuilder.Categorical", fmt.Sprintf("column %q needs at least two levels", name))
		return b
	}
	for _, level := range levels[1:] {
		col := make([]float64, len(labels))
		for i, l := range labels {
			if l == level {
				col[i] = 1
			}
		}
		b.columns = append(b.columns, designColumn{name: fmt.Sprintf("%s[T.%s]", name, level), values: col})
	}
	return b
}

func (b *DesignBuilder) check(name string, length int) bool {
	if b.err != nil {
		return false
	}
	if name == "" {
		b.err = errors.NewValueError("DesignBuilder", "column name must not be empty")
		return false
	}
	if length != b.n {
		b.err = errors.NewDimensionError("DesignBuilder."+name, b.n, length, 0)
		return false
	}
	return true
}

// Build はデザイン行列と列名を返す
func (b *DesignBuilder) Build() (*mat.Dense, []string, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	names := make([]string, 0, len(b.columns)+1)
	if b.intercept {
		names = append(names, InterceptName)
	}
	for _, c := range b.columns {
		if slices.Contains(names, c.name) {
			return nil, nil, errors.NewValueError("DesignBuilder.Build", fmt.Sprintf("duplicate column %q", c.name))
		}
		names = append(names, c.name)
	}
	if len(names) == 0 {
		return nil, nil, errors.NewModelError("DesignBuilder.Build", "no columns", errors.ErrEmptyData)
	}

	offset := 0
	if b.intercept {
		offset = 1
	}
	X := mat.NewDense(b.n, len(names), nil)
	for i := 0; i < b.n; i++ {
		if b.intercept {
			X.Set(i, 0, 1)
		}
	}
	for j, c := range b.columns {
		X.SetCol(j+offset, c.values)
	}

	if b.standardize {
		if err := b.scale(X, offset); err != nil {
			return nil, nil, err
		}
	}
	return X, names, nil
}

// scale は scalable な列だけを取り出して標準化し、X に書き戻す
func (b *DesignBuilder) scale(X *mat.Dense, offset int) error {
	var idx []int
	for j, c := range b.columns {
		if c.scalable {
			idx = append(idx, j+offset)
		}
	}
	if len(idx) == 0 {
		return nil
	}

	sub := mat.NewDense(b.n, len(idx), nil)
	for k, j := range idx {
		sub.SetCol(k, mat.Col(nil, j, X))
	}
	b.scaler = NewStandardScaler()
	z, err := b.scaler.FitTransform(sub)
	if err != nil {
		return err
	}
	for k, j := range idx {
		X.SetCol(j, mat.Col(nil, k, z))
	}
	return nil
}

// Scaler は Standardize 指定時に使われたスケーラーを返す。数値列のみを
// 順に保持する。Standardize していない場合は nil
func (b *DesignBuilder) Scaler() *StandardScaler {
	return b.scaler
}
