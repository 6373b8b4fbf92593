package linear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistat/core/model"
	"github.com/YuminosukeSato/scistat/pkg/errors"
)

// x = 0..3, y = 1,2,3,5 の手計算できる例
// slope 1.3, intercept 0.8, RSS 0.3, σ² 0.15
func smallData() (*mat.Dense, *mat.Dense) {
	return mat.NewDense(4, 1, []float64{0, 1, 2, 3}),
		mat.NewDense(4, 1, []float64{1, 2, 3, 5})
}

func TestLinearRegressionFit(t *testing.T) {
	X, y := smallData()
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	assert.InDelta(t, 0.8, lr.GetIntercept(), 1e-12)
	assert.InDeltaSlice(t, []float64{1.3}, lr.GetWeights(), 1e-12)
	assert.InDeltaSlice(t, []float64{0.8, 1.3}, lr.Coefficients(), 1e-12)

	// SE(slope) = sqrt(σ²/Sxx), SE(intercept) = sqrt(σ²(1/n + x̄²/Sxx))
	assert.InDelta(t, math.Sqrt(0.03), lr.StdErrors[1], 1e-10)
	assert.InDelta(t, math.Sqrt(0.105), lr.StdErrors[0], 1e-10)
	assert.InDelta(t, math.Sqrt(0.15), lr.Sigma, 1e-12)
	assert.Equal(t, 2, lr.DFResid)
	assert.InDelta(t, 1-0.3/8.75, lr.RSquared, 1e-12)

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, lr.RSquared, score, 1e-12)

	tv := lr.TValues()
	assert.InDelta(t, 1.3/math.Sqrt(0.03), tv[1], 1e-9)
	p := lr.PValues()
	require.Len(t, p, 2)
	for _, v := range p {
		assert.True(t, v > 0 && v < 1)
	}
	assert.Less(t, p[1], p[0], "the slope is more significant than the intercept")
}

func TestLinearRegressionWithoutIntercept(t *testing.T) {
	// 切片列を含むデザイン行列を渡す
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 1,
		1, 2,
		1, 3,
	})
	_, y := smallData()

	lr := NewLinearRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.Zero(t, lr.GetIntercept())
	assert.InDeltaSlice(t, []float64{0.8, 1.3}, lr.Coefficients(), 1e-12)
	assert.InDelta(t, math.Sqrt(0.03), lr.StdErrors[1], 1e-10)
	assert.Equal(t, false, lr.GetParams()["fit_intercept"])
}

func TestLinearRegressionPredict(t *testing.T) {
	X, y := smallData()
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	pred, err := lr.Predict(mat.NewDense(2, 1, []float64{4, 10}))
	require.NoError(t, err)
	assert.InDelta(t, 6.0, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 13.8, pred.At(1, 0), 1e-12)

	_, err = lr.Predict(mat.NewDense(2, 2, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestLinearRegressionLinearProbability(t *testing.T) {
	// 二値応答: 処置群の寄付率 0.5、対照群 0.25
	X := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 1, 0, 1, 0, 1})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.InDelta(t, 0.25, lr.GetIntercept(), 1e-12)
	assert.InDelta(t, 0.25, lr.GetWeights()[0], 1e-12)
}

func TestLinearRegressionErrors(t *testing.T) {
	tests := []struct {
		name  string
		X, y  mat.Matrix
		check func(t *testing.T, err error)
	}{
		{
			name: "empty",
			X:    &mat.Dense{},
			y:    mat.NewDense(1, 1, nil),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errors.ErrEmptyData))
			},
		},
		{
			name: "row mismatch",
			X:    mat.NewDense(3, 1, []float64{1, 2, 3}),
			y:    mat.NewDense(2, 1, []float64{1, 2}),
			check: func(t *testing.T, err error) {
				var de *errors.DimensionError
				assert.True(t, errors.As(err, &de))
			},
		},
		{
			name: "y not a column",
			X:    mat.NewDense(2, 1, []float64{1, 2}),
			y:    mat.NewDense(2, 2, nil),
			check: func(t *testing.T, err error) {
				var ve *errors.ValueError
				assert.True(t, errors.As(err, &ve))
			},
		},
		{
			name: "too few rows",
			X:    mat.NewDense(2, 1, []float64{1, 2}),
			y:    mat.NewDense(2, 1, []float64{1, 2}),
			check: func(t *testing.T, err error) {
				var ide *errors.InsufficientDataError
				assert.True(t, errors.As(err, &ide))
			},
		},
		{
			name: "non-finite y",
			X:    mat.NewDense(3, 1, []float64{1, 2, 3}),
			y:    mat.NewDense(3, 1, []float64{1, math.NaN(), 3}),
			check: func(t *testing.T, err error) {
				var ve *errors.ValueError
				assert.True(t, errors.As(err, &ve))
			},
		},
		{
			name: "collinear",
			X:    mat.NewDense(4, 2, []float64{1, 1, 2, 2, 3, 3, 4, 4}),
			y:    mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errors.ErrSingularMatrix))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression()
			err := lr.Fit(tt.X, tt.y)
			require.Error(t, err)
			tt.check(t, err)
			assert.False(t, lr.IsFitted())
		})
	}
}

func TestLinearRegressionNotFitted(t *testing.T) {
	lr := NewLinearRegression()
	var nfe *errors.NotFittedError

	_, err := lr.Predict(mat.NewDense(1, 1, nil))
	assert.True(t, errors.As(err, &nfe))
	_, err = lr.ExportWeights()
	assert.True(t, errors.As(err, &nfe))
	assert.Nil(t, lr.Coefficients())
	assert.Nil(t, lr.PValues())
	assert.Zero(t, lr.GetIntercept())
}

func TestLinearRegressionWeightsRoundTrip(t *testing.T) {
	X, y := smallData()
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	w, err := lr.ExportWeights()
	require.NoError(t, err)
	assert.Equal(t, "LinearRegression", w.ModelType)
	data, err := w.ToJSON()
	require.NoError(t, err)

	var decoded model.ModelWeights
	require.NoError(t, decoded.FromJSON(data))
	restored := NewLinearRegression()
	require.NoError(t, restored.ImportWeights(&decoded))

	assert.InDeltaSlice(t, lr.Coefficients(), restored.Coefficients(), 1e-12)
	assert.InDeltaSlice(t, lr.StdErrors, restored.StdErrors, 1e-12)
	assert.InDelta(t, lr.RSquared, restored.RSquared, 1e-12)
	assert.Equal(t, lr.DFResid, restored.DFResid)

	want, err := lr.Predict(X)
	require.NoError(t, err)
	got, err := restored.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))

	assert.Error(t, restored.ImportWeights(&model.ModelWeights{
		ModelType: "PoissonRegressor", Version: model.WeightsVersion,
		Coefficients: []float64{1}, IsFitted: true,
	}))
}

func TestLinearRegressionRejectedImportKeepsModel(t *testing.T) {
	X, y := smallData()
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	before := lr.Coefficients()
	beforeSE := append([]float64(nil), lr.StdErrors...)

	// 切片だけで特徴量の係数がない
	err := lr.ImportWeights(&model.ModelWeights{
		ModelType:    "LinearRegression",
		Version:      model.WeightsVersion,
		Coefficients: []float64{42},
		IsFitted:     true,
	})
	var ve *errors.ValueError
	require.True(t, errors.As(err, &ve), "got %v", err)

	assert.True(t, lr.IsFitted())
	assert.Equal(t, before, lr.Coefficients())
	assert.Equal(t, beforeSE, lr.StdErrors)
	pred, err := lr.Predict(mat.NewDense(1, 1, []float64{4}))
	require.NoError(t, err)
	assert.InDelta(t, 6.0, pred.At(0, 0), 1e-12)
}
