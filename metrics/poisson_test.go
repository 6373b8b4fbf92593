package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistat/pkg/errors"
)

func TestMeanPoissonDeviance(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{2, 0, 1, 4})
	yPred := mat.NewVecDense(4, []float64{0.5, 0.5, 2, 2})

	// 2*[2log4-1.5] + 2*0.5 + 2*[log0.5+1] + 2*[4log2-2], averaged
	want := (2*(2*math.Log(4)-1.5) + 2*0.5 + 2*(math.Log(0.5)+1) + 2*(4*math.Log(2)-2)) / 4
	got, err := MeanPoissonDeviance(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)

	got, err = MeanPoissonDeviance(yTrue, mat.NewVecDense(4, []float64{2, 1e-300, 1, 4}))
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 1e-12, "exact predictions have zero deviance")
}

func TestMeanPoissonDevianceRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
	}{
		{"negative target", []float64{-1, 2}, []float64{1, 1}},
		{"zero prediction", []float64{1, 2}, []float64{0, 1}},
		{"infinite prediction", []float64{1, 2}, []float64{math.Inf(1), 1}},
		{"nan target", []float64{math.NaN(), 2}, []float64{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MeanPoissonDeviance(mat.NewVecDense(2, tt.yTrue), mat.NewVecDense(2, tt.yPred))
			var ve *errors.ValueError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestD2PoissonScore(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{2, 3, 5, 7})

	t.Run("null model scores zero", func(t *testing.T) {
		got, err := D2PoissonScore(yTrue, mat.NewVecDense(4, []float64{4.25, 4.25, 4.25, 4.25}))
		require.NoError(t, err)
		assert.InDelta(t, 0, got, 1e-12)
	})

	t.Run("group means beat the null model", func(t *testing.T) {
		got, err := D2PoissonScore(yTrue, mat.NewVecDense(4, []float64{2.5, 2.5, 6, 6}))
		require.NoError(t, err)
		assert.Greater(t, got, 0.5)
		assert.Less(t, got, 1.0)
	})

	t.Run("single sample is undefined", func(t *testing.T) {
		warnings := silenceWarnings(t)
		got, err := D2PoissonScore(mat.NewVecDense(1, []float64{1}), mat.NewVecDense(1, []float64{1}))
		require.NoError(t, err)
		assert.True(t, math.IsNaN(got))
		require.Len(t, *warnings, 1)
		var w *errors.UndefinedMetricWarning
		assert.True(t, errors.As((*warnings)[0], &w))
	})

	t.Run("all zero targets", func(t *testing.T) {
		silenceWarnings(t)
		got, err := D2PoissonScore(mat.NewVecDense(3, nil), mat.NewVecDense(3, []float64{0.1, 0.1, 0.1}))
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	})
}
