package glm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistat/pkg/errors"
	"github.com/YuminosukeSato/scistat/pkg/log"
)

func twoGroupDesign() (*mat.Dense, []float64) {
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 0,
		1, 1,
		1, 1,
	})
	return X, []float64{2, 3, 5, 7}
}

func TestNegLogLikelihoodAtZero(t *testing.T) {
	X, y := twoGroupDesign()

	// η=0 のとき μ=1 なので NLL = Σ (1 + log(yᵢ!))
	want := 4 + math.Log(2) + math.Log(6) + math.Log(120) + math.Log(5040)
	got := NegLogLikelihood([]float64{0, 0}, X, y)
	assert.InDelta(t, want, got, 1e-10)
}

func TestNegLogLikelihoodClipsLinearPredictor(t *testing.T) {
	X := mat.NewDense(1, 1, []float64{1})
	y := []float64{0}

	atBound := NegLogLikelihood([]float64{DefaultEtaMax}, X, y)
	beyond := NegLogLikelihood([]float64{1e6}, X, y)
	assert.Equal(t, atBound, beyond, "η beyond the bound is clipped")
	assert.False(t, math.IsInf(beyond, 0))

	grad := make([]float64, 1)
	NegLogLikelihoodGrad(grad, []float64{1e6}, X, y)
	assert.Equal(t, 0.0, grad[0], "clipped observations do not contribute to the gradient")
}

func TestNegLogLikelihoodGradMatchesFiniteDifference(t *testing.T) {
	X := mat.NewDense(5, 3, []float64{
		1, 0.5, -1,
		1, -0.3, 0,
		1, 1.2, 1,
		1, 0.1, 0,
		1, -0.8, 1,
	})
	y := []float64{1, 0, 4, 2, 1}
	beta := []float64{0.2, -0.4, 0.3}

	grad := make([]float64, 3)
	NegLogLikelihoodGrad(grad, beta, X, y)

	want := fd.Gradient(nil, func(b []float64) float64 {
		return NegLogLikelihood(b, X, y)
	}, beta, nil)
	for j := range grad {
		assert.InDelta(t, want[j], grad[j], 1e-5, "component %d", j)
	}

	hess := mat.NewSymDense(3, nil)
	NegLogLikelihoodHess(hess, beta, X, y)
	// 勾配のヤコビアンを中心差分で求めて比較する
	wantHess := mat.NewDense(3, 3, nil)
	fd.Jacobian(wantHess, func(g, b []float64) {
		NegLogLikelihoodGrad(g, b, X, y)
	}, beta, &fd.JacobianSettings{Formula: fd.Central})
	assert.True(t, mat.EqualApprox(hess, wantHess, 1e-6), "analytic and numeric Hessians differ:\n%v\n%v",
		mat.Formatted(hess), mat.Formatted(wantHess))
}

func TestObjectiveSubstitutesPenalty(t *testing.T) {
	// lgamma(1e308+1) は +Inf なので目的関数が発散する
	X := mat.NewDense(2, 1, []float64{1, 1})
	y := []float64{1e308, 1e308}

	var events []*errors.NumericOverflowError
	cfg := defaultConfig()
	cfg.penalty = 123
	cfg.overflowHook = func(e *errors.NumericOverflowError) { events = append(events, e) }
	logger, _ := log.NewTestLogger(log.LevelDebug)

	obj := newPoissonObjective(X, y, cfg, logger)
	got := obj.Func([]float64{0})

	assert.Equal(t, 123.0, got)
	require.Len(t, events, 1)
	assert.Equal(t, "poisson_nll", events[0].Operation)
	assert.Equal(t, 1, events[0].Evaluation)
	assert.Equal(t, 1, obj.overflows)
	assert.True(t, logger.ContainsField(log.ErrorCodeKey, log.ErrorNumericOverflow))

	grad := []float64{math.NaN()}
	obj.Grad(grad, []float64{0})
	assert.Equal(t, 0.0, grad[0], "non-finite gradients are zeroed")
}

func BenchmarkNegLogLikelihood(b *testing.B) {
	const n, p = 10000, 5
	X := mat.NewDense(n, p, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j := 1; j < p; j++ {
			X.Set(i, j, float64((i*j)%7)/7)
		}
		y[i] = float64(i % 5)
	}
	beta := []float64{0.1, 0.2, -0.1, 0.05, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NegLogLikelihood(beta, X, y)
	}
}
