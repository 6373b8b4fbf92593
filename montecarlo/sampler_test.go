package montecarlo

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scistat/pkg/errors"
	"github.com/YuminosukeSato/scistat/pkg/log"
)

const (
	pControl   = 0.018
	pTreatment = 0.022
)

func TestRunLLNConverges(t *testing.T) {
	means, err := RunLLN(pControl, pTreatment, 200000, 42)
	require.NoError(t, err)
	require.Len(t, means, 200000)

	assert.InDelta(t, pTreatment-pControl, means[len(means)-1], 0.002)
	for _, m := range means {
		assert.True(t, m >= -1 && m <= 1, "running mean out of range: %v", m)
	}
}

func TestRunLLNDeterministic(t *testing.T) {
	a, err := RunLLN(0.3, 0.6, 1000, 7)
	require.NoError(t, err)
	b, err := RunLLN(0.3, 0.6, 1000, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := RunLLN(0.3, 0.6, 1000, 8)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different seeds give different sequences")
}

func TestLLNSeqRestartable(t *testing.T) {
	seq, err := LLNSeq(0.3, 0.6, 500, 11)
	require.NoError(t, err)

	collect := func() []float64 {
		var out []float64
		for i, m := range seq {
			assert.Equal(t, len(out), i)
			out = append(out, m)
		}
		return out
	}
	first := collect()
	second := collect()
	assert.Equal(t, first, second)

	want, err := RunLLN(0.3, 0.6, 500, 11)
	require.NoError(t, err)
	assert.Equal(t, want, first)

	// 途中で打ち切れる
	n := 0
	for range seq {
		n++
		if n == 10 {
			break
		}
	}
	assert.Equal(t, 10, n)
}

func TestRunLLNFirstValueIsSingleDifference(t *testing.T) {
	means, err := RunLLN(0.5, 0.5, 50, 3)
	require.NoError(t, err)
	assert.Contains(t, []float64{-1, 0, 1}, means[0])
}

func TestRunCLTMatchesNormalApproximation(t *testing.T) {
	dists, err := RunCLT(pControl, pTreatment, []int{1000}, 2000, 42)
	require.NoError(t, err)
	require.Len(t, dists[1000], 2000)

	mean, std := stat.MeanStdDev(dists[1000], nil)
	assert.InDelta(t, pTreatment-pControl, mean, 0.001)

	want := math.Sqrt(pControl*(1-pControl)/1000 + pTreatment*(1-pTreatment)/1000)
	assert.InEpsilon(t, want, std, 0.2)
}

func TestRunCLTSpreadShrinksWithSize(t *testing.T) {
	dists, err := RunCLT(0.3, 0.5, []int{10, 100, 1000}, 500, 5)
	require.NoError(t, err)

	summaries := Summarize(0.3, 0.5, dists)
	require.Len(t, summaries, 3)
	for i, s := range summaries {
		assert.Equal(t, []int{10, 100, 1000}[i], s.Size)
		assert.Equal(t, 500, s.Reps)
		assert.InEpsilon(t, s.TheoreticalStdDev, s.StdDev, 0.2, "size %d", s.Size)
	}
	assert.Greater(t, summaries[0].StdDev, summaries[1].StdDev)
	assert.Greater(t, summaries[1].StdDev, summaries[2].StdDev)
}

func TestCLTParallelEqualsSequential(t *testing.T) {
	sizes := []int{20, 200}
	seq, err := NewSampler(0.2, 0.4, WithSeed(99), WithParallelThreshold(1<<30))
	require.NoError(t, err)
	par, err := NewSampler(0.2, 0.4, WithSeed(99), WithParallelThreshold(0))
	require.NoError(t, err)

	a, err := seq.CLT(sizes, 300)
	require.NoError(t, err)
	b, err := par.CLT(sizes, 300)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCLTIndependentOfSizeOrder(t *testing.T) {
	a, err := RunCLT(0.2, 0.4, []int{50, 500}, 100, 1)
	require.NoError(t, err)
	b, err := RunCLT(0.2, 0.4, []int{500, 50, 500}, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	single, err := RunCLT(0.2, 0.4, []int{500}, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, a[500], single[500])
}

func TestSamplerConcurrentUse(t *testing.T) {
	s, err := NewSampler(0.2, 0.4, WithSeed(3))
	require.NoError(t, err)
	want, err := s.CLT([]int{100}, 100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.CLT([]int{100}, 100)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestInvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"p_control above one", func() error { _, err := RunLLN(1.5, 0.5, 10, 1); return err }},
		{"p_control zero", func() error { _, err := RunLLN(0, 0.5, 10, 1); return err }},
		{"p_treatment one", func() error { _, err := RunCLT(0.5, 1, []int{10}, 10, 1); return err }},
		{"p_treatment nan", func() error { _, err := RunLLN(0.5, math.NaN(), 10, 1); return err }},
		{"n zero", func() error { _, err := RunLLN(0.5, 0.5, 0, 1); return err }},
		{"lazy n negative", func() error { _, err := LLNSeq(0.5, 0.5, -1, 1); return err }},
		{"reps zero", func() error { _, err := RunCLT(0.5, 0.5, []int{10}, 0, 1); return err }},
		{"empty sizes", func() error { _, err := RunCLT(0.5, 0.5, nil, 10, 1); return err }},
		{"negative size", func() error { _, err := RunCLT(0.5, 0.5, []int{10, -1}, 10, 1); return err }},
		{"negative threshold", func() error { _, err := NewSampler(0.5, 0.5, WithParallelThreshold(-1)); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var ipe *errors.InvalidParameterError
			assert.True(t, errors.As(err, &ipe), "got %v", err)
		})
	}

	_, err := RunLLN(1.5, 0.5, 10, 1)
	var ipe *errors.InvalidParameterError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, "p_control", ipe.ParamName)
}

func TestSamplerLogging(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	s, err := NewSampler(0.2, 0.4, WithSeed(5), WithLogger(logger))
	require.NoError(t, err)

	_, err = s.CLT([]int{10}, 5)
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("clt simulation finished"))
	assert.True(t, logger.ContainsField(log.OperationKey, log.OperationCLT))
	assert.True(t, logger.ContainsField(log.RandomSeedKey, 5.0))
	assert.True(t, logger.ContainsField(log.SampleSizeKey, 10.0))
}

func TestSummarizeEdgeCases(t *testing.T) {
	s := Summarize(0.5, 0.5, map[int][]float64{4: {0.25}})
	require.Len(t, s, 1)
	assert.Equal(t, 0.25, s[0].Mean)
	assert.True(t, math.IsNaN(s[0].StdDev))
	assert.InDelta(t, math.Sqrt(0.125), s[0].TheoreticalStdDev, 1e-12)
}

func BenchmarkCLT(b *testing.B) {
	s, err := NewSampler(pControl, pTreatment, WithSeed(1))
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < b.N; i++ {
		_, _ = s.CLT([]int{1000}, 200)
	}
}
