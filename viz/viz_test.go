package viz

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scistat/montecarlo"
	"github.com/YuminosukeSato/scistat/pkg/errors"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestPlotLLN(t *testing.T) {
	means, err := montecarlo.RunLLN(0.018, 0.022, 10000, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PlotLLN(&buf, means, 0.004, WithSize(4*vg.Inch, 3*vg.Inch)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
}

func TestPlotLLNSinglePoint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PlotLLN(&buf, []float64{0.5}, 0.5))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
}

func TestPlotCLT(t *testing.T) {
	dists, err := montecarlo.RunCLT(0.018, 0.022, []int{1000, 100}, 200, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PlotCLT(&buf, dists, WithBins(20)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
}

func TestPlotErrors(t *testing.T) {
	var buf bytes.Buffer

	err := PlotLLN(&buf, nil, 0)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	err = PlotCLT(&buf, map[int][]float64{})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	var ve *errors.ValueError
	err = PlotCLT(&buf, map[int][]float64{10: {0.1}})
	assert.True(t, errors.As(err, &ve))
	err = PlotCLT(&buf, map[int][]float64{10: {0.1, math.NaN()}})
	assert.True(t, errors.As(err, &ve))

	var ipe *errors.InvalidParameterError
	err = PlotLLN(&buf, []float64{1}, 1, WithSize(0, vg.Inch))
	assert.True(t, errors.As(err, &ipe))
	err = PlotCLT(&buf, map[int][]float64{10: {0.1, 0.2}}, WithBins(0))
	assert.True(t, errors.As(err, &ipe))

	assert.Zero(t, buf.Len())
}
