// Package viz renders Monte Carlo simulation output as PNG charts.
package viz

import (
	"fmt"
	"image/color"
	"io"
	"maps"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/YuminosukeSato/scistat/pkg/errors"
)

// maxLinePoints caps the number of vertices drawn for a running-mean line.
const maxLinePoints = 4000

var (
	lineColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	targetColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

type config struct {
	width  vg.Length
	height vg.Length
	bins   int
}

// Option configures a chart.
type Option func(*config)

// WithSize sets the image size. Defaults to 8x4 inches.
func WithSize(width, height vg.Length) Option {
	return func(c *config) {
		c.width = width
		c.height = height
	}
}

// WithBins sets the histogram bin count for PlotCLT. Defaults to 40.
func WithBins(bins int) Option {
	return func(c *config) {
		c.bins = bins
	}
}

func newConfig(opts []Option) (*config, error) {
	c := &config{width: 8 * vg.Inch, height: 4 * vg.Inch, bins: 40}
	for _, opt := range opts {
		opt(c)
	}
	if c.width <= 0 || c.height <= 0 {
		return nil, errors.NewInvalidParameterError("size", "must be positive", [2]vg.Length{c.width, c.height})
	}
	if c.bins <= 0 {
		return nil, errors.NewInvalidParameterError("bins", "must be positive", c.bins)
	}
	return c, nil
}

// PlotLLN draws the running means against the number of pairs with a
// horizontal reference line at target, and writes a PNG to w.
func PlotLLN(w io.Writer, means []float64, target float64, opts ...Option) error {
	cfg, err := newConfig(opts)
	if err != nil {
		return err
	}
	if len(means) == 0 {
		return errors.NewModelError("PlotLLN", "empty data", errors.ErrEmptyData)
	}

	stride := (len(means) + maxLinePoints - 1) / maxLinePoints
	pts := make(plotter.XYs, 0, len(means)/stride+1)
	for i := 0; i < len(means); i += stride {
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: means[i]})
	}
	if last := len(means) - 1; last%stride != 0 {
		pts = append(pts, plotter.XY{X: float64(last + 1), Y: means[last]})
	}

	p := plot.New()
	p.Title.Text = "Law of large numbers"
	p.X.Label.Text = "pairs drawn"
	p.Y.Label.Text = "running mean of treatment - control"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "PlotLLN: build line")
	}
	line.LineStyle.Color = lineColor

	ref := plotter.NewFunction(func(float64) float64 { return target })
	ref.LineStyle.Color = targetColor
	ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(plotter.NewGrid(), line, ref)
	p.Legend.Add("running mean", line)
	p.Legend.Add(fmt.Sprintf("true difference %.4f", target), ref)
	p.Legend.Top = true

	wt, err := p.WriterTo(cfg.width, cfg.height, "png")
	if err != nil {
		return errors.Wrap(err, "PlotLLN: render")
	}
	_, err = wt.WriteTo(w)
	return errors.Wrap(err, "PlotLLN: write")
}

// PlotCLT draws one density-normalized histogram per sample size, side by
// side in ascending size order, each overlaid with the normal density of
// matching mean and standard deviation, and writes a PNG to w.
func PlotCLT(w io.Writer, dists map[int][]float64, opts ...Option) error {
	cfg, err := newConfig(opts)
	if err != nil {
		return err
	}
	if len(dists) == 0 {
		return errors.NewModelError("PlotCLT", "empty data", errors.ErrEmptyData)
	}

	sizes := slices.Sorted(maps.Keys(dists))
	row := make([]*plot.Plot, len(sizes))
	for j, size := range sizes {
		p, err := histogram(size, dists[size], cfg.bins)
		if err != nil {
			return err
		}
		row[j] = p
	}

	img := vgimg.New(cfg.width, cfg.height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(row),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 2,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{row}, tiles, dc)
	for j, p := range row {
		p.Draw(canvases[0][j])
	}

	png := vgimg.PngCanvas{Canvas: img}
	_, err = png.WriteTo(w)
	return errors.Wrap(err, "PlotCLT: write")
}

func histogram(size int, values []float64, bins int) (*plot.Plot, error) {
	if len(values) < 2 {
		return nil, errors.NewValueError("PlotCLT", fmt.Sprintf("sample size %d has %d values, need at least 2", size, len(values)))
	}
	if i := errors.FirstNonFinite(values); i >= 0 {
		return nil, errors.NewValueError("PlotCLT", fmt.Sprintf("sample size %d has non-finite value at %d", size, i))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("n = %d", size)
	p.X.Label.Text = "difference in means"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return nil, errors.Wrapf(err, "PlotCLT: histogram for n=%d", size)
	}
	h.Normalize(1)
	h.FillColor = color.RGBA{R: 31, G: 119, B: 180, A: 128}

	mean, std := stat.MeanStdDev(values, nil)
	p.Add(h)
	if std > 0 {
		normal := distuv.Normal{Mu: mean, Sigma: std}
		curve := plotter.NewFunction(normal.Prob)
		curve.LineStyle.Color = targetColor
		curve.LineStyle.Width = vg.Points(1.5)
		p.Add(curve)
	}
	return p, nil
}
