package output

import (
	"fmt"
	"image/color"

	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const ScatterTitle = "CORRELATION BETWEEN LST AND NDVI"

// scatterPoints pairs NDVI (x) with LST (y).
func scatterPoints(samples stats.SampleTable) (plotter.XYs, error) {
	ndvi, err := samples.Column(bandmath.BandNDVI)
	if err != nil {
		return nil, err
	}
	lst, err := samples.Column(bandmath.BandLST)
	if err != nil {
		return nil, err
	}
	pts := make(plotter.XYs, len(ndvi))
	for i := range ndvi {
		pts[i] = plotter.XY{X: ndvi[i], Y: lst[i]}
	}
	return pts, nil
}

// RenderScatterPNG plots the sampled pairs with point size 1. The red
// trendline is drawn only when trend is non-nil.
func RenderScatterPNG(path string, samples stats.SampleTable, trend *stats.Trend) error {
	pts, err := scatterPoints(samples)
	if err != nil {
		return err
	}
	if len(pts) == 0 {
		return fmt.Errorf("no samples to plot")
	}

	p := plot.New()
	p.Title.Text = ScatterTitle
	p.X.Label.Text = "NDVI"
	p.Y.Label.Text = "LST (°C)"

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("error creating scatter: %w", err)
	}
	s.GlyphStyle.Radius = vg.Points(1)
	s.GlyphStyle.Color = color.RGBA{R: 51, G: 102, B: 204, A: 255}
	p.Add(s)
	p.Legend.Add(bandmath.BandLST, s)

	if trend != nil {
		line := plotter.NewFunction(trend.At)
		line.Color = color.RGBA{R: 255, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("Trendline", line)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save scatter: %w", err)
	}
	return nil
}
