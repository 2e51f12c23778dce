package output

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/pipeline"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"github.com/forest-guardian/lst-ndvi-cli/internal/view"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// maxReportPoints bounds the pixels embedded per map chart.
const maxReportPoints = 40_000

// RenderReport writes an interactive page with the LST and NDVI maps, the
// statistics and the correlation scatter.
func RenderReport(w io.Writer, s *pipeline.Session, m view.Model) error {
	lstChart, err := mapChart(s, m.LSTVis, view.Heading(bandmath.BandLST, m.DisplayName), statsSubtitle(m.Stats))
	if err != nil {
		return err
	}
	ndviChart, err := mapChart(s, m.NDVIVis, view.Heading(bandmath.BandNDVI, m.DisplayName), "")
	if err != nil {
		return err
	}
	scatter, err := correlationChart(s, m)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("LST and NDVI of %s", m.DisplayName)
	page.AddCharts(lstChart, ndviChart, scatter)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func RenderReportHTML(path string, s *pipeline.Session, m view.Model) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()
	return RenderReport(file, s, m)
}

func statsSubtitle(rec stats.Record) string {
	rows := rec.Table(bandmath.BandLST)
	return fmt.Sprintf("%s: %s: %s, %s: %s, %s: %s", view.StatsTitle,
		rows[0].Label, rows[0].Value, rows[1].Label, rows[1].Value, rows[2].Label, rows[2].Value)
}

func withHash(palette []string) []string {
	out := make([]string, len(palette))
	for i, c := range palette {
		out[i] = "#" + c
	}
	return out
}

func mapChart(s *pipeline.Session, vis view.VisParams, title, subtitle string) (*charts.Scatter, error) {
	img := s.Image
	band, err := img.Band(vis.Band)
	if err != nil {
		return nil, err
	}
	stride := 1
	if n := img.Width * img.Height; n > maxReportPoints {
		stride = int(math.Ceil(math.Sqrt(float64(n) / maxReportPoints)))
	}

	data := make([]opts.ScatterData, 0, img.Width*img.Height/(stride*stride)+1)
	for y := 0; y < img.Height; y += stride {
		for x := 0; x < img.Width; x += stride {
			v := band.At(x, y)
			if math.IsNaN(v) {
				continue
			}
			lon, lat := img.Transform.PixelCenter(x, y)
			data = append(data, opts.ScatterData{Value: []interface{}{lon, lat, v}})
		}
	}

	b := s.Region().Bound()
	chart := charts.NewScatter()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: b.Min.X(), Max: b.Max.X(), Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: b.Min.Y(), Max: b.Max.Y(), Name: "Latitude", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(vis.Min),
			Max:        float32(vis.Max),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: withHash(vis.Palette)},
		}),
	)
	chart.AddSeries(vis.Band, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return chart, nil
}

func correlationChart(s *pipeline.Session, m view.Model) (*charts.Scatter, error) {
	pts, err := scatterPoints(s.Samples)
	if err != nil {
		return nil, err
	}
	data := make([]opts.ScatterData, len(pts))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, p := range pts {
		data[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
		lo, hi = math.Min(lo, p.X), math.Max(hi, p.X)
	}

	chart := charts.NewScatter()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: ScatterTitle, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: ScatterTitle, Subtitle: fmt.Sprintf("Correlation between LST and NDVI: %s", m.Correlation)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "NDVI", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "LST (°C)", NameLocation: "middle", NameGap: 40}),
	)
	chart.AddSeries(bandmath.BandLST, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))

	if s.CorrelationErr == nil && len(pts) > 1 {
		const steps = 50
		line := make([]opts.ScatterData, 0, steps+1)
		for i := 0; i <= steps; i++ {
			x := lo + (hi-lo)*float64(i)/steps
			line = append(line, opts.ScatterData{Value: []interface{}{x, s.Trend.At(x)}})
		}
		chart.AddSeries("Trendline", line,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "red"}),
		)
	}
	return chart, nil
}
