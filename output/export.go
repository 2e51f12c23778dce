package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/pipeline"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"github.com/forest-guardian/lst-ndvi-cli/internal/view"
)

type ExportOptions struct {
	GeoTIFF bool
}

// Artifacts lists the files written by Export, keyed by kind.
type Artifacts map[string]string

// ResultDir is data/result/<region>/<session id> under root.
func ResultDir(root string, s *pipeline.Session) string {
	return filepath.Join(root, "data", "result", s.Region().Name, s.ID)
}

// Export writes one map per dropdown item plus an AVI tour of them, the
// scatter chart, the HTML report, the CSV tables and optionally the derived bands as GeoTIFF.
func Export(dir string, s *pipeline.Session, m view.Model, o ExportOptions) (Artifacts, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create result folder: %w", err)
	}
	out := Artifacts{}

	c := view.NewController(m)
	frames := make([]string, 0, len(view.Items))
	for _, item := range view.Items {
		if err := c.Select(item); err != nil {
			return out, err
		}
		name := "map_" + strings.ToLower(strings.ReplaceAll(item, " ", "_"))
		path := filepath.Join(dir, name+".png")
		if err := RenderMapPNG(path, c.Scene(), m, s.Image); err != nil {
			return out, fmt.Errorf("error rendering %s: %w", item, err)
		}
		out[name] = path
		frames = append(frames, path)
	}

	path := filepath.Join(dir, "map_tour.avi")
	if err := RenderMapTour(frames, path, mapTourHold); err != nil {
		return out, err
	}
	out["map_tour"] = path

	if s.Samples.Len() > 0 {
		var trend *stats.Trend
		if s.CorrelationErr == nil {
			trend = &s.Trend
		}
		path := filepath.Join(dir, "scatter.png")
		if err := RenderScatterPNG(path, s.Samples, trend); err != nil {
			return out, err
		}
		out["scatter"] = path
	}

	path = filepath.Join(dir, "report.html")
	if err := RenderReportHTML(path, s, m); err != nil {
		return out, err
	}
	out["report"] = path

	path = filepath.Join(dir, "samples.csv")
	if err := WriteSamplesCSV(path, s.Samples); err != nil {
		return out, err
	}
	out["samples"] = path

	path = filepath.Join(dir, "stats.csv")
	if err := WriteStatsCSV(path, s); err != nil {
		return out, err
	}
	out["stats"] = path

	if o.GeoTIFF {
		path = filepath.Join(dir, "lst_ndvi.tif")
		if err := WriteGeoTIFF(path, s.Image, bandmath.BandNDVI, bandmath.BandEmissivity, bandmath.BandBrightnessTemp, bandmath.BandLST); err != nil {
			return out, err
		}
		out["geotiff"] = path
	}
	return out, nil
}
