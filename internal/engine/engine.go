// Package engine runs the raster operations of an LST/NDVI session: building
// the cloud-filtered composite, evaluating band expressions, reducing a band
// over a region and drawing random pixel samples.
package engine

import (
	"context"
	"errors"

	"github.com/forest-guardian/lst-ndvi-cli/internal/archive"
	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/forest-guardian/lst-ndvi-cli/internal/region"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
)

var (
	ErrEmptyCollection = errors.New("no scenes match the date range and cloud cover filter")
	ErrUnknownBand     = raster.ErrUnknownBand
)

type ReduceRequest struct {
	Region *region.Region
	// Scale is the sampling step in metres.
	Scale float64
	// MaxPixels caps the pixels visited; 0 disables the cap.
	MaxPixels float64
}

type SampleRequest struct {
	Region    *region.Region
	Bands     []string
	Scale     float64
	NumPixels int
	// Seed 0 draws a time-based seed.
	Seed int64
}

type DataSource interface {
	LoadComposite(ctx context.Context, q archive.Query) (*raster.Image, error)
	Evaluate(ctx context.Context, img *raster.Image, expr bandmath.Expression) (*raster.Image, error)
	ReduceRegion(ctx context.Context, img *raster.Image, band string, req ReduceRequest) (stats.Record, error)
	Sample(ctx context.Context, img *raster.Image, req SampleRequest) (stats.SampleTable, error)
}
