package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/forest-guardian/lst-ndvi-cli/internal/archive"
	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/engine"
	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/forest-guardian/lst-ndvi-cli/internal/region"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Region        *region.Region
	Start         time.Time
	End           time.Time
	MaxCloudCover float64
	Scale         float64
	MaxPixels     float64
	SampleSize    int
	SampleSeed    int64
}

// Session is the outcome of one run. Image carries the raw composite bands
// followed by NDVI, EMISSIVITY, BRIGHTNESS_TEMP and LST.
type Session struct {
	ID        string
	Config    Config
	Image     *raster.Image
	Stats     stats.Record
	Samples   stats.SampleTable
	CreatedAt time.Time

	Correlation float64
	// CorrelationErr is set when the sample cannot support a correlation;
	// Correlation and Trend are then meaningless.
	CorrelationErr error
	Trend          stats.Trend
}

func (s *Session) Region() *region.Region {
	return s.Config.Region
}

// derivedBands are evaluated in order; each depends only on earlier bands.
var derivedBands = []func() bandmath.Expression{
	bandmath.NDVIExpression,
	bandmath.EmissivityExpression,
	bandmath.BrightnessTempExpression,
	bandmath.LSTExpression,
}

// Run builds the composite, derives the LST and NDVI bands, then reduces LST
// statistics and samples LST/NDVI pairs concurrently.
func Run(ctx context.Context, src engine.DataSource, cfg Config) (*Session, error) {
	if cfg.Region == nil {
		return nil, errors.New("pipeline: no region configured")
	}
	session := &Session{
		ID:        uuid.NewString(),
		Config:    cfg,
		CreatedAt: time.Now(),
	}

	log.Printf("Loading composite for %s (%s to %s, cloud cover < %g)",
		cfg.Region.Name, cfg.Start.Format("2006-01-02"), cfg.End.Format("2006-01-02"), cfg.MaxCloudCover)
	img, err := src.LoadComposite(ctx, archive.Query{
		Region:        cfg.Region,
		Start:         cfg.Start,
		End:           cfg.End,
		MaxCloudCover: cfg.MaxCloudCover,
	})
	if err != nil {
		return nil, err
	}

	for _, expr := range derivedBands {
		e := expr()
		if img, err = src.Evaluate(ctx, img, e); err != nil {
			return nil, fmt.Errorf("error computing %s: %w", e.Name, err)
		}
	}
	session.Image = img

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := src.ReduceRegion(gctx, img, bandmath.BandLST, engine.ReduceRequest{
			Region:    cfg.Region,
			Scale:     cfg.Scale,
			MaxPixels: cfg.MaxPixels,
		})
		if err != nil {
			return fmt.Errorf("error reducing LST: %w", err)
		}
		session.Stats = rec
		return nil
	})
	g.Go(func() error {
		table, err := src.Sample(gctx, img, engine.SampleRequest{
			Region:    cfg.Region,
			Bands:     []string{bandmath.BandLST, bandmath.BandNDVI},
			Scale:     cfg.Scale,
			NumPixels: cfg.SampleSize,
			Seed:      cfg.SampleSeed,
		})
		if err != nil {
			return fmt.Errorf("error sampling: %w", err)
		}
		session.Samples = table
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(session.Stats) == 0 {
		log.Printf("Warning: no valid LST pixels inside %s", cfg.Region.Name)
	}

	session.Correlation, session.CorrelationErr = session.Samples.Correlate(bandmath.BandNDVI, bandmath.BandLST)
	if session.CorrelationErr != nil {
		log.Printf("Warning: correlation unavailable: %v", session.CorrelationErr)
		return session, nil
	}
	if session.Trend, err = session.Samples.Fit(bandmath.BandNDVI, bandmath.BandLST); err != nil {
		log.Printf("Warning: trendline unavailable: %v", err)
	}

	log.Printf("Session %s: %d samples, r = %s", session.ID, session.Samples.Len(), stats.FormatCorrelation(session.Correlation))
	return session, nil
}
