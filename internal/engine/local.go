package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/forest-guardian/lst-ndvi-cli/internal/archive"
	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/forest-guardian/lst-ndvi-cli/internal/region"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"github.com/schollz/progressbar/v3"
)

// Local evaluates everything in process against an archive.
type Local struct {
	archive  archive.Archive
	progress bool
}

type Option func(*Local)

// WithProgress toggles the composite progress bar.
func WithProgress(enabled bool) Option {
	return func(l *Local) { l.progress = enabled }
}

func NewLocal(a archive.Archive, opts ...Option) *Local {
	l := &Local{archive: a}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadComposite builds the per-pixel median of the matching scenes, clipped
// to the query region.
func (l *Local) LoadComposite(ctx context.Context, q archive.Query) (*raster.Image, error) {
	scenes, err := l.archive.Scenes(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("error loading scenes: %w", err)
	}
	scenes = archive.Filter(scenes, q)
	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: %s to %s, cloud cover < %g",
			ErrEmptyCollection, q.Start.Format("2006-01-02"), q.End.Format("2006-01-02"), q.MaxCloudCover)
	}

	ref := scenes[0].Image
	bandNames := ref.BandNames()
	stacks := make(map[string][]*raster.Band, len(bandNames))
	for _, s := range scenes {
		if s.Image.Width != ref.Width || s.Image.Height != ref.Height {
			return nil, fmt.Errorf("%w: scene %s is %dx%d, expected %dx%d",
				raster.ErrShapeMismatch, s.ID, s.Image.Width, s.Image.Height, ref.Width, ref.Height)
		}
		if s.Image.Transform != ref.Transform || s.Image.EPSG != ref.EPSG {
			return nil, fmt.Errorf("%w: scene %s is EPSG:%d %v, expected EPSG:%d %v",
				raster.ErrGridMismatch, s.ID, s.Image.EPSG, s.Image.Transform, ref.EPSG, ref.Transform)
		}
		for _, name := range bandNames {
			b, err := s.Image.Band(name)
			if err != nil {
				return nil, fmt.Errorf("scene %s: %w", s.ID, err)
			}
			stacks[name] = append(stacks[name], b)
		}
	}

	var bar *progressbar.ProgressBar
	if l.progress {
		bar = progressbar.Default(int64(ref.Height), "Building median composite")
	} else {
		bar = progressbar.DefaultSilent(int64(ref.Height))
	}
	defer bar.Close()

	out := make([]*raster.Band, len(bandNames))
	for i, name := range bandNames {
		out[i] = raster.NewBand(name, ref.Width, ref.Height)
	}
	values := make([]float64, 0, len(scenes))
	for y := 0; y < ref.Height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < ref.Width; x++ {
			if q.Region != nil {
				lon, lat := ref.Transform.PixelCenter(x, y)
				if !q.Region.Contains(lon, lat) {
					continue
				}
			}
			for i, name := range bandNames {
				values = values[:0]
				for _, b := range stacks[name] {
					values = append(values, b.At(x, y))
				}
				out[i].Set(x, y, median(values))
			}
		}
		bar.Add(1)
	}

	return raster.NewImage(ref.Width, ref.Height, ref.Transform, ref.EPSG).AddBands(out...)
}

// median ignores NaN and averages the two middle values of an even count.
// values is reordered.
func median(values []float64) float64 {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			values[n] = v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	valid := values[:n]
	sort.Float64s(valid)
	mid := n / 2
	if n%2 == 0 {
		return (valid[mid-1] + valid[mid]) / 2
	}
	return valid[mid]
}

func (l *Local) Evaluate(ctx context.Context, img *raster.Image, expr bandmath.Expression) (*raster.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	band, err := bandmath.Apply(img, expr)
	if err != nil {
		return nil, err
	}
	return img.AddBands(band)
}

// ReduceRegion runs the min/max/mean reducer over the valid pixels of band
// inside the region, stepping by scale. MaxPixels bounds every visited pixel,
// valid or not.
func (l *Local) ReduceRegion(ctx context.Context, img *raster.Image, band string, req ReduceRequest) (stats.Record, error) {
	b, err := img.Band(band)
	if err != nil {
		return nil, err
	}

	var (
		values  []float64
		visited int
	)
	err = walk(ctx, img, req.Region, req.Scale, func(x, y int, _, _ float64) bool {
		visited++
		if req.MaxPixels > 0 && float64(visited) > req.MaxPixels {
			return false
		}
		if v := b.At(x, y); !math.IsNaN(v) {
			values = append(values, v)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if req.MaxPixels > 0 && float64(visited) > req.MaxPixels {
		return nil, fmt.Errorf("%w: more than %g pixels", stats.ErrTooManyPixels, req.MaxPixels)
	}
	return stats.Reduce(band, values), nil
}

// Sample draws up to NumPixels distinct pixels inside the region where every
// requested band is valid.
func (l *Local) Sample(ctx context.Context, img *raster.Image, req SampleRequest) (stats.SampleTable, error) {
	table := stats.SampleTable{Bands: append([]string(nil), req.Bands...)}
	bands := make([]*raster.Band, len(req.Bands))
	for i, name := range req.Bands {
		b, err := img.Band(name)
		if err != nil {
			return table, err
		}
		bands[i] = b
	}

	var candidates []stats.Sample
	err := walk(ctx, img, req.Region, req.Scale, func(x, y int, lon, lat float64) bool {
		values := make([]float64, len(bands))
		for i, b := range bands {
			v := b.At(x, y)
			if math.IsNaN(v) {
				return true
			}
			values[i] = v
		}
		candidates = append(candidates, stats.Sample{X: x, Y: y, Longitude: lon, Latitude: lat, Values: values})
		return true
	})
	if err != nil {
		return table, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	n := req.NumPixels
	if n > len(candidates) || n < 0 {
		n = len(candidates)
	}
	// partial Fisher-Yates
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	table.Rows = candidates[:n]
	return table, nil
}

// walk visits the pixels on the scale grid whose centres fall in r. fn
// returning false stops the walk.
func walk(ctx context.Context, img *raster.Image, r *region.Region, scale float64, fn func(x, y int, lon, lat float64) bool) error {
	step := img.Stride(scale)
	for y := 0; y < img.Height; y += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := 0; x < img.Width; x += step {
			lon, lat := img.Transform.PixelCenter(x, y)
			if r != nil && !r.Contains(lon, lat) {
				continue
			}
			if !fn(x, y, lon, lat) {
				return nil
			}
		}
	}
	return nil
}

var _ DataSource = (*Local)(nil)
