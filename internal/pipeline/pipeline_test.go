package pipeline

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/forest-guardian/lst-ndvi-cli/internal/archive"
	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/engine"
	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/forest-guardian/lst-ndvi-cli/internal/region"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gridSize = 6

var gridTransform = raster.GeoTransform{87.8, 0.01, 0, 23.3, 0, -0.01}

var sceneOffsets = []float64{0, 650, -420}

func dn(x, y int, offset float64) (red, nir, tir float64) {
	red = 7000 + 120*float64(x) + 45*float64(y) + offset/4
	nir = 11000 + 380*float64(y) - 60*float64(x) + offset/2
	tir = 24000 + 310*float64(x) - 170*float64(y) + offset
	return
}

func testArchive(t *testing.T) *archive.Memory {
	t.Helper()
	var scenes []archive.Scene
	for i, off := range sceneOffsets {
		red := raster.NewBand(bandmath.BandRed, gridSize, gridSize)
		nir := raster.NewBand(bandmath.BandNIR, gridSize, gridSize)
		tir := raster.NewBand(bandmath.BandThermal, gridSize, gridSize)
		for y := 0; y < gridSize; y++ {
			for x := 0; x < gridSize; x++ {
				r, n, th := dn(x, y, off)
				red.Set(x, y, r)
				nir.Set(x, y, n)
				tir.Set(x, y, th)
			}
		}
		img, err := raster.NewImage(gridSize, gridSize, gridTransform, raster.EPSGWGS84).AddBands(red, nir, tir)
		require.NoError(t, err)
		scenes = append(scenes, archive.Scene{
			ID:         "scene",
			Date:       time.Date(2024, 4, 10+20*i, 0, 0, 0, 0, time.UTC),
			CloudCover: 4,
			Image:      img,
		})
	}
	// outside the window, must not shift the median
	scenes = append(scenes, archive.Scene{
		ID:         "late",
		Date:       time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		CloudCover: 1,
		Image:      scenes[0].Image,
	})
	return archive.NewMemory(scenes...)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	r, err := region.New("grid", orb.Polygon{{
		{87.79, 23.24}, {87.87, 23.24}, {87.87, 23.31}, {87.79, 23.31}, {87.79, 23.24},
	}})
	require.NoError(t, err)
	return Config{
		Region:        r,
		Start:         time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 7, 30, 0, 0, 0, 0, time.UTC),
		MaxCloudCover: 10,
		Scale:         30,
		MaxPixels:     1e13,
		SampleSize:    1000,
		SampleSeed:    1,
	}
}

// reference recomputes LST and NDVI per pixel straight from the published
// Landsat 8 formulas.
func reference() (lst, ndvi []float64) {
	for y := 0; y < gridSize; y++ {
		for x := 0; x < gridSize; x++ {
			var reds, nirs, tirs []float64
			for _, off := range sceneOffsets {
				r, n, th := dn(x, y, off)
				reds, nirs, tirs = append(reds, r), append(nirs, n), append(tirs, th)
			}
			red, nir, tir := mid(reds), mid(nirs), mid(tirs)

			v := (nir - red) / (nir + red)
			e := v*0.0003342 + 0.1
			l := tir*0.0003342 + 0.1
			bt := 1321.0789/math.Log(774.8853/l+1) - 273.15
			lst = append(lst, bt/(1+(0.00115*bt/1.4388)*math.Log(e)))
			ndvi = append(ndvi, v)
		}
	}
	return lst, ndvi
}

func mid(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	return s[len(s)/2]
}

func pearson(x, y []float64) float64 {
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(len(x))
	my /= float64(len(y))
	var sxy, sxx, syy float64
	for i := range x {
		sxy += (x[i] - mx) * (y[i] - my)
		sxx += (x[i] - mx) * (x[i] - mx)
		syy += (y[i] - my) * (y[i] - my)
	}
	return sxy / math.Sqrt(sxx*syy)
}

func TestRunMatchesReference(t *testing.T) {
	t.Parallel()
	session, err := Run(context.Background(), engine.NewLocal(testArchive(t)), testConfig(t))
	require.NoError(t, err)

	wantLST, wantNDVI := reference()
	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, v := range wantLST {
		lo, hi, sum = math.Min(lo, v), math.Max(hi, v), sum+v
	}

	assert.InDelta(t, lo, session.Stats["LST_min"], 0.005)
	assert.InDelta(t, hi, session.Stats["LST_max"], 0.005)
	assert.InDelta(t, sum/float64(len(wantLST)), session.Stats["LST_mean"], 0.005)

	require.NoError(t, session.CorrelationErr)
	assert.Equal(t, gridSize*gridSize, session.Samples.Len())
	assert.InDelta(t, pearson(wantNDVI, wantLST), session.Correlation, 0.00005)
	assert.GreaterOrEqual(t, session.Correlation, -1.0)
	assert.LessOrEqual(t, session.Correlation, 1.0)

	wantTrend, err := stats.Trendline(wantNDVI, wantLST)
	require.NoError(t, err)
	assert.InDelta(t, wantTrend.Slope, session.Trend.Slope, 1e-6)
	assert.InDelta(t, wantTrend.Intercept, session.Trend.Intercept, 1e-6)

	assert.Equal(t, []string{
		bandmath.BandRed, bandmath.BandNIR, bandmath.BandThermal,
		bandmath.BandNDVI, bandmath.BandEmissivity, bandmath.BandBrightnessTemp, bandmath.BandLST,
	}, session.Image.BandNames())
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "grid", session.Region().Name)
}

func TestRunEmptyCollection(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.MaxCloudCover = 3
	_, err := Run(context.Background(), engine.NewLocal(testArchive(t)), cfg)
	assert.ErrorIs(t, err, engine.ErrEmptyCollection)
}

func TestRunDegenerateSample(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.SampleSize = 1
	session, err := Run(context.Background(), engine.NewLocal(testArchive(t)), cfg)
	require.NoError(t, err)
	assert.ErrorIs(t, session.CorrelationErr, stats.ErrDegenerateSample)
	assert.Len(t, session.Stats, 3)
}

func TestRunTooManyPixels(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.MaxPixels = 10
	_, err := Run(context.Background(), engine.NewLocal(testArchive(t)), cfg)
	assert.ErrorIs(t, err, stats.ErrTooManyPixels)
}
