package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/forest-guardian/lst-ndvi-cli/internal/archive"
	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/forest-guardian/lst-ndvi-cli/internal/region"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTransform = raster.GeoTransform{87.0, 0.01, 0, 23.04, 0, -0.01}

// leftHalf covers columns 0 and 1 of the 4x4 test grid.
func leftHalf(t *testing.T) *region.Region {
	t.Helper()
	r, err := region.New("left", orb.Polygon{{
		{87.0, 23.0}, {87.02, 23.0}, {87.02, 23.04}, {87.0, 23.04}, {87.0, 23.0},
	}})
	require.NoError(t, err)
	return r
}

func whole(t *testing.T) *region.Region {
	t.Helper()
	r, err := region.New("whole", orb.Polygon{{
		{86.9, 22.9}, {87.1, 22.9}, {87.1, 23.1}, {86.9, 23.1}, {86.9, 22.9},
	}})
	require.NoError(t, err)
	return r
}

func constantBand(name string, w, h int, v float64) *raster.Band {
	b := raster.NewBand(name, w, h)
	for i := range b.Data {
		b.Data[i] = v
	}
	return b
}

func sceneImage(t *testing.T, red, nir, tir float64) *raster.Image {
	t.Helper()
	img, err := raster.NewImage(4, 4, testTransform, raster.EPSGWGS84).AddBands(
		constantBand(bandmath.BandRed, 4, 4, red),
		constantBand(bandmath.BandNIR, 4, 4, nir),
		constantBand(bandmath.BandThermal, 4, 4, tir),
	)
	require.NoError(t, err)
	return img
}

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func testQuery(r *region.Region) archive.Query {
	return archive.Query{Region: r, Start: date("2024-04-01"), End: date("2024-07-30"), MaxCloudCover: 10}
}

func TestMedian(t *testing.T) {
	t.Parallel()
	nan := math.NaN()

	cases := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd", []float64{5, 1, 3}, 3},
		{"even averages middle pair", []float64{4, 1, 3, 2}, 2.5},
		{"nan ignored", []float64{nan, 7, 1, nan, 4}, 4},
		{"single", []float64{9}, 9},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, median(tc.values))
		})
	}
	assert.True(t, math.IsNaN(median([]float64{nan, nan})))
	assert.True(t, math.IsNaN(median(nil)))
}

func TestLoadComposite(t *testing.T) {
	t.Parallel()

	t.Run("median of matching scenes clipped to region", func(t *testing.T) {
		t.Parallel()
		src := NewLocal(archive.NewMemory(
			archive.Scene{ID: "a", Date: date("2024-04-10"), CloudCover: 2, Image: sceneImage(t, 100, 400, 20000)},
			archive.Scene{ID: "b", Date: date("2024-05-10"), CloudCover: 5, Image: sceneImage(t, 300, 800, 22000)},
			archive.Scene{ID: "c", Date: date("2024-06-10"), CloudCover: 9, Image: sceneImage(t, 200, 600, 30000)},
			archive.Scene{ID: "cloudy", Date: date("2024-06-20"), CloudCover: 60, Image: sceneImage(t, 9999, 9999, 9999)},
		))

		img, err := src.LoadComposite(context.Background(), testQuery(leftHalf(t)))
		require.NoError(t, err)
		assert.Equal(t, []string{bandmath.BandRed, bandmath.BandNIR, bandmath.BandThermal}, img.BandNames())

		red, err := img.Band(bandmath.BandRed)
		require.NoError(t, err)
		tir, err := img.Band(bandmath.BandThermal)
		require.NoError(t, err)
		for y := 0; y < 4; y++ {
			assert.Equal(t, 200.0, red.At(0, y))
			assert.Equal(t, 22000.0, tir.At(1, y))
			assert.True(t, math.IsNaN(red.At(2, y)), "column 2 lies outside the region")
			assert.True(t, math.IsNaN(tir.At(3, y)), "column 3 lies outside the region")
		}
	})

	t.Run("empty collection", func(t *testing.T) {
		t.Parallel()
		src := NewLocal(archive.NewMemory(
			archive.Scene{ID: "cloudy", Date: date("2024-06-20"), CloudCover: 60, Image: sceneImage(t, 1, 1, 1)},
		))
		_, err := src.LoadComposite(context.Background(), testQuery(whole(t)))
		assert.ErrorIs(t, err, ErrEmptyCollection)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		t.Parallel()
		small, err := raster.NewImage(2, 2, testTransform, raster.EPSGWGS84).AddBands(
			constantBand(bandmath.BandRed, 2, 2, 1),
			constantBand(bandmath.BandNIR, 2, 2, 1),
			constantBand(bandmath.BandThermal, 2, 2, 1),
		)
		require.NoError(t, err)
		src := NewLocal(archive.NewMemory(
			archive.Scene{ID: "a", Date: date("2024-04-10"), CloudCover: 2, Image: sceneImage(t, 1, 1, 1)},
			archive.Scene{ID: "b", Date: date("2024-05-10"), CloudCover: 2, Image: small},
		))
		_, err = src.LoadComposite(context.Background(), testQuery(whole(t)))
		assert.ErrorIs(t, err, raster.ErrShapeMismatch)
	})

	t.Run("grid mismatch", func(t *testing.T) {
		t.Parallel()
		shifted := testTransform
		shifted[0] += 0.02
		moved, err := raster.NewImage(4, 4, shifted, raster.EPSGWGS84).AddBands(
			constantBand(bandmath.BandRed, 4, 4, 5000),
			constantBand(bandmath.BandNIR, 4, 4, 5000),
			constantBand(bandmath.BandThermal, 4, 4, 5000),
		)
		require.NoError(t, err)
		src := NewLocal(archive.NewMemory(
			archive.Scene{ID: "a", Date: date("2024-04-10"), CloudCover: 2, Image: sceneImage(t, 1000, 1000, 1000)},
			archive.Scene{ID: "b", Date: date("2024-05-10"), CloudCover: 2, Image: moved},
		))
		_, err = src.LoadComposite(context.Background(), testQuery(whole(t)))
		assert.ErrorIs(t, err, raster.ErrGridMismatch)
	})

	t.Run("projection mismatch", func(t *testing.T) {
		t.Parallel()
		utm, err := raster.NewImage(4, 4, testTransform, 32645).AddBands(
			constantBand(bandmath.BandRed, 4, 4, 1),
			constantBand(bandmath.BandNIR, 4, 4, 1),
			constantBand(bandmath.BandThermal, 4, 4, 1),
		)
		require.NoError(t, err)
		src := NewLocal(archive.NewMemory(
			archive.Scene{ID: "a", Date: date("2024-04-10"), CloudCover: 2, Image: sceneImage(t, 1, 1, 1)},
			archive.Scene{ID: "b", Date: date("2024-05-10"), CloudCover: 2, Image: utm},
		))
		_, err = src.LoadComposite(context.Background(), testQuery(whole(t)))
		assert.ErrorIs(t, err, raster.ErrGridMismatch)
	})
}

func TestEvaluate(t *testing.T) {
	t.Parallel()
	src := NewLocal(archive.NewMemory())
	img := sceneImage(t, 0.1, 0.5, 20000)

	out, err := src.Evaluate(context.Background(), img, bandmath.NDVIExpression())
	require.NoError(t, err)
	ndvi, err := out.Band(bandmath.BandNDVI)
	require.NoError(t, err)
	assert.InDelta(t, 0.667, ndvi.At(2, 2), 1e-3)
	assert.NotContains(t, img.BandNames(), bandmath.BandNDVI, "input image is left untouched")

	_, err = src.Evaluate(context.Background(), out, bandmath.NDVIExpression())
	assert.ErrorIs(t, err, raster.ErrDuplicateBand)

	_, err = src.Evaluate(context.Background(), img, bandmath.LSTExpression())
	assert.ErrorIs(t, err, ErrUnknownBand)
}

func gradientImage(t *testing.T) *raster.Image {
	t.Helper()
	lst := raster.NewBand(bandmath.BandLST, 4, 4)
	ndvi := raster.NewBand(bandmath.BandNDVI, 4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			lst.Set(x, y, float64(30+x+4*y))
			ndvi.Set(x, y, 0.8-0.05*float64(x+4*y))
		}
	}
	lst.Set(0, 0, math.NaN())
	img, err := raster.NewImage(4, 4, testTransform, raster.EPSGWGS84).AddBands(lst, ndvi)
	require.NoError(t, err)
	return img
}

func TestReduceRegion(t *testing.T) {
	t.Parallel()
	src := NewLocal(archive.NewMemory())
	img := gradientImage(t)

	rec, err := src.ReduceRegion(context.Background(), img, bandmath.BandLST, ReduceRequest{Region: leftHalf(t), Scale: 30, MaxPixels: 1e13})
	require.NoError(t, err)
	// left half: x in {0,1}, (0,0) is NaN
	assert.Equal(t, 31.0, rec["LST_min"])
	assert.Equal(t, 43.0, rec["LST_max"])
	assert.InDelta(t, (31.0+34+35+38+39+42+43)/7, rec["LST_mean"], 1e-12)

	_, err = src.ReduceRegion(context.Background(), img, bandmath.BandLST, ReduceRequest{Region: whole(t), Scale: 30, MaxPixels: 5})
	assert.ErrorIs(t, err, stats.ErrTooManyPixels)

	_, err = src.ReduceRegion(context.Background(), img, "B99", ReduceRequest{Region: whole(t)})
	assert.ErrorIs(t, err, ErrUnknownBand)

	empty := raster.NewBand("EMPTY", 4, 4)
	withEmpty, err := img.AddBands(empty)
	require.NoError(t, err)
	rec, err = src.ReduceRegion(context.Background(), withEmpty, "EMPTY", ReduceRequest{Region: whole(t)})
	require.NoError(t, err)
	assert.Empty(t, rec)

	// NaN pixels still count against the pixel budget
	_, err = src.ReduceRegion(context.Background(), withEmpty, "EMPTY", ReduceRequest{Region: whole(t), Scale: 30, MaxPixels: 15})
	assert.ErrorIs(t, err, stats.ErrTooManyPixels)
	_, err = src.ReduceRegion(context.Background(), withEmpty, "EMPTY", ReduceRequest{Region: whole(t), Scale: 30, MaxPixels: 16})
	assert.NoError(t, err)
}

func TestSample(t *testing.T) {
	t.Parallel()
	src := NewLocal(archive.NewMemory())
	img := gradientImage(t)
	req := SampleRequest{
		Region:    whole(t),
		Bands:     []string{bandmath.BandLST, bandmath.BandNDVI},
		Scale:     30,
		NumPixels: 6,
		Seed:      42,
	}

	t.Run("distinct valid pixels", func(t *testing.T) {
		t.Parallel()
		table, err := src.Sample(context.Background(), img, req)
		require.NoError(t, err)
		require.Equal(t, 6, table.Len())
		seen := map[[2]int]bool{}
		for _, row := range table.Rows {
			key := [2]int{row.X, row.Y}
			assert.False(t, seen[key], "pixel %v drawn twice", key)
			seen[key] = true
			assert.False(t, row.X == 0 && row.Y == 0, "NaN pixel sampled")
			assert.Len(t, row.Values, 2)
		}
	})

	t.Run("seeded draws repeat", func(t *testing.T) {
		t.Parallel()
		a, err := src.Sample(context.Background(), img, req)
		require.NoError(t, err)
		b, err := src.Sample(context.Background(), img, req)
		require.NoError(t, err)
		assert.Equal(t, a.Rows, b.Rows)
	})

	t.Run("more than available returns every valid pixel", func(t *testing.T) {
		t.Parallel()
		big := req
		big.NumPixels = 1000
		table, err := src.Sample(context.Background(), img, big)
		require.NoError(t, err)
		assert.Equal(t, 15, table.Len())

		r, err := table.Correlate(bandmath.BandNDVI, bandmath.BandLST)
		require.NoError(t, err)
		assert.InDelta(t, -1.0, r, 1e-9)
	})

	t.Run("unknown band", func(t *testing.T) {
		t.Parallel()
		bad := req
		bad.Bands = []string{"B99"}
		_, err := src.Sample(context.Background(), img, bad)
		assert.ErrorIs(t, err, ErrUnknownBand)
	})
}
