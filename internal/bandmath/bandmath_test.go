package bandmath

import (
	"math"
	"testing"

	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNDVI(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.667, NDVI(0.5, 0.1), 1e-3)
	assert.True(t, math.IsNaN(NDVI(0, 0)))

	for nir := 0.0; nir <= 1.0; nir += 0.05 {
		for red := 0.0; red <= 1.0; red += 0.05 {
			if nir+red == 0 {
				continue
			}
			v := NDVI(nir, red)
			assert.GreaterOrEqual(t, v, -1.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestPlanckRoundTrip(t *testing.T) {
	t.Parallel()

	const btCelsius = 27.0
	l := RadianceForBrightnessTemp(btCelsius + KelvinOffset)
	assert.InDelta(t, K1/(math.Exp(K2/300.15)-1), l, 1e-12)
	assert.InDelta(t, btCelsius, BrightnessTemp(l), 1e-9)
}

func TestEmissivityAndRadiance(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.1, Emissivity(0), 1e-15)
	assert.InDelta(t, 0.1003342, Emissivity(1), 1e-12)
	assert.InDelta(t, 10.126, Radiance(30000), 1e-9)
}

func TestLST(t *testing.T) {
	t.Parallel()

	t.Run("unit emissivity leaves brightness temperature unchanged", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 30.0, LST(30, 1), 1e-12)
	})

	t.Run("low emissivity raises the surface temperature", func(t *testing.T) {
		t.Parallel()
		bt := 30.0
		want := bt / (1 + (0.00115*bt/1.4388)*math.Log(0.1))
		assert.InDelta(t, want, LST(bt, 0.1), 1e-12)
		assert.Greater(t, LST(bt, 0.1), bt)
	})

	t.Run("non-positive emissivity is NaN", func(t *testing.T) {
		t.Parallel()
		assert.True(t, math.IsNaN(LST(30, -0.2)))
	})
}

func TestApply(t *testing.T) {
	t.Parallel()

	img := raster.NewImage(2, 1, raster.GeoTransform{0, 1, 0, 0, 0, -1}, 0)
	nir := &raster.Band{Name: BandNIR, Width: 2, Height: 1, Data: []float64{0.5, 0.3}}
	red := &raster.Band{Name: BandRed, Width: 2, Height: 1, Data: []float64{0.1, 0.3}}
	img, err := img.AddBands(nir, red)
	require.NoError(t, err)

	ndvi, err := Apply(img, NDVIExpression())
	require.NoError(t, err)
	assert.Equal(t, BandNDVI, ndvi.Name)
	assert.InDelta(t, 0.6667, ndvi.Data[0], 1e-4)
	assert.InDelta(t, 0.0, ndvi.Data[1], 1e-12)

	_, err = Apply(img, LSTExpression())
	assert.ErrorIs(t, err, raster.ErrUnknownBand)
}

func TestChainedExpressions(t *testing.T) {
	t.Parallel()

	img := raster.NewImage(1, 1, raster.GeoTransform{0, 1, 0, 0, 0, -1}, 0)
	img, err := img.AddBands(
		&raster.Band{Name: BandNIR, Width: 1, Height: 1, Data: []float64{12000}},
		&raster.Band{Name: BandRed, Width: 1, Height: 1, Data: []float64{8000}},
		&raster.Band{Name: BandThermal, Width: 1, Height: 1, Data: []float64{29000}},
	)
	require.NoError(t, err)

	for _, expr := range []Expression{NDVIExpression(), EmissivityExpression(), BrightnessTempExpression(), LSTExpression()} {
		b, err := Apply(img, expr)
		require.NoError(t, err)
		img, err = img.AddBands(b)
		require.NoError(t, err)
	}

	ndvi := NDVI(12000, 8000)
	bt := BrightnessTemp(Radiance(29000))
	want := LST(bt, Emissivity(ndvi))

	lst, err := img.Band(BandLST)
	require.NoError(t, err)
	assert.InDelta(t, want, lst.Data[0], 1e-12)
	assert.Equal(t, []string{BandNIR, BandRed, BandThermal, BandNDVI, BandEmissivity, BandBrightnessTemp, BandLST}, img.BandNames())
}
