package bandmath

import (
	"fmt"
	"math"

	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
)

// Landsat-8 band names as delivered by the archive.
const (
	BandRed     = "B4"
	BandNIR     = "B5"
	BandThermal = "B10"
)

// Derived band names.
const (
	BandNDVI           = "NDVI"
	BandEmissivity     = "EMISSIVITY"
	BandBrightnessTemp = "BRIGHTNESS_TEMP"
	BandLST            = "LST"
)

// Radiance rescale constants. Emissivity reuses them as well.
const (
	RadianceMult = 0.0003342
	RadianceAdd  = 0.1
)

// TIRS band 10 calibration constants.
const (
	K1 = 774.8853
	K2 = 1321.0789
)

const (
	KelvinOffset       = 273.15
	emittedWavelength  = 0.00115
	planckBoltzmannRho = 1.4388
)

// NDVI is the normalized difference of NIR and red. A zero sum yields NaN.
func NDVI(nir, red float64) float64 {
	sum := nir + red
	if sum == 0 {
		return math.NaN()
	}
	return (nir - red) / sum
}

func Emissivity(ndvi float64) float64 {
	return ndvi*RadianceMult + RadianceAdd
}

// Radiance converts thermal digital numbers to top-of-atmosphere radiance.
func Radiance(dn float64) float64 {
	return dn*RadianceMult + RadianceAdd
}

// BrightnessTemp inverts Planck's law for radiance l and returns °C.
func BrightnessTemp(l float64) float64 {
	return K2/math.Log(K1/l+1) - KelvinOffset
}

// RadianceForBrightnessTemp is the forward Planck form for a temperature in kelvin.
func RadianceForBrightnessTemp(kelvin float64) float64 {
	return K1 / (math.Exp(K2/kelvin) - 1)
}

// LST applies the emissivity correction to a brightness temperature in °C.
// Emissivity <= 0 gives NaN and is not guarded.
func LST(bt, emissivity float64) float64 {
	return bt / (1 + (emittedWavelength*bt/planckBoltzmannRho)*math.Log(emissivity))
}

// Expression is a per-pixel formula over named input bands.
type Expression struct {
	Name   string
	Inputs []string
	Eval   func(v []float64) float64
}

func NDVIExpression() Expression {
	return Expression{
		Name:   BandNDVI,
		Inputs: []string{BandNIR, BandRed},
		Eval:   func(v []float64) float64 { return NDVI(v[0], v[1]) },
	}
}

func EmissivityExpression() Expression {
	return Expression{
		Name:   BandEmissivity,
		Inputs: []string{BandNDVI},
		Eval:   func(v []float64) float64 { return Emissivity(v[0]) },
	}
}

func BrightnessTempExpression() Expression {
	return Expression{
		Name:   BandBrightnessTemp,
		Inputs: []string{BandThermal},
		Eval:   func(v []float64) float64 { return BrightnessTemp(Radiance(v[0])) },
	}
}

func LSTExpression() Expression {
	return Expression{
		Name:   BandLST,
		Inputs: []string{BandBrightnessTemp, BandEmissivity},
		Eval:   func(v []float64) float64 { return LST(v[0], v[1]) },
	}
}

// Apply evaluates expr for every pixel of img and returns the new band.
func Apply(img *raster.Image, expr Expression) (*raster.Band, error) {
	inputs := make([]*raster.Band, len(expr.Inputs))
	for i, name := range expr.Inputs {
		b, err := img.Band(name)
		if err != nil {
			return nil, fmt.Errorf("expression %s: %w", expr.Name, err)
		}
		inputs[i] = b
	}

	out := raster.NewBand(expr.Name, img.Width, img.Height)
	values := make([]float64, len(inputs))
	for p := range out.Data {
		for i, b := range inputs {
			values[i] = b.Data[p]
		}
		out.Data[p] = expr.Eval(values)
	}
	return out, nil
}
