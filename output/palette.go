package output

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/forest-guardian/lst-ndvi-cli/internal/view"
)

// parseHex accepts RRGGBB or RRGGBBAA, with or without a leading '#'.
func parseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	if len(s) == 6 {
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

type ramp struct {
	min, max float64
	stops    []color.RGBA
}

func newRamp(vis view.VisParams) (ramp, error) {
	r := ramp{min: vis.Min, max: vis.Max}
	for _, hex := range vis.Palette {
		c, err := parseHex(hex)
		if err != nil {
			return r, err
		}
		r.stops = append(r.stops, c)
	}
	if len(r.stops) == 0 {
		return r, fmt.Errorf("palette for %s is empty", vis.Band)
	}
	return r, nil
}

// At stretches v linearly over min..max and interpolates between the stops.
// NaN is transparent.
func (r ramp) At(v float64) color.RGBA {
	if math.IsNaN(v) {
		return color.RGBA{}
	}
	if len(r.stops) == 1 || r.max <= r.min {
		return r.stops[0]
	}
	t := (v - r.min) / (r.max - r.min)
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(r.stops)-1)
	i := int(math.Floor(pos))
	if i >= len(r.stops)-1 {
		return r.stops[len(r.stops)-1]
	}
	f := pos - float64(i)
	a, b := r.stops[i], r.stops[i+1]
	lerp := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f)) }
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

// colorize paints one band of img through the palette.
func colorize(img *raster.Image, vis view.VisParams) (*image.RGBA, error) {
	band, err := img.Band(vis.Band)
	if err != nil {
		return nil, err
	}
	r, err := newRamp(vis)
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out.SetRGBA(x, y, r.At(band.At(x, y)))
		}
	}
	return out, nil
}
