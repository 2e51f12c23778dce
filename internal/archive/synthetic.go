package archive

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/forest-guardian/lst-ndvi-cli/internal/region"
)

// Cloud cover assigned to successive synthetic scenes; some exceed the usual ceiling.
var syntheticCloudCover = []float64{3.1, 12.5, 6.4, 27.0, 8.8, 1.9}

// NewSynthetic builds a deterministic Landsat-like stack over the region
// bound, one scene every 16 days from start. Vegetated pixels are cooler, so
// LST and NDVI come out negatively correlated.
func NewSynthetic(r *region.Region, start time.Time, count int, pixelDeg float64, seed int64) *Memory {
	b := r.Bound()
	width := int(math.Ceil((b.Max.X() - b.Min.X()) / pixelDeg))
	height := int(math.Ceil((b.Max.Y() - b.Min.Y()) / pixelDeg))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	gt := raster.GeoTransform{b.Min.X(), pixelDeg, 0, b.Max.Y(), 0, -pixelDeg}

	scenes := make([]Scene, 0, count)
	for i := 0; i < count; i++ {
		rng := rand.New(rand.NewSource(seed + int64(i)))
		cloud := syntheticCloudCover[i%len(syntheticCloudCover)]

		red := raster.NewBand(bandmath.BandRed, width, height)
		nir := raster.NewBand(bandmath.BandNIR, width, height)
		tir := raster.NewBand(bandmath.BandThermal, width, height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				veg := vegetation(x, y, width, height)
				red.Set(x, y, 9000-3000*veg+rng.NormFloat64()*150)
				nir.Set(x, y, 9000+9000*veg+rng.NormFloat64()*150)
				tir.Set(x, y, 31500-2500*veg-cloud*40+rng.NormFloat64()*200)
			}
		}

		img, err := raster.NewImage(width, height, gt, raster.EPSGWGS84).AddBands(red, nir, tir)
		if err != nil {
			// bands are built with the image shape above
			panic(err)
		}
		date := start.AddDate(0, 0, 16*i)
		scenes = append(scenes, Scene{
			ID:         fmt.Sprintf("SYNTH_LC08_%s", date.Format("20060102")),
			Date:       date,
			CloudCover: cloud,
			Image:      img,
		})
	}
	return NewMemory(scenes...)
}

// vegetation is a smooth field in [0.1, 0.9].
func vegetation(x, y, width, height int) float64 {
	fx := float64(x) / float64(width)
	fy := float64(y) / float64(height)
	return 0.5 + 0.4*math.Sin(fx*3*math.Pi)*math.Cos(fy*2*math.Pi)
}
