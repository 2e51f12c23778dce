package output

import (
	"fmt"
	"math"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
)

var registerDrivers sync.Once

// WriteGeoTIFF stores the named bands as a Float64 GeoTIFF with NaN nodata.
func WriteGeoTIFF(path string, img *raster.Image, bands ...string) error {
	registerDrivers.Do(godal.RegisterAll)
	if len(bands) == 0 {
		bands = img.BandNames()
	}

	ds, err := godal.Create(godal.GTiff, path, len(bands), godal.Float64, img.Width, img.Height,
		godal.CreationOption("COMPRESS=DEFLATE", "TILED=YES"))
	if err != nil {
		return fmt.Errorf("failed to create TIFF file: %w", err)
	}

	if err := ds.SetGeoTransform(img.Transform); err != nil {
		ds.Close()
		return fmt.Errorf("failed to set GeoTransform: %w", err)
	}
	if img.EPSG != 0 {
		sr, err := godal.NewSpatialRefFromEPSG(img.EPSG)
		if err != nil {
			ds.Close()
			return fmt.Errorf("failed to build spatial reference: %w", err)
		}
		err = ds.SetSpatialRef(sr)
		sr.Close()
		if err != nil {
			ds.Close()
			return fmt.Errorf("failed to set spatial reference: %w", err)
		}
	}

	dsBands := ds.Bands()
	for i, name := range bands {
		b, err := img.Band(name)
		if err != nil {
			ds.Close()
			return err
		}
		if err := dsBands[i].SetNoData(math.NaN()); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set nodata for band %s: %w", name, err)
		}
		if err := dsBands[i].Write(0, 0, b.Data, img.Width, img.Height); err != nil {
			ds.Close()
			return fmt.Errorf("failed to write band %s: %w", name, err)
		}
	}
	return ds.Close()
}
