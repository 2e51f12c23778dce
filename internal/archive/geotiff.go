package archive

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/gammazero/workerpool"
	"github.com/gocarina/gocsv"
)

// SceneBands is the band order expected in every scene GeoTIFF.
var SceneBands = []string{bandmath.BandRed, bandmath.BandNIR, bandmath.BandThermal}

const catalogDateLayout = "2006-01-02"

// CatalogEntry is one row of catalog.csv.
type CatalogEntry struct {
	ID         string  `csv:"id"`
	Date       string  `csv:"date"`
	CloudCover float64 `csv:"cloud_cover"`
	Path       string  `csv:"path"`
}

func ReadCatalog(r io.Reader) ([]CatalogEntry, error) {
	var rows []CatalogEntry
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("error unmarshalling catalog: %w", err)
	}
	return rows, nil
}

// GeoTIFF serves scenes listed in <dir>/catalog.csv.
type GeoTIFF struct {
	dir     string
	workers int
}

func NewGeoTIFF(dir string, workers int) *GeoTIFF {
	if workers < 1 {
		workers = 1
	}
	return &GeoTIFF{dir: dir, workers: workers}
}

func (g *GeoTIFF) Scenes(ctx context.Context, q Query) ([]Scene, error) {
	file, err := os.Open(filepath.Join(g.dir, "catalog.csv"))
	if err != nil {
		return nil, fmt.Errorf("error opening catalog: %w", err)
	}
	defer file.Close()

	entries, err := ReadCatalog(file)
	if err != nil {
		return nil, err
	}

	var matched []Scene
	paths := map[string]string{}
	for _, e := range entries {
		date, err := time.Parse(catalogDateLayout, e.Date)
		if err != nil {
			return nil, fmt.Errorf("scene %s: invalid date %q: %w", e.ID, e.Date, err)
		}
		if !q.Matches(date, e.CloudCover) {
			continue
		}
		path := e.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(g.dir, path)
		}
		paths[e.ID] = path
		matched = append(matched, Scene{ID: e.ID, Date: date, CloudCover: e.CloudCover})
	}

	var (
		firstErr error
		stopOnce sync.Once
	)
	wp := workerpool.New(g.workers)
	for i := range matched {
		i := i
		wp.Submit(func() {
			if ctx.Err() != nil {
				stopOnce.Do(func() { firstErr = ctx.Err() })
				return
			}
			img, err := ReadGeoTIFF(paths[matched[i].ID], SceneBands)
			if err != nil {
				stopOnce.Do(func() { firstErr = fmt.Errorf("scene %s: %w", matched[i].ID, err) })
				return
			}
			// each task owns its slot
			matched[i].Image = img
		})
	}
	wp.StopWait()

	if firstErr != nil {
		return nil, firstErr
	}
	sortByDate(matched)
	return matched, nil
}

var registerDrivers sync.Once

// ReadGeoTIFF loads the first len(bandNames) bands of a raster file. The
// band nodata value becomes NaN.
func ReadGeoTIFF(path string, bandNames []string) (*raster.Image, error) {
	registerDrivers.Do(godal.RegisterAll)

	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal error %d: %s", code, msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open TIFF file: %w", err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands < len(bandNames) {
		return nil, fmt.Errorf("%s has %d bands, need %d", path, st.NBands, len(bandNames))
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("failed to get GeoTransform: %w", err)
	}

	img := raster.NewImage(st.SizeX, st.SizeY, raster.GeoTransform(gt), epsgOf(ds))
	bands := ds.Bands()
	for i, name := range bandNames {
		b := raster.NewBand(name, st.SizeX, st.SizeY)
		if err := bands[i].Read(0, 0, b.Data, st.SizeX, st.SizeY); err != nil {
			return nil, fmt.Errorf("failed to read data for band %s: %w", name, err)
		}
		if nd, ok := bands[i].NoData(); ok {
			for p, v := range b.Data {
				if v == nd || (math.IsNaN(nd) && math.IsNaN(v)) {
					b.Data[p] = math.NaN()
				}
			}
		}
		if img, err = img.AddBands(b); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func epsgOf(ds *godal.Dataset) int {
	sr := ds.SpatialRef()
	if sr == nil {
		return 0
	}
	defer sr.Close()
	if code, err := strconv.Atoi(sr.AuthorityCode("")); err == nil {
		return code
	}
	if sr.Geographic() {
		return raster.EPSGWGS84
	}
	return 0
}
