package region

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var (
	ErrNotFound            = errors.New("region not found")
	ErrUnsupportedGeometry = errors.New("region geometry must be a Polygon or MultiPolygon")
)

// Region is the fixed area of interest every request is clipped to.
type Region struct {
	Name     string
	Geometry orb.Geometry
}

func New(name string, geometry orb.Geometry) (*Region, error) {
	switch geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedGeometry, geometry)
	}
	return &Region{Name: name, Geometry: geometry}, nil
}

// FromGeoJSON accepts a FeatureCollection, a Feature or a bare geometry. For
// collections the polygons of every feature are merged.
func FromGeoJSON(name string, data []byte) (*Region, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		var mp orb.MultiPolygon
		for _, f := range fc.Features {
			switch g := f.Geometry.(type) {
			case orb.Polygon:
				mp = append(mp, g)
			case orb.MultiPolygon:
				mp = append(mp, g...)
			default:
				return nil, fmt.Errorf("%w: feature has %T", ErrUnsupportedGeometry, f.Geometry)
			}
		}
		if len(mp) == 1 {
			return New(name, mp[0])
		}
		return New(name, mp)
	}

	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		return New(name, f.Geometry)
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON for region %s: %w", name, err)
	}
	return New(name, g.Geometry())
}

// Load reads data/geojsons/<name>.geojson below root.
func Load(root, name string) (*Region, error) {
	path := filepath.Join(root, "data", "geojsons", name+".geojson")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read region file: %w", err)
	}
	return FromGeoJSON(name, data)
}

// List returns the region names available below root.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, "data", "geojsons"))
	if err != nil {
		return nil, fmt.Errorf("error reading geojsons folder: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".geojson") {
			names = append(names, strings.TrimSuffix(e.Name(), ".geojson"))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *Region) Bound() orb.Bound {
	return r.Geometry.Bound()
}

func (r *Region) Contains(lon, lat float64) bool {
	p := orb.Point{lon, lat}
	switch g := r.Geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	}
	return false
}

// Centroid returns the area-weighted centre as (lon, lat).
func (r *Region) Centroid() (orb.Point, error) {
	c, area := planar.CentroidArea(r.Geometry)
	if area <= 0 {
		return orb.Point{}, errors.New("error getting centroid")
	}
	return c, nil
}

// Rings lists every ring of the region, outer and inner.
func (r *Region) Rings() []orb.Ring {
	var rings []orb.Ring
	switch g := r.Geometry.(type) {
	case orb.Polygon:
		rings = append(rings, g...)
	case orb.MultiPolygon:
		for _, p := range g {
			rings = append(rings, p...)
		}
	}
	return rings
}

// GeoJSON encodes the region geometry alone, as request payloads expect.
func (r *Region) GeoJSON() ([]byte, error) {
	return geojson.NewGeometry(r.Geometry).MarshalJSON()
}
