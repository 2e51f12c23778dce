package raster

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDuplicateBand = errors.New("band already present in image")
	ErrShapeMismatch = errors.New("band shape does not match image")
	ErrUnknownBand   = errors.New("band not found in image")
	ErrGridMismatch  = errors.New("image grid does not match")
)

// EPSG code of plain longitude/latitude rasters.
const EPSGWGS84 = 4326

const metersPerDegree = 111_320.0

// GeoTransform follows the GDAL affine layout:
// x = gt[0] + col*gt[1] + row*gt[2], y = gt[3] + col*gt[4] + row*gt[5].
type GeoTransform [6]float64

// PixelCenter returns the map coordinates of the centre of pixel (col, row).
func (gt GeoTransform) PixelCenter(col, row int) (float64, float64) {
	c := float64(col) + 0.5
	r := float64(row) + 0.5
	return gt[0] + c*gt[1] + r*gt[2], gt[3] + c*gt[4] + r*gt[5]
}

// Pixel maps a coordinate back to the containing pixel. Rotation terms are ignored.
func (gt GeoTransform) Pixel(x, y float64) (int, int) {
	col := int(math.Floor((x - gt[0]) / gt[1]))
	row := int(math.Floor((y - gt[3]) / gt[5]))
	return col, row
}

type Band struct {
	Name   string
	Width  int
	Height int
	Data   []float64
}

// NewBand allocates a band filled with NaN.
func NewBand(name string, width, height int) *Band {
	data := make([]float64, width*height)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Band{Name: name, Width: width, Height: height, Data: data}
}

func (b *Band) At(x, y int) float64 {
	return b.Data[y*b.Width+x]
}

func (b *Band) Set(x, y int, v float64) {
	b.Data[y*b.Width+x] = v
}

// Renamed returns a band header with a new name sharing the same pixels.
func (b *Band) Renamed(name string) *Band {
	return &Band{Name: name, Width: b.Width, Height: b.Height, Data: b.Data}
}

// Image is an ordered set of co-registered bands. Adding bands yields a new
// Image; existing bands are shared, never rewritten.
type Image struct {
	Width     int
	Height    int
	Transform GeoTransform
	EPSG      int

	bands []*Band
	index map[string]int
}

func NewImage(width, height int, transform GeoTransform, epsg int) *Image {
	return &Image{
		Width:     width,
		Height:    height,
		Transform: transform,
		EPSG:      epsg,
		index:     map[string]int{},
	}
}

// AddBands returns a copy of img carrying the extra bands.
func (img *Image) AddBands(bands ...*Band) (*Image, error) {
	out := img.shallowCopy()
	for _, b := range bands {
		if b.Width != img.Width || b.Height != img.Height {
			return nil, fmt.Errorf("%w: %s is %dx%d, image is %dx%d", ErrShapeMismatch, b.Name, b.Width, b.Height, img.Width, img.Height)
		}
		if _, ok := out.index[b.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBand, b.Name)
		}
		out.index[b.Name] = len(out.bands)
		out.bands = append(out.bands, b)
	}
	return out, nil
}

func (img *Image) Band(name string) (*Band, error) {
	i, ok := img.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBand, name)
	}
	return img.bands[i], nil
}

func (img *Image) BandNames() []string {
	names := make([]string, len(img.bands))
	for i, b := range img.bands {
		names[i] = b.Name
	}
	return names
}

// Select returns an image restricted to the named bands, in the given order.
func (img *Image) Select(names ...string) (*Image, error) {
	out := NewImage(img.Width, img.Height, img.Transform, img.EPSG)
	for _, name := range names {
		b, err := img.Band(name)
		if err != nil {
			return nil, err
		}
		out.index[name] = len(out.bands)
		out.bands = append(out.bands, b)
	}
	return out, nil
}

// Geographic reports whether pixel sizes are expressed in degrees.
func (img *Image) Geographic() bool {
	return img.EPSG == EPSGWGS84 || (img.EPSG == 0 && math.Abs(img.Transform[1]) < 1)
}

// PixelSizeMeters approximates the ground size of one pixel along x.
func (img *Image) PixelSizeMeters() float64 {
	size := math.Abs(img.Transform[1])
	if !img.Geographic() {
		return size
	}
	_, lat := img.Transform.PixelCenter(img.Width/2, img.Height/2)
	return size * metersPerDegree * math.Cos(lat*math.Pi/180)
}

// Stride converts a reducer scale in metres to a pixel step of at least one.
func (img *Image) Stride(scale float64) int {
	px := img.PixelSizeMeters()
	if scale <= 0 || px <= 0 {
		return 1
	}
	step := int(math.Round(scale / px))
	if step < 1 {
		return 1
	}
	return step
}

func (img *Image) shallowCopy() *Image {
	out := NewImage(img.Width, img.Height, img.Transform, img.EPSG)
	out.bands = append(out.bands, img.bands...)
	for k, v := range img.index {
		out.index[k] = v
	}
	return out
}
