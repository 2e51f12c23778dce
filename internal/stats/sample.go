package stats

import (
	"errors"
	"fmt"
)

var ErrBandNotSampled = errors.New("band was not sampled")

// Sample is one randomly drawn pixel with its values for every sampled band.
type Sample struct {
	X         int
	Y         int
	Longitude float64
	Latitude  float64
	Values    []float64
}

// SampleTable holds the drawn pixels; Values are ordered like Bands.
type SampleTable struct {
	Bands []string
	Rows  []Sample
}

func (t SampleTable) Len() int {
	return len(t.Rows)
}

// Column extracts the values of one sampled band.
func (t SampleTable) Column(band string) ([]float64, error) {
	idx := -1
	for i, b := range t.Bands {
		if b == band {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrBandNotSampled, band)
	}
	col := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		col[i] = row.Values[idx]
	}
	return col, nil
}

// Correlate computes Pearson's r between two sampled bands.
func (t SampleTable) Correlate(a, b string) (float64, error) {
	x, err := t.Column(a)
	if err != nil {
		return 0, err
	}
	y, err := t.Column(b)
	if err != nil {
		return 0, err
	}
	return Pearson(x, y)
}

// Fit returns the least-squares trendline of band b against band a.
func (t SampleTable) Fit(a, b string) (Trend, error) {
	x, err := t.Column(a)
	if err != nil {
		return Trend{}, err
	}
	y, err := t.Column(b)
	if err != nil {
		return Trend{}, err
	}
	return Trendline(x, y)
}
