package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrTooManyPixels    = errors.New("region holds more pixels than maxPixels allows")
	ErrDegenerateSample = errors.New("sample is degenerate, correlation undefined")
)

// Reducer suffixes appended to the band name in a Record.
const (
	SuffixMin  = "_min"
	SuffixMax  = "_max"
	SuffixMean = "_mean"
)

// Record maps band+reducer keys such as LST_min to scalars. A key is absent
// when the reducer saw no valid pixels.
type Record map[string]float64

// Reduce runs the combined min/max/mean reducer over values. NaN entries are
// skipped. An empty input yields an empty record.
func Reduce(band string, values []float64) Record {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	rec := Record{}
	if len(valid) == 0 {
		return rec
	}
	rec[band+SuffixMin] = floats.Min(valid)
	rec[band+SuffixMax] = floats.Max(valid)
	rec[band+SuffixMean] = stat.Mean(valid, nil)
	return rec
}

func (r Record) Get(key string) (float64, bool) {
	v, ok := r[key]
	return v, ok
}

// Row is one line of a two-column statistics table.
type Row struct {
	Label string
	Value string
}

// Table renders Min, Max and Mean for band in °C with two decimals.
func (r Record) Table(band string) []Row {
	return []Row{
		{Label: "Min", Value: FormatCelsius(r, band+SuffixMin)},
		{Label: "Max", Value: FormatCelsius(r, band+SuffixMax)},
		{Label: "Mean", Value: FormatCelsius(r, band+SuffixMean)},
	}
}

func FormatCelsius(r Record, key string) string {
	v, ok := r.Get(key)
	if !ok || math.IsNaN(v) {
		return "n/a °C"
	}
	return fmt.Sprintf("%.2f °C", v)
}

// Pearson returns the correlation coefficient of x and y. Fewer than two pairs
// or a constant column is reported as ErrDegenerateSample.
func Pearson(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return math.NaN(), fmt.Errorf("mismatched sample columns: %d vs %d", len(x), len(y))
	}
	if len(x) < 2 {
		return math.NaN(), fmt.Errorf("%w: %d pairs", ErrDegenerateSample, len(x))
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN(), fmt.Errorf("%w: constant column", ErrDegenerateSample)
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return r, fmt.Errorf("%w: correlation is NaN", ErrDegenerateSample)
	}
	return math.Max(-1, math.Min(1, r)), nil
}

func FormatCorrelation(r float64) string {
	return fmt.Sprintf("%.4f", r)
}

// Trend is the least-squares line y = Intercept + Slope*x.
type Trend struct {
	Intercept float64
	Slope     float64
}

func (t Trend) At(x float64) float64 {
	return t.Intercept + t.Slope*x
}

func Trendline(x, y []float64) (Trend, error) {
	if len(x) < 2 || len(x) != len(y) || stat.Variance(x, nil) == 0 {
		return Trend{}, fmt.Errorf("%w: cannot fit trendline", ErrDegenerateSample)
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return Trend{Intercept: alpha, Slope: beta}, nil
}
