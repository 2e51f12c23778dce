package view

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/pipeline"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"github.com/paulmach/orb"
)

var (
	LSTPalette  = []string{"0400ff", "37ff00", "fff875", "ffb1d7", "ff0000"}
	LSTNames    = []string{"Very Low", "Low", "Medium", "High", "Very High"}
	NDVIPalette = []string{"0008ff", "fffd2a", "5aff5c", "16b300"}
	NDVINames   = []string{"Water Body", "Land", "Low Vegetation", "Dense Vegetation"}
)

// Fallback LST stretch in °C, used when the region produced no statistics.
const (
	defaultLSTMin = 20.0
	defaultLSTMax = 45.0
)

// VisParams stretches a band linearly over Min..Max through Palette.
type VisParams struct {
	Band    string
	Min     float64
	Max     float64
	Palette []string
}

// Model is the state the presentation needs from a finished session.
type Model struct {
	RegionName  string
	DisplayName string
	Center      orb.Point
	Rings       []orb.Ring
	Stats       stats.Record
	Correlation string
	LSTVis      VisParams
	NDVIVis     VisParams
}

func NewModel(s *pipeline.Session) Model {
	r := s.Region()
	center, err := r.Centroid()
	if err != nil {
		center = r.Bound().Center()
	}

	m := Model{
		RegionName:  r.Name,
		DisplayName: DisplayName(r.Name),
		Center:      center,
		Rings:       r.Rings(),
		Stats:       s.Stats,
		Correlation: "n/a",
		LSTVis:      lstVis(s.Stats),
		NDVIVis:     VisParams{Band: bandmath.BandNDVI, Min: -0.2, Max: 0.8, Palette: NDVIPalette},
	}
	if s.CorrelationErr == nil {
		m.Correlation = stats.FormatCorrelation(s.Correlation)
	}
	return m
}

func lstVis(rec stats.Record) VisParams {
	vis := VisParams{Band: bandmath.BandLST, Min: defaultLSTMin, Max: defaultLSTMax, Palette: LSTPalette}
	lo, okLo := rec.Get(bandmath.BandLST + stats.SuffixMin)
	hi, okHi := rec.Get(bandmath.BandLST + stats.SuffixMax)
	if okLo && okHi && hi > lo && !math.IsNaN(lo) && !math.IsNaN(hi) {
		vis.Min, vis.Max = lo, hi
	}
	return vis
}

// DisplayName turns a region key such as purba_bardhaman into "Purba Bardhaman".
func DisplayName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// Heading is the top-center title for a band map.
func Heading(band, displayName string) string {
	return fmt.Sprintf("%s Map of %s District", band, displayName)
}
