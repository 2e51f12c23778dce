package view

import (
	"errors"
	"fmt"

	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"github.com/paulmach/orb"
)

var ErrUnknownItem = errors.New("unknown dropdown item")

type Mode int

const (
	ModeNone Mode = iota
	ModeLST
	ModeNDVI
)

func (m Mode) String() string {
	switch m {
	case ModeLST:
		return "LST"
	case ModeNDVI:
		return "NDVI"
	}
	return "none"
}

const (
	ItemSelectMap = "Select a Map"
	ItemLST       = "LST"
	ItemNDVI      = "NDVI"
)

// Items lists the dropdown entries; the first is selected at start.
var Items = []string{ItemSelectMap, ItemLST, ItemNDVI}

const DefaultZoom = 9.6

type Position string

const (
	TopLeft     Position = "top-left"
	TopCenter   Position = "top-center"
	BottomLeft  Position = "bottom-left"
	BottomRight Position = "bottom-right"
)

const StatsTitle = "LST STATISTICS"

type LayerKind int

const (
	LayerOutline LayerKind = iota
	LayerRaster
)

type OutlineStyle struct {
	Color     string
	FillColor string
	Width     float64
}

type Layer struct {
	Name    string
	Kind    LayerKind
	Outline OutlineStyle
	Vis     VisParams
}

type LegendEntry struct {
	Color string
	Label string
}

type PanelKind int

const (
	PanelHeading PanelKind = iota
	PanelLegend
	PanelStats
)

type Panel struct {
	Kind     PanelKind
	Position Position
	Title    string
	Legend   []LegendEntry
	Rows     []stats.Row
}

type Dropdown struct {
	Position Position
	Items    []string
	Selected string
}

// Scene is everything visible on the map for one selection.
type Scene struct {
	Mode     Mode
	Layers   []Layer
	Panels   []Panel
	Dropdown Dropdown
	Center   orb.Point
	Zoom     float64
}

// Controller holds the single piece of UI state. Every selection rebuilds the
// scene from scratch, so repeated selections are idempotent.
type Controller struct {
	model Model
	scene Scene
}

func NewController(m Model) *Controller {
	c := &Controller{model: m}
	// the first item is always valid
	_ = c.Select(Items[0])
	return c
}

func (c *Controller) Select(item string) error {
	var mode Mode
	switch item {
	case ItemSelectMap:
		mode = ModeNone
	case ItemLST:
		mode = ModeLST
	case ItemNDVI:
		mode = ModeNDVI
	default:
		return fmt.Errorf("%w: %q", ErrUnknownItem, item)
	}

	scene := Scene{
		Mode:     mode,
		Dropdown: Dropdown{Position: TopLeft, Items: append([]string(nil), Items...), Selected: item},
		Center:   c.model.Center,
		Zoom:     DefaultZoom,
	}
	scene.Layers = append(scene.Layers, Layer{
		Name:    c.model.DisplayName,
		Kind:    LayerOutline,
		Outline: OutlineStyle{Color: "000000", FillColor: "00000000", Width: 1},
	})

	switch mode {
	case ModeLST:
		scene.Layers = append(scene.Layers, Layer{Name: bandmath.BandLST, Kind: LayerRaster, Vis: c.model.LSTVis})
		scene.Panels = append(scene.Panels,
			Panel{Kind: PanelStats, Position: BottomLeft, Title: StatsTitle, Rows: c.model.Stats.Table(bandmath.BandLST)},
			Panel{Kind: PanelHeading, Position: TopCenter, Title: Heading(bandmath.BandLST, c.model.DisplayName)},
			Panel{Kind: PanelLegend, Position: BottomRight, Title: bandmath.BandLST, Legend: legend(LSTPalette, LSTNames)},
		)
	case ModeNDVI:
		scene.Layers = append(scene.Layers, Layer{Name: bandmath.BandNDVI, Kind: LayerRaster, Vis: c.model.NDVIVis})
		scene.Panels = append(scene.Panels,
			Panel{Kind: PanelHeading, Position: TopCenter, Title: Heading(bandmath.BandNDVI, c.model.DisplayName)},
			Panel{Kind: PanelLegend, Position: BottomRight, Title: bandmath.BandNDVI, Legend: legend(NDVIPalette, NDVINames)},
		)
	}

	c.scene = scene
	return nil
}

func (c *Controller) Mode() Mode {
	return c.scene.Mode
}

// Scene returns a copy of the visible scene.
func (c *Controller) Scene() Scene {
	s := c.scene
	s.Layers = append([]Layer(nil), c.scene.Layers...)
	s.Panels = append([]Panel(nil), c.scene.Panels...)
	s.Dropdown.Items = append([]string(nil), c.scene.Dropdown.Items...)
	return s
}

func (c *Controller) Model() Model {
	return c.model
}

func legend(palette, names []string) []LegendEntry {
	entries := make([]LegendEntry, len(palette))
	for i := range palette {
		entries[i] = LegendEntry{Color: palette[i], Label: names[i]}
	}
	return entries
}
