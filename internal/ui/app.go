package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/forest-guardian/lst-ndvi-cli/internal/engine"
	"github.com/forest-guardian/lst-ndvi-cli/internal/notification"
	"github.com/forest-guardian/lst-ndvi-cli/internal/pipeline"
	"github.com/forest-guardian/lst-ndvi-cli/internal/properties"
	"github.com/forest-guardian/lst-ndvi-cli/internal/region"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"github.com/forest-guardian/lst-ndvi-cli/internal/view"
	"github.com/forest-guardian/lst-ndvi-cli/output"
)

var ErrNoSession = errors.New("no LST/NDVI session yet, compute one first")

// SourceFactory builds the data source for a region.
type SourceFactory func(r *region.Region) (engine.DataSource, error)

// App keeps the current session and the dropdown controller between menu
// actions.
type App struct {
	Config    properties.Config
	NewSource SourceFactory
	Notifier  *notification.Discord
	// GeoTIFF enables the GeoTIFF export.
	GeoTIFF bool

	session    *pipeline.Session
	controller *view.Controller
}

func NewApp(cfg properties.Config, factory SourceFactory, notifier *notification.Discord) *App {
	return &App{Config: cfg, NewSource: factory, Notifier: notifier, GeoTIFF: true}
}

func (a *App) Session() *pipeline.Session {
	return a.session
}

func (a *App) Controller() *view.Controller {
	return a.controller
}

// Compute runs the pipeline for the configured region and resets the map to
// its first dropdown item.
func (a *App) Compute(ctx context.Context) error {
	r, err := region.Load(a.Config.RootPath, a.Config.Region)
	if err != nil {
		return err
	}
	src, err := a.NewSource(r)
	if err != nil {
		return err
	}
	s, err := pipeline.Run(ctx, src, pipeline.Config{
		Region:        r,
		Start:         a.Config.StartDate,
		End:           a.Config.EndDate,
		MaxCloudCover: a.Config.CloudCoverMax,
		Scale:         a.Config.ReduceScale,
		MaxPixels:     a.Config.MaxPixels,
		SampleSize:    a.Config.SampleSize,
		SampleSeed:    a.Config.SampleSeed,
	})
	if err != nil {
		a.notifyError(ctx, fmt.Sprintf("%s: %v", a.Config.Region, err))
		return err
	}
	a.session = s
	a.controller = view.NewController(view.NewModel(s))
	a.notifySuccess(ctx, fmt.Sprintf("Session %s for %s\n%s", s.ID, view.DisplayName(r.Name), summary(s)))
	return nil
}

// SelectMap forwards a dropdown choice to the controller.
func (a *App) SelectMap(item string) error {
	if a.controller == nil {
		return ErrNoSession
	}
	return a.controller.Select(item)
}

// Export writes every artefact of the current session under data/result.
func (a *App) Export(ctx context.Context) (output.Artifacts, error) {
	if a.session == nil {
		return nil, ErrNoSession
	}
	dir := output.ResultDir(a.Config.RootPath, a.session)
	artifacts, err := output.Export(dir, a.session, a.controller.Model(), output.ExportOptions{GeoTIFF: a.GeoTIFF})
	if err != nil {
		a.notifyError(ctx, fmt.Sprintf("export failed: %v", err))
		return artifacts, err
	}
	return artifacts, nil
}

func summary(s *pipeline.Session) string {
	var text string
	for _, row := range s.Stats.Table("LST") {
		text += fmt.Sprintf("%s: %s\n", row.Label, row.Value)
	}
	if s.CorrelationErr != nil {
		return text + fmt.Sprintf("Correlation between LST and NDVI: n/a (%v)", s.CorrelationErr)
	}
	return text + fmt.Sprintf("Correlation between LST and NDVI: %s", stats.FormatCorrelation(s.Correlation))
}

func (a *App) notifyError(ctx context.Context, msg string) {
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.SendError(ctx, msg); err != nil {
		PrintError("Failed to send notification: %s", err)
	}
}

func (a *App) notifySuccess(ctx context.Context, msg string) {
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.SendSuccess(ctx, msg); err != nil {
		PrintError("Failed to send notification: %s", err)
	}
}

// PrintScene lists what the map currently shows.
func PrintScene(s view.Scene) {
	printLine("\nMap view: %s (zoom %.1f, center %.4f, %.4f)", s.Dropdown.Selected, s.Zoom, s.Center.Y(), s.Center.X())
	for _, l := range s.Layers {
		printLine("- layer %s", l.Name)
	}
	for _, p := range s.Panels {
		printLine("- panel %s [%s]", p.Title, p.Position)
		for _, row := range p.Rows {
			printLine("    %-5s %s", row.Label, row.Value)
		}
		for _, e := range p.Legend {
			printLine("    #%s %s", e.Color, e.Label)
		}
	}
}

// PrintStats shows the LST statistics table and the correlation.
func PrintStats(s *pipeline.Session) {
	printLine("\n%s", view.StatsTitle)
	for _, row := range s.Stats.Table("LST") {
		printLine("%-5s %s", row.Label, row.Value)
	}
	if s.CorrelationErr != nil {
		PrintWarning("Correlation between LST and NDVI unavailable: %s", s.CorrelationErr)
		return
	}
	printLine("Correlation between LST and NDVI: %s (%d samples)", stats.FormatCorrelation(s.Correlation), s.Samples.Len())
}

func PrintArtifacts(artifacts output.Artifacts) {
	keys := make([]string, 0, len(artifacts))
	for k := range artifacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		printLine("- %s: %s", k, artifacts[k])
	}
}

// ListRegions prints the regions found in data/geojsons.
func ListRegions(root string) {
	names, err := region.List(root)
	if err != nil {
		PrintError("%s", err)
		return
	}

	PrintWarning("To add a new region, add its '.geojson' file at 'data/geojsons' folder.")

	printLine("\nAvailable regions:")
	for _, name := range names {
		printLine("- %s", name)
	}
}
