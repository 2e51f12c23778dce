package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/lst-ndvi-cli/internal/archive"
	"github.com/forest-guardian/lst-ndvi-cli/internal/cache"
	"github.com/forest-guardian/lst-ndvi-cli/internal/engine"
	"github.com/forest-guardian/lst-ndvi-cli/internal/notification"
	"github.com/forest-guardian/lst-ndvi-cli/internal/properties"
	"github.com/forest-guardian/lst-ndvi-cli/internal/region"
	"github.com/forest-guardian/lst-ndvi-cli/internal/ui"
	"github.com/joho/godotenv"
)

// Synthetic archive layout: eight 16-day revisits at roughly 300 m.
const (
	syntheticScenes   = 8
	syntheticPixelDeg = 0.0027
	cacheMaxAge       = 24 * time.Hour
)

func printBanner() {
	// Print the banner with go-figure
	figure1 := figure.NewFigure("LST NDVI", "isometric1", true)
	figure2 := figure.NewFigure("CLI", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func sourceFactory(cfg properties.Config) ui.SourceFactory {
	return func(r *region.Region) (engine.DataSource, error) {
		var a archive.Archive
		switch cfg.ArchiveKind {
		case properties.ArchiveSynthetic:
			a = archive.NewSynthetic(r, cfg.StartDate, syntheticScenes, syntheticPixelDeg, cfg.SampleSeed)
		case properties.ArchiveGeoTIFF:
			a = archive.NewGeoTIFF(filepath.Join(cfg.RootPath, "data", "archive"), cfg.ArchiveWorkers)
		case properties.ArchiveSentinelHub:
			hub, err := archive.NewSentinelHub(archive.SentinelHubConfig{
				ClientIDs:     cfg.CopernicusClientIDs,
				ClientSecrets: cfg.CopernicusClientSecrets,
				TokenURL:      cfg.CopernicusTokenURL,
				ProcessURL:    cfg.CopernicusProcessURL,
				Cache:         cache.NewFileCache[[]byte](filepath.Join(cfg.RootPath, "data", "cache"), cacheMaxAge),
			})
			if err != nil {
				return nil, err
			}
			a = hub
		default:
			return nil, fmt.Errorf("unknown archive kind: %s", cfg.ArchiveKind)
		}
		return engine.NewLocal(a, engine.WithProgress(true)), nil
	}
}

func runBatch(ctx context.Context, app *ui.App) error {
	if err := app.Compute(ctx); err != nil {
		return err
	}
	ui.PrintStats(app.Session())
	artifacts, err := app.Export(ctx)
	if err != nil {
		return err
	}
	ui.PrintSuccess("Session %s exported successfully!", app.Session().ID)
	ui.PrintArtifacts(artifacts)
	return nil
}

func initCLI(ctx context.Context, app *ui.App, batch bool) {
	defer func() {
		if r := recover(); r != nil {
			// Get the function, file, and line where panic occurred
			pc, file, line, ok := runtime.Caller(3) // 3 levels up is often the panic source
			var location string
			if ok {
				fn := runtime.FuncForPC(pc)
				location = fmt.Sprintf("%s:%d in %s", file, line, fn.Name())
			} else {
				location = "Unknown location"
			}

			// Print structured error
			fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
			fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
			fmt.Printf("\033[31mPlease check the input and try again.\033[0m\n")
			fmt.Printf("\033[31mExiting...\033[0m\n")

			stack := debug.Stack()
			errMessage := fmt.Sprintf("LST NDVI CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, stack)
			if err := app.Notifier.SendError(context.Background(), errMessage); err != nil {
				fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
			}
			os.Exit(1)
		}
	}()
	printBanner()

	if batch {
		if err := runBatch(ctx, app); err != nil {
			ui.PrintError("%s", err)
			os.Exit(1)
		}
		return
	}
	ui.ShowMenu(ctx, app)
}

func main() {
	envFile := ""
	batch := false
	for i, arg := range os.Args {
		if strings.HasPrefix(arg, "--env=") {
			envFile = strings.TrimPrefix(arg, "--env=")
		} else if arg == "--env" && i+1 < len(os.Args) {
			envFile = os.Args[i+1]
		} else if arg == "--batch" {
			batch = true
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Printf("\033[31mInvalid env file: %s\033[0m\n", err.Error())
			os.Exit(1)
		}
	} else if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			fmt.Printf("\033[33mNo .env file found. Using environment and defaults.\033[0m\n")
		}
	}

	cfg, err := properties.Load()
	if err != nil {
		fmt.Printf("\033[31mInvalid configuration: %s\033[0m\n", err.Error())
		os.Exit(1)
	}

	notifier := notification.NewDiscord(cfg.DiscordErrorURL, cfg.DiscordSuccessURL)
	app := ui.NewApp(cfg, sourceFactory(cfg), notifier)
	initCLI(context.Background(), app, batch)
}
