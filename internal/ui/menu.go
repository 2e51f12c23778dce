package ui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/forest-guardian/lst-ndvi-cli/internal/view"
)

type menuOption struct {
	title   string
	handler func()
}

// ShowMenu displays the main menu and handles user input
func ShowMenu(ctx context.Context, app *App) {
	menuOptions := []menuOption{
		{"Compute LST and NDVI for the configured region", func() { ComputeSession(ctx, app) }},
		{"Select a map (" + strings.Join(view.Items, " / ") + ")", func() { SelectMap(app) }},
		{"Show LST statistics and LST/NDVI correlation", func() { ShowStats(app) }},
		{"Export maps, charts and tables", func() { ExportSession(ctx, app) }},
		{"View the list of available regions", func() { ListRegions(app.Config.RootPath) }},
		{"Exit the application", func() { fmt.Println("Exiting..."); os.Exit(0) }},
	}

	for {
		fmt.Println("\033[34m===================\033[0m")
		for i, opt := range menuOptions {
			fmt.Printf("\033[34m%d. %s\033[0m\n", i+1, opt.title)
		}
		fmt.Println("\033[34mPlease enter your choice:\033[0m")

		var choice int
		_, err := fmt.Scan(&choice)
		if err != nil {
			fmt.Printf("\n\033[31mInvalid input. Please enter a number.\033[0m\n")
			fmt.Scanln() // Clear the buffer
			continue
		}

		if choice < 1 || choice > len(menuOptions) {
			fmt.Println("\033[31mInvalid choice. Please try again.\033[0m")
			continue
		}

		menuOptions[choice-1].handler()
	}
}

func ComputeSession(ctx context.Context, app *App) {
	PrintWarning("- A '%s.geojson' file should be present in data/geojsons folder.\n- Scenes are taken between %s and %s with cloud cover below %.0f%%.",
		app.Config.Region,
		app.Config.StartDate.Format("2006-01-02"),
		app.Config.EndDate.Format("2006-01-02"),
		app.Config.CloudCoverMax)

	if err := app.Compute(ctx); err != nil {
		PrintError("Error computing LST and NDVI: %s", err)
		return
	}
	PrintSuccess("Session %s computed successfully!", app.Session().ID)
	PrintStats(app.Session())
	PrintScene(app.Controller().Scene())
}

func SelectMap(app *App) {
	if app.Controller() == nil {
		PrintError("%s", ErrNoSession)
		return
	}

	printLine("\nAvailable maps:")
	for i, item := range view.Items {
		printLine("%d. %s", i+1, item)
	}
	PrintInfo("Enter the number of the map: ")
	var choice int
	_, err := fmt.Scan(&choice)
	if err != nil || choice < 1 || choice > len(view.Items) {
		PrintError("Invalid choice. Please select a valid map number.")
		return
	}
	if err := app.SelectMap(view.Items[choice-1]); err != nil {
		PrintError("%s", err)
		return
	}
	PrintScene(app.Controller().Scene())
}

func ShowStats(app *App) {
	if app.Session() == nil {
		PrintError("%s", ErrNoSession)
		return
	}
	PrintStats(app.Session())
}

func ExportSession(ctx context.Context, app *App) {
	PrintWarning("The result files will be created at data/result/<region>/<session> folder.")

	artifacts, err := app.Export(ctx)
	if err != nil {
		PrintError("Error exporting session: %s", err)
		return
	}
	PrintSuccess("Session exported successfully!")
	PrintArtifacts(artifacts)
}
