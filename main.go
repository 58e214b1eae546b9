// Package main provides the entry point for the floor-plan editor.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"floorplan-editor/internal/config"
	"floorplan-editor/internal/editor"
	"floorplan-editor/internal/slotservice"
	"floorplan-editor/internal/version"
	"floorplan-editor/ui/mainwindow"
	"floorplan-editor/ui/prefs"
)

func main() {
	configPath := flag.String("config", "floorplan.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("could not load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting floor-plan editor",
		"version", version.Version, "venue", cfg.Venue.ID)

	client := slotservice.NewClient(
		&http.Client{Timeout: cfg.Service.RequestTimeout},
		cfg.Service.BaseURL,
		cfg.Service.APIKey,
	)
	client.SetMaxAttempts(cfg.Service.RetryAttempts)

	store := editor.NewStore(client, cfg.Venue.ID, logger)
	store.SetRequestTimeout(cfg.Service.RequestTimeout)
	if cfg.Venue.DefaultZone != "" {
		store.SetZone(cfg.Venue.DefaultZone)
	}
	defer store.Close()

	fyneApp := app.NewWithID("floorplan-editor")
	appPrefs := prefs.Load()

	// Confirmations and rollbacks come off the dispatch goroutine; hand
	// them to the Fyne main loop before any widget sees them.
	store.SetNotifier(fyne.Do)

	win := mainwindow.New(fyneApp, store, appPrefs, cfg, logger)
	win.LoadInitial()
	win.ShowAndRun()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
