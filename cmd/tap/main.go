package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glassflow/shopify-shops-etl/internal/app"
	"github.com/glassflow/shopify-shops-etl/internal/config"
	"github.com/glassflow/shopify-shops-etl/internal/logging"
)

//nolint:gochecknoglobals,revive // build variables
var (
	commit string = "unspecified"
	name   string = "tap-shopify-shops"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	statePath := flag.String("state", "", "Path to state file, read at start and rewritten after each stream")
	debug := flag.Bool("d", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("unable to load config", slog.Any("error", err))
		os.Exit(1)
	}

	if *debug {
		cfg.LogLevel = slog.LevelDebug
	}
	if *statePath != "" {
		cfg.State.Backend = config.BackendFile
		cfg.State.Path = *statePath
	}

	// stdout carries the Singer stream
	log := logging.New(os.Stderr, logging.Options{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		AddSource: cfg.LogAddSource,
		App:       name,
		Commit:    commit,
	})

	if err := mainErr(cfg, log); err != nil {
		log.Error("Tap stopped with error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("Tap finished")
}

func mainErr(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, os.Stdout, log)
	if err != nil {
		return fmt.Errorf("failed to build tap: %w", err)
	}

	results, runErr := a.Run(ctx)
	for _, r := range results {
		log.Info("Stream done",
			slog.String("stream", r.Stream),
			slog.Int("records", r.Records),
			slog.Any("bookmark", r.Bookmark))
	}

	if err := a.Close(); err != nil {
		log.Error("failed to close connections", slog.Any("error", err))
	}

	if runErr != nil {
		return fmt.Errorf("sync failed: %w", runErr)
	}

	return nil
}
