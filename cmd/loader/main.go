package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glassflow/shopify-shops-etl/internal/config"
	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/replay"
	"github.com/glassflow/shopify-shops-etl/internal/core/sink"
	"github.com/glassflow/shopify-shops-etl/internal/core/stream"
	"github.com/glassflow/shopify-shops-etl/internal/logging"
)

//nolint:gochecknoglobals,revive // build variables
var (
	commit string = "unspecified"
	name   string = "shopify-shops-loader"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	debug := flag.Bool("d", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("unable to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if *debug {
		cfg.LogLevel = slog.LevelDebug
	}

	log := logging.New(os.Stdout, logging.Options{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		AddSource: cfg.LogAddSource,
		App:       name,
		Commit:    commit,
	})

	if err := mainErr(&cfg, log); err != nil {
		log.Error("Loader stopped with error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("ClickHouse load finished")
}

func mainErr(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	nc, err := stream.NewNATSWrapper(cfg.NatsURL, name)
	if err != nil {
		return fmt.Errorf("failed to create NATS wrapper: %w", err)
	}
	defer nc.Close()

	consumer, err := stream.NewConsumer(ctx, nc.JetStream(), stream.ConsumerConfig{
		NatsStream:   cfg.Sink.Stream,
		NatsConsumer: cfg.Replay.Consumer,
		NatsSubject:  cfg.Sink.Subject + ".>",
	})
	if err != nil {
		return fmt.Errorf("failed to create NATS consumer: %w", err)
	}

	writer, err := sink.NewClickHouseWriter(ctx, cfg.Sink.ClickHouse, cfg.Sink.Batch, log)
	if err != nil {
		return fmt.Errorf("failed to create ClickHouse writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Error("failed to close ClickHouse writer", slog.Any("error", err))
		}
	}()

	n, err := replay.New(consumer, writer, registry.Default(), log).Run(ctx)
	log.Info("Replayed records", slog.Int("records", n))
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	return nil
}
