// Package app builds the tap components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/glassflow/shopify-shops-etl/internal/config"
	"github.com/glassflow/shopify-shops-etl/internal/core/extract"
	"github.com/glassflow/shopify-shops-etl/internal/core/fetch"
	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/sink"
	"github.com/glassflow/shopify-shops-etl/internal/core/state"
	"github.com/glassflow/shopify-shops-etl/internal/core/stream"
	"github.com/glassflow/shopify-shops-etl/internal/core/tap"
	"github.com/glassflow/shopify-shops-etl/internal/core/timeparse"
	"github.com/glassflow/shopify-shops-etl/internal/core/warehouse"
)

const natsClientName = "shopify-shops-etl"

type App struct {
	cfg      config.Config
	registry *registry.Registry
	parser   *timeparse.Parser
	source   warehouse.DomainSource
	store    state.Store
	writer   sink.Writer
	nats     *stream.NATSConnWrapper
	log      *slog.Logger
}

// New connects every configured backend. Singer messages go to out.
func New(ctx context.Context, cfg config.Config, out io.Writer, log *slog.Logger) (zero *App, _ error) {
	reg := registry.Default()
	for _, id := range cfg.Streams {
		if _, err := reg.Lookup(id); err != nil {
			return zero, fmt.Errorf("configured streams: %w", err)
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		return zero, err //nolint:wrapcheck // already descriptive
	}

	a := &App{
		cfg:      cfg,
		registry: reg,
		parser:   timeparse.NewParser(timeparse.DefaultOffsets(), loc),
		log:      log,
	}

	if err := a.connect(ctx, out); err != nil {
		if cerr := a.Close(); cerr != nil {
			log.Error("failed to close partially built app", slog.Any("error", cerr))
		}
		return zero, err
	}

	return a, nil
}

func (a *App) connect(ctx context.Context, out io.Writer) error {
	if a.cfg.State.Backend == config.BackendNATS || slices.Contains(a.cfg.Sink.Kinds, config.SinkNATS) {
		nc, err := stream.NewNATSWrapper(a.cfg.NatsURL, natsClientName)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		a.nats = nc
	}

	source, err := NewDomainSource(ctx, a.cfg.Warehouse, a.log)
	if err != nil {
		return err
	}
	a.source = source

	store, err := a.newStore(ctx)
	if err != nil {
		return err
	}
	a.store = store

	writer, err := a.newWriter(ctx, out)
	if err != nil {
		return err
	}
	a.writer = writer

	return nil
}

func NewDomainSource(ctx context.Context, cfg config.WarehouseConfig, log *slog.Logger) (warehouse.DomainSource, error) {
	q := warehouse.Query{Table: cfg.Table, Column: cfg.Column}

	switch cfg.Driver {
	case config.DriverStatic:
		return warehouse.NewStaticSource(cfg.StaticDomains), nil
	case config.DriverBigQuery:
		src, err := warehouse.NewBigQuerySource(ctx, warehouse.BigQueryConfig{
			ProjectID:       cfg.BigQueryProject,
			CredentialsFile: cfg.BigQueryCredentialsFile,
		}, q, log)
		if err != nil {
			return nil, fmt.Errorf("bigquery warehouse: %w", err)
		}
		return src, nil
	case config.DriverClickHouse:
		src, err := warehouse.NewClickHouseSource(ctx, cfg.ClickHouse, q, log)
		if err != nil {
			return nil, fmt.Errorf("clickhouse warehouse: %w", err)
		}
		return src, nil
	case config.DriverPostgres:
		src, err := warehouse.NewPostgresSource(ctx, cfg.PostgresDSN, q, log)
		if err != nil {
			return nil, fmt.Errorf("postgres warehouse: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown warehouse driver %q", cfg.Driver)
	}
}

func (a *App) newStore(ctx context.Context) (state.Store, error) {
	switch a.cfg.State.Backend {
	case config.BackendFile:
		return state.NewFileStore(a.cfg.State.Path), nil
	case config.BackendMemory:
		return state.NewMemoryStore(nil), nil
	case config.BackendNATS:
		kv, err := state.NewKVStore(ctx, a.cfg.State.Bucket, a.nats.JetStream())
		if err != nil {
			return nil, fmt.Errorf("nats state store: %w", err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", a.cfg.State.Backend)
	}
}

func (a *App) newWriter(ctx context.Context, out io.Writer) (sink.Writer, error) {
	writers := make([]sink.Writer, 0, len(a.cfg.Sink.Kinds))

	for _, kind := range a.cfg.Sink.Kinds {
		switch kind {
		case config.SinkSinger:
			writers = append(writers, sink.NewSingerWriter(out))
		case config.SinkClickHouse:
			w, err := sink.NewClickHouseWriter(ctx, a.cfg.Sink.ClickHouse, a.cfg.Sink.Batch, a.log)
			if err != nil {
				return nil, errors.Join(fmt.Errorf("clickhouse sink: %w", err), sink.NewMultiWriter(writers...).Close())
			}
			writers = append(writers, w)
		case config.SinkNATS:
			err := a.nats.EnsureStream(ctx, a.cfg.Sink.Stream, a.cfg.Sink.Subject, a.cfg.Sink.MaxAge.Std())
			if err != nil {
				return nil, errors.Join(fmt.Errorf("nats sink: %w", err), sink.NewMultiWriter(writers...).Close())
			}
			writers = append(writers, sink.NewNATSWriter(stream.NewPublisher(a.nats.JetStream(), a.cfg.Sink.Subject)))
		default:
			return nil, fmt.Errorf("unknown sink %q", kind)
		}
	}

	if len(writers) == 1 {
		return writers[0], nil
	}
	return sink.NewMultiWriter(writers...), nil
}

func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) Store() state.Store {
	return a.store
}

// Run performs one sync of the configured streams.
func (a *App) Run(ctx context.Context) ([]tap.StreamResult, error) {
	log := a.log.With(slog.String("run_id", uuid.NewString()))

	strategy, err := extract.ParseStrategy(a.cfg.Strategy)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}

	pipeline := extract.NewPipeline(
		a.source,
		fetch.New(a.cfg.Fetch.Fetcher(), log),
		a.parser,
		extract.Config{Strategy: strategy, ExtractedAtLayout: a.cfg.ExtractedAtLayout},
		log,
	)

	orch := tap.New(a.registry, pipeline, a.writer, a.store, a.cfg.StartDate, log)

	return orch.Sync(ctx, a.cfg.Streams) //nolint:wrapcheck // already descriptive
}

func (a *App) Close() error {
	var errs []error

	if a.writer != nil {
		errs = append(errs, a.writer.Close())
	}
	if a.source != nil {
		errs = append(errs, a.source.Close())
	}
	if a.nats != nil {
		errs = append(errs, a.nats.Close())
	}

	return errors.Join(errs...)
}
