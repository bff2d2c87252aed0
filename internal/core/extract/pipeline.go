// Package extract chains domain resolution, metadata fetching, aggregation
// and row cleaning into the record sequence of one stream run.
package extract

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/glassflow/shopify-shops-etl/internal/core/aggregate"
	"github.com/glassflow/shopify-shops-etl/internal/core/fetch"
	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/schema"
	"github.com/glassflow/shopify-shops-etl/internal/core/timeparse"
	"github.com/glassflow/shopify-shops-etl/internal/core/warehouse"
)

type Fetcher interface {
	FetchAll(ctx context.Context, domains []string) ([]fetch.Response, error)
}

type Config struct {
	Strategy Strategy
	// ExtractedAtLayout formats the extracted_at column.
	ExtractedAtLayout string
}

type Pipeline struct {
	source  warehouse.DomainSource
	fetcher Fetcher
	parser  *timeparse.Parser
	cfg     Config
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*Pipeline)

// WithClock replaces the wall clock used to stamp extractions.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func NewPipeline(
	source warehouse.DomainSource,
	fetcher Fetcher,
	parser *timeparse.Parser,
	cfg Config,
	log *slog.Logger,
	opts ...Option,
) *Pipeline {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategySnapshot
	}
	if cfg.ExtractedAtLayout == "" {
		cfg.ExtractedAtLayout = time.RFC3339
	}

	p := &Pipeline{
		source:  source,
		fetcher: fetcher,
		parser:  parser,
		cfg:     cfg,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Extract yields the cleaned records of def for a run starting at start,
// the stream's bookmark value. The sequence stops after the first error,
// which is yielded with a nil record. It can be ranged over once.
func (p *Pipeline) Extract(ctx context.Context, def registry.StreamDefinition, start string) iter.Seq2[schema.Record, error] {
	return func(yield func(schema.Record, error) bool) {
		from, err := p.parser.Parse(start)
		if err != nil {
			yield(nil, fmt.Errorf("parse start %q: %w", start, err))
			return
		}

		domains, err := p.source.Domains(ctx)
		if err != nil {
			yield(nil, fmt.Errorf("resolve shop domains: %w", err))
			return
		}

		now := p.now().In(p.parser.Location())
		windows := p.cfg.Strategy.Windows(from, now, p.parser)

		p.log.Info("Extracting stream",
			slog.String("stream", def.ID),
			slog.String("strategy", string(p.cfg.Strategy)),
			slog.Int("domains", len(domains)),
			slog.Int("windows", len(windows)))

		if len(windows) > 1 {
			p.log.Warn("Backfilling past windows with current storefront metadata",
				slog.String("stream", def.ID),
				slog.Int("past_windows", len(windows)-1),
				slog.Int("requests", len(windows)*len(domains)),
				slog.Time("first_window", windows[0]))
		}

		for _, stamp := range windows {
			rows, err := p.extractWindow(ctx, domains, stamp)
			if err != nil {
				yield(nil, err)
				return
			}

			for _, row := range rows {
				record, err := schema.CleanRow(row.Values(), def.Mapping)
				if err != nil {
					yield(nil, fmt.Errorf("stream %s: shop %d: %w", def.ID, row.ID, err))
					return
				}
				if !yield(record, nil) {
					return
				}
			}
		}
	}
}

func (p *Pipeline) extractWindow(ctx context.Context, domains []string, stamp time.Time) ([]aggregate.AggregatedRow, error) {
	responses, err := p.fetcher.FetchAll(ctx, domains)
	if err != nil {
		return nil, fmt.Errorf("fetch shop metadata: %w", err)
	}

	rows, err := aggregate.Aggregate(responses, stamp.Format(p.cfg.ExtractedAtLayout))
	if err != nil {
		return nil, fmt.Errorf("aggregate shop metadata: %w", err)
	}

	p.log.Debug("Aggregated window",
		slog.Time("extracted_at", stamp),
		slog.Int("rows", len(rows)))

	return rows, nil
}
