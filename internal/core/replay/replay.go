// Package replay loads a Singer message stream published on NATS into
// another writer, typically ClickHouse.
package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/schema"
	"github.com/glassflow/shopify-shops-etl/internal/core/sink"
)

type MessageSource interface {
	Next() (jetstream.Msg, error)
}

// Replayer acknowledges messages only once the writer has flushed them. A
// STATE message and an idle fetch both trigger a flush.
type Replayer struct {
	source   MessageSource
	writer   sink.Writer
	registry *registry.Registry
	log      *slog.Logger

	pending []jetstream.Msg
	records int
}

func New(source MessageSource, writer sink.Writer, reg *registry.Registry, log *slog.Logger) *Replayer {
	return &Replayer{
		source:   source,
		writer:   writer,
		registry: reg,
		log:      log,
	}
}

// Run consumes until ctx is cancelled and returns the number of replayed
// records.
func (r *Replayer) Run(ctx context.Context) (int, error) {
	r.log.Info("Replay is in progress...")

	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Received stop event")
			//nolint:contextcheck // final flush after cancellation
			if err := r.commit(context.Background()); err != nil {
				return r.records, err
			}
			return r.records, nil
		default:
			msg, err := r.source.Next()
			switch {
			case errors.Is(err, nats.ErrTimeout):
				if err := r.commit(ctx); err != nil {
					return r.records, err
				}
				continue
			case err != nil:
				return r.records, fmt.Errorf("failed to get next message: %w", err)
			}

			if err := r.handle(ctx, msg); err != nil {
				return r.records, err
			}
		}
	}
}

func (r *Replayer) handle(ctx context.Context, msg jetstream.Msg) error {
	var m sink.Message
	dec := json.NewDecoder(bytes.NewReader(msg.Data()))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("decode singer message: %w", err)
	}

	r.pending = append(r.pending, msg)

	switch m.Type {
	case sink.TypeSchema:
		def, err := r.registry.Lookup(m.Stream)
		if err != nil {
			return fmt.Errorf("schema message: %w", err)
		}
		if err := r.writer.WriteSchema(ctx, def); err != nil {
			return fmt.Errorf("write schema: %w", err)
		}
	case sink.TypeRecord:
		def, err := r.registry.Lookup(m.Stream)
		if err != nil {
			return fmt.Errorf("record message: %w", err)
		}

		rec, err := restore(m.Record, def.Mapping)
		if err != nil {
			return fmt.Errorf("restore %s record: %w", m.Stream, err)
		}

		extracted, err := time.Parse(time.RFC3339Nano, m.TimeExtracted)
		if err != nil {
			return fmt.Errorf("parse time_extracted %q: %w", m.TimeExtracted, err)
		}

		if err := r.writer.WriteRecord(ctx, m.Stream, rec, extracted); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		r.records++
	case sink.TypeState:
		return r.commit(ctx)
	default:
		r.log.Warn("Ignoring unknown message type", slog.String("type", string(m.Type)))
	}

	return nil
}

// restore reapplies the field types lost in JSON, e.g. json.Number back to int64.
func restore(raw schema.Record, mapping []schema.FieldMapping) (schema.Record, error) {
	rec := make(schema.Record, len(mapping))
	for _, m := range mapping {
		v, err := schema.ToTypeOrNull(raw[m.Target()], m.Type, m.Nullable())
		if err != nil {
			return nil, err //nolint:wrapcheck // ConversionError names the field type
		}
		rec[m.Target()] = v
	}
	return rec, nil
}

func (r *Replayer) commit(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}

	if err := r.writer.Flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	for _, msg := range r.pending {
		if err := msg.Ack(); err != nil {
			return fmt.Errorf("failed to ack message: %w", err)
		}
	}

	r.log.Debug("Acknowledged messages", slog.Int("count", len(r.pending)))
	r.pending = r.pending[:0]

	return nil
}
