// Package sink writes the Singer message stream of a run to its targets.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/schema"
	"github.com/glassflow/shopify-shops-etl/internal/core/state"
)

type MessageType string

const (
	TypeSchema MessageType = "SCHEMA"
	TypeRecord MessageType = "RECORD"
	TypeState  MessageType = "STATE"
)

// Message is one line of the Singer protocol.
type Message struct {
	Type               MessageType    `json:"type"`
	Stream             string         `json:"stream,omitempty"`
	Record             schema.Record  `json:"record,omitempty"`
	TimeExtracted      string         `json:"time_extracted,omitempty"`
	Schema             map[string]any `json:"schema,omitempty"`
	KeyProperties      []string       `json:"key_properties,omitempty"`
	BookmarkProperties []string       `json:"bookmark_properties,omitempty"`
	Value              any            `json:"value,omitempty"`
}

func SchemaMessage(def registry.StreamDefinition) Message {
	msg := Message{
		Type:          TypeSchema,
		Stream:        def.ID,
		Schema:        schema.JSONSchema(def.Mapping),
		KeyProperties: def.KeyProperties,
	}
	if def.ReplicationKey != "" {
		msg.BookmarkProperties = []string{def.ReplicationKey}
	}
	return msg
}

func RecordMessage(stream string, rec schema.Record, extracted time.Time) Message {
	return Message{
		Type:          TypeRecord,
		Stream:        stream,
		Record:        rec,
		TimeExtracted: extracted.UTC().Format(time.RFC3339Nano),
	}
}

func StateMessage(s *state.SyncState) Message {
	return Message{
		Type:  TypeState,
		Value: s,
	}
}

// Writer receives the messages of a run. Schema and record messages are
// buffered until Flush; the orchestrator flushes before it commits a
// bookmark and calls Discard when a stream aborts, so none of the aborted
// stream's buffered messages reach the target.
type Writer interface {
	WriteSchema(ctx context.Context, def registry.StreamDefinition) error
	WriteRecord(ctx context.Context, stream string, rec schema.Record, extracted time.Time) error
	WriteState(ctx context.Context, s *state.SyncState) error
	Flush(ctx context.Context) error
	Discard(ctx context.Context, stream string) error
	Close() error
}

// MultiWriter fans every message out to all writers in order and stops at
// the first failure.
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) WriteSchema(ctx context.Context, def registry.StreamDefinition) error {
	for _, w := range m.writers {
		if err := w.WriteSchema(ctx, def); err != nil {
			return err //nolint:wrapcheck // writers wrap their own errors
		}
	}
	return nil
}

func (m *MultiWriter) WriteRecord(ctx context.Context, stream string, rec schema.Record, extracted time.Time) error {
	for _, w := range m.writers {
		if err := w.WriteRecord(ctx, stream, rec, extracted); err != nil {
			return err //nolint:wrapcheck // writers wrap their own errors
		}
	}
	return nil
}

func (m *MultiWriter) WriteState(ctx context.Context, s *state.SyncState) error {
	for _, w := range m.writers {
		if err := w.WriteState(ctx, s); err != nil {
			return err //nolint:wrapcheck // writers wrap their own errors
		}
	}
	return nil
}

func (m *MultiWriter) Flush(ctx context.Context) error {
	for _, w := range m.writers {
		if err := w.Flush(ctx); err != nil {
			return err //nolint:wrapcheck // writers wrap their own errors
		}
	}
	return nil
}

// Discard reaches every writer, even after a failure, and joins the errors.
func (m *MultiWriter) Discard(ctx context.Context, stream string) error {
	var errs []error
	for _, w := range m.writers {
		errs = append(errs, w.Discard(ctx, stream))
	}
	return errors.Join(errs...)
}

// Close closes every writer and joins their errors.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}
