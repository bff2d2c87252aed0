package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/schema"
	"github.com/glassflow/shopify-shops-etl/internal/core/state"
)

type Publisher interface {
	Publish(ctx context.Context, suffix string, data []byte) error
}

type pendingMsg struct {
	stream string
	msg    Message
}

// NATSWriter publishes Singer messages to JetStream. Schema and record
// messages go to <subject>.<stream> on Flush, state messages to
// <subject>.state right away.
type NATSWriter struct {
	pub     Publisher
	pending []pendingMsg
}

const stateSuffix = "state"

func NewNATSWriter(pub Publisher) *NATSWriter {
	return &NATSWriter{pub: pub}
}

func (n *NATSWriter) WriteSchema(_ context.Context, def registry.StreamDefinition) error {
	n.pending = append(n.pending, pendingMsg{stream: def.ID, msg: SchemaMessage(def)})
	return nil
}

func (n *NATSWriter) WriteRecord(_ context.Context, stream string, rec schema.Record, extracted time.Time) error {
	n.pending = append(n.pending, pendingMsg{stream: stream, msg: RecordMessage(stream, rec, extracted)})
	return nil
}

func (n *NATSWriter) WriteState(ctx context.Context, s *state.SyncState) error {
	if err := n.Flush(ctx); err != nil {
		return err
	}
	return n.publish(ctx, stateSuffix, StateMessage(s))
}

// Flush publishes the pending messages in order. Each publish waits for its
// stream ack.
func (n *NATSWriter) Flush(ctx context.Context) error {
	for i, p := range n.pending {
		if err := n.publish(ctx, p.stream, p.msg); err != nil {
			n.pending = n.pending[i:]
			return err
		}
	}
	n.pending = n.pending[:0]
	return nil
}

// Discard drops the unpublished messages of stream.
func (n *NATSWriter) Discard(_ context.Context, stream string) error {
	kept := n.pending[:0]
	for _, p := range n.pending {
		if p.stream != stream {
			kept = append(kept, p)
		}
	}
	clear(n.pending[len(kept):])
	n.pending = kept
	return nil
}

func (n *NATSWriter) Close() error { return nil }

func (n *NATSWriter) publish(ctx context.Context, suffix string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Type, err)
	}

	if err := n.pub.Publish(ctx, suffix, data); err != nil {
		return fmt.Errorf("publish %s message: %w", msg.Type, err)
	}
	return nil
}
