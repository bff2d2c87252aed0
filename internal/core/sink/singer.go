package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/schema"
	"github.com/glassflow/shopify-shops-etl/internal/core/state"
)

type pendingLine struct {
	stream string
	line   []byte
}

// SingerWriter writes one JSON message per line, usually to stdout. Schema
// and record lines are held until Flush.
type SingerWriter struct {
	mu      sync.Mutex
	w       *bufio.Writer
	pending []pendingLine
}

func NewSingerWriter(w io.Writer) *SingerWriter {
	return &SingerWriter{w: bufio.NewWriter(w)}
}

func (s *SingerWriter) WriteSchema(_ context.Context, def registry.StreamDefinition) error {
	return s.hold(def.ID, SchemaMessage(def))
}

func (s *SingerWriter) WriteRecord(_ context.Context, stream string, rec schema.Record, extracted time.Time) error {
	return s.hold(stream, RecordMessage(stream, rec, extracted))
}

// WriteState emits the pending lines, then the state.
func (s *SingerWriter) WriteState(_ context.Context, st *state.SyncState) error {
	line, err := encode(StateMessage(st))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, pendingLine{line: line})
	return s.flushLocked()
}

func (s *SingerWriter) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// Discard drops the pending lines of stream.
func (s *SingerWriter) Discard(_ context.Context, stream string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.stream != stream {
			kept = append(kept, p)
		}
	}
	clear(s.pending[len(kept):])
	s.pending = kept

	return nil
}

func (s *SingerWriter) Close() error {
	return s.Flush(context.Background())
}

func (s *SingerWriter) hold(stream string, msg Message) error {
	line, err := encode(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, pendingLine{stream: stream, line: line})
	return nil
}

func (s *SingerWriter) flushLocked() error {
	for i, p := range s.pending {
		if _, err := s.w.Write(p.line); err != nil {
			s.pending = s.pending[i:]
			return fmt.Errorf("write singer output: %w", err)
		}
	}
	s.pending = s.pending[:0]

	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush singer output: %w", err)
	}
	return nil
}

func encode(msg Message) ([]byte, error) {
	line, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	return append(line, '\n'), nil
}
