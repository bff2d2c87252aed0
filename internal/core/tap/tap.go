// Package tap drives a sync run: for every selected stream it resolves the
// bookmark, emits the extracted records and commits the new bookmark.
package tap

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/schema"
	"github.com/glassflow/shopify-shops-etl/internal/core/sink"
	"github.com/glassflow/shopify-shops-etl/internal/core/state"
)

var ErrMissingBookmark = errors.New("no bookmark and no start date")

func IsMissingBookmarkErr(err error) bool { return errors.Is(err, ErrMissingBookmark) }

type Extractor interface {
	Extract(ctx context.Context, def registry.StreamDefinition, start string) iter.Seq2[schema.Record, error]
}

// StreamResult summarises one synced stream.
type StreamResult struct {
	Stream   string
	Records  int
	Bookmark any
}

type Orchestrator struct {
	registry  *registry.Registry
	extractor Extractor
	writer    sink.Writer
	store     state.Store
	startDate string
	now       func() time.Time
	log       *slog.Logger
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New returns an orchestrator. startDate is the bookmark used by streams
// that have none stored yet.
func New(
	reg *registry.Registry,
	extractor Extractor,
	writer sink.Writer,
	store state.Store,
	startDate string,
	log *slog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		registry:  reg,
		extractor: extractor,
		writer:    writer,
		store:     store,
		startDate: startDate,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sync replicates streamIDs in order, or every registered stream when
// streamIDs is empty. A failing stream stops the run; streams committed
// before it keep their new bookmarks.
func (o *Orchestrator) Sync(ctx context.Context, streamIDs []string) ([]StreamResult, error) {
	if len(streamIDs) == 0 {
		streamIDs = o.registry.IDs()
	}

	defs := make([]registry.StreamDefinition, 0, len(streamIDs))
	for _, id := range streamIDs {
		def, err := o.registry.Lookup(id)
		if err != nil {
			return nil, fmt.Errorf("select streams: %w", err)
		}
		defs = append(defs, def)
	}

	st, err := o.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	o.log.Info("Sync started", slog.Any("streams", streamIDs))

	results := make([]StreamResult, 0, len(defs))
	for _, def := range defs {
		res, err := o.syncStream(ctx, def, st)
		if err != nil {
			return results, fmt.Errorf("sync stream %s: %w", def.ID, err)
		}
		results = append(results, res)
	}

	o.log.Info("Sync finished", slog.Int("streams", len(results)))

	return results, nil
}

func (o *Orchestrator) syncStream(ctx context.Context, def registry.StreamDefinition, st *state.SyncState) (StreamResult, error) {
	log := o.log.With(slog.String("stream", def.ID))
	res := StreamResult{Stream: def.ID}

	start, ok := st.Bookmark(def.ID, def.Bookmark)
	if !ok {
		start = o.startDate
	}
	if start == "" {
		return res, ErrMissingBookmark
	}

	st.SetCurrentlySyncing(def.ID)
	log.Info("Syncing stream", slog.String("start", start))

	candidate, err := o.writeRecords(ctx, def, start, &res)
	if err != nil {
		o.discard(ctx, def.ID, log)
		return res, err
	}

	if def.ReplicationMethod != registry.ReplicationIncremental || candidate == nil {
		st.ClearCurrentlySyncing()
		log.Info("Stream synced without bookmark change", slog.Int("records", res.Records))
		return res, nil
	}

	if err := o.commit(ctx, def, st, candidate); err != nil {
		o.discard(ctx, def.ID, log)
		return res, err
	}
	res.Bookmark = candidate

	log.Info("Stream synced",
		slog.Int("records", res.Records),
		slog.Any("bookmark", candidate))

	return res, nil
}

// writeRecords writes the schema and every extracted record, then flushes.
// It returns the last non-blank replication key value.
func (o *Orchestrator) writeRecords(ctx context.Context, def registry.StreamDefinition, start string, res *StreamResult) (any, error) {
	if err := o.writer.WriteSchema(ctx, def); err != nil {
		return nil, fmt.Errorf("write schema: %w", err)
	}

	var candidate any
	for rec, err := range o.extractor.Extract(ctx, def, start) {
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}

		if err := o.writer.WriteRecord(ctx, def.ID, rec, o.now()); err != nil {
			return nil, fmt.Errorf("write record: %w", err)
		}
		res.Records++

		if v, ok := rec[def.ReplicationKey]; ok && !isBlank(v) {
			candidate = v
		}
	}

	if err := o.writer.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush records: %w", err)
	}

	return candidate, nil
}

// discard drops whatever the writer still holds for an aborted stream, so a
// later run on the same writer does not emit it.
func (o *Orchestrator) discard(ctx context.Context, stream string, log *slog.Logger) {
	if err := o.writer.Discard(context.WithoutCancel(ctx), stream); err != nil {
		log.Error("failed to discard buffered records", slog.Any("error", err))
	}
}

// commit persists the bookmark first and only then announces it downstream.
func (o *Orchestrator) commit(ctx context.Context, def registry.StreamDefinition, st *state.SyncState, bookmark any) error {
	next := st.Clone()
	next.SetBookmark(def.ID, def.Bookmark, bookmark)
	next.ClearCurrentlySyncing()

	if err := o.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := o.writer.WriteState(ctx, next); err != nil {
		return fmt.Errorf("write state: %w", err)
	}

	*st = *next
	return nil
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	default:
		return false
	}
}
