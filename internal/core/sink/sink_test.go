package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/schema"
	"github.com/glassflow/shopify-shops-etl/internal/core/state"
)

var extracted = time.Date(2024, 5, 3, 12, 30, 0, 0, time.UTC)

func shopsStream(t *testing.T) registry.StreamDefinition {
	t.Helper()
	def, err := registry.Default().Lookup(registry.ShopifyShops)
	require.NoError(t, err)
	return def
}

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()

	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestSingerWriter(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w := NewSingerWriter(&buf)

	st := state.New()
	st.SetBookmark(registry.ShopifyShops, "start_date", "2024-05-03T12:30:00Z")

	require.NoError(t, w.WriteSchema(ctx, shopsStream(t)))
	require.NoError(t, w.WriteRecord(ctx, registry.ShopifyShops, schema.Record{"id": int64(1), "city": nil}, extracted))
	assert.Zero(t, buf.Len(), "records are buffered until flush")

	require.NoError(t, w.WriteState(ctx, st))

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 3)

	assert.Equal(t, "SCHEMA", lines[0]["type"])
	assert.Equal(t, registry.ShopifyShops, lines[0]["stream"])
	assert.Equal(t, []any{"id"}, lines[0]["key_properties"])
	assert.Equal(t, []any{"extracted_at"}, lines[0]["bookmark_properties"])
	assert.Contains(t, lines[0]["schema"].(map[string]any)["properties"], "shop_id")

	assert.Equal(t, "RECORD", lines[1]["type"])
	assert.Equal(t, "2024-05-03T12:30:00Z", lines[1]["time_extracted"])
	assert.Equal(t, map[string]any{"id": float64(1), "city": nil}, lines[1]["record"])

	assert.Equal(t, "STATE", lines[2]["type"])
	assert.Equal(t, map[string]any{
		"bookmarks": map[string]any{
			registry.ShopifyShops: map[string]any{"start_date": "2024-05-03T12:30:00Z"},
		},
	}, lines[2]["value"])

	assert.NoError(t, w.Close())
}

type publishedMsg struct {
	suffix string
	data   []byte
}

type fakePublisher struct {
	msgs []publishedMsg
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, suffix string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, publishedMsg{suffix: suffix, data: data})
	return nil
}

func TestNATSWriter(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	w := NewNATSWriter(pub)

	require.NoError(t, w.WriteSchema(ctx, shopsStream(t)))
	require.NoError(t, w.WriteRecord(ctx, registry.ShopifyShops, schema.Record{"id": int64(1)}, extracted))
	assert.Empty(t, pub.msgs, "schema and records wait for flush")
	require.NoError(t, w.WriteState(ctx, state.New()))
	require.NoError(t, w.Flush(ctx))

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, registry.ShopifyShops, pub.msgs[0].suffix)
	assert.Equal(t, registry.ShopifyShops, pub.msgs[1].suffix)
	assert.Equal(t, "state", pub.msgs[2].suffix)

	var rec Message
	require.NoError(t, json.Unmarshal(pub.msgs[1].data, &rec))
	assert.Equal(t, TypeRecord, rec.Type)

	pub.err = errors.New("no responders")
	assert.ErrorContains(t, w.WriteState(ctx, state.New()), "no responders")
}

type recordingWriter struct {
	calls    []string
	failOn   string
	closeErr error
}

func (r *recordingWriter) call(name string) error {
	r.calls = append(r.calls, name)
	if name == r.failOn {
		return errors.New(name + " failed")
	}
	return nil
}

func (r *recordingWriter) WriteSchema(context.Context, registry.StreamDefinition) error {
	return r.call("schema")
}

func (r *recordingWriter) WriteRecord(context.Context, string, schema.Record, time.Time) error {
	return r.call("record")
}

func (r *recordingWriter) WriteState(context.Context, *state.SyncState) error {
	return r.call("state")
}

func (r *recordingWriter) Flush(context.Context) error { return r.call("flush") }

func (r *recordingWriter) Discard(context.Context, string) error { return r.call("discard") }

func (r *recordingWriter) Close() error { return r.closeErr }

func TestMultiWriter(t *testing.T) {
	ctx := context.Background()
	a := &recordingWriter{}
	b := &recordingWriter{failOn: "record", closeErr: errors.New("b close")}
	c := &recordingWriter{closeErr: errors.New("c close")}
	m := NewMultiWriter(a, b, c)

	require.NoError(t, m.WriteSchema(ctx, shopsStream(t)))
	require.Error(t, m.WriteRecord(ctx, "s", nil, extracted))
	require.NoError(t, m.Flush(ctx))

	assert.Equal(t, []string{"schema", "record", "flush"}, a.calls)
	assert.Equal(t, []string{"schema", "record", "flush"}, b.calls)
	assert.Equal(t, []string{"schema", "flush"}, c.calls)

	err := m.Close()
	assert.ErrorContains(t, err, "b close")
	assert.ErrorContains(t, err, "c close")
}

func TestMultiWriter_DiscardReachesEveryWriter(t *testing.T) {
	a := &recordingWriter{failOn: "discard"}
	b := &recordingWriter{}
	m := NewMultiWriter(a, b)

	err := m.Discard(context.Background(), registry.ShopifyShops)
	assert.ErrorContains(t, err, "discard failed")
	assert.Equal(t, []string{"discard"}, b.calls)
}

func TestSingerWriter_DiscardDropsPendingLines(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w := NewSingerWriter(&buf)
	def := shopsStream(t)

	require.NoError(t, w.WriteSchema(ctx, def))
	require.NoError(t, w.WriteRecord(ctx, def.ID, schema.Record{"id": int64(1)}, extracted))
	require.NoError(t, w.WriteRecord(ctx, def.ID, schema.Record{"id": int64(2)}, extracted))
	require.NoError(t, w.Discard(ctx, def.ID))
	require.NoError(t, w.Flush(ctx))
	assert.Zero(t, buf.Len())

	require.NoError(t, w.WriteSchema(ctx, def))
	require.NoError(t, w.WriteRecord(ctx, def.ID, schema.Record{"id": int64(3)}, extracted))
	require.NoError(t, w.Flush(ctx))

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 2)
	assert.Equal(t, "SCHEMA", lines[0]["type"])
	assert.Equal(t, map[string]any{"id": float64(3)}, lines[1]["record"])
}

func TestNATSWriter_DiscardDropsUnpublished(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	w := NewNATSWriter(pub)
	def := shopsStream(t)

	require.NoError(t, w.WriteSchema(ctx, def))
	require.NoError(t, w.WriteRecord(ctx, def.ID, schema.Record{"id": int64(1)}, extracted))
	require.NoError(t, w.Discard(ctx, def.ID))
	require.NoError(t, w.Flush(ctx))
	assert.Empty(t, pub.msgs)

	require.NoError(t, w.WriteRecord(ctx, def.ID, schema.Record{"id": int64(2)}, extracted))
	require.NoError(t, w.Flush(ctx))
	require.Len(t, pub.msgs, 1)

	var rec Message
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &rec))
	assert.Equal(t, float64(2), rec.Record["id"])
}
