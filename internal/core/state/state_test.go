package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`{"currently_syncing":"shopify_shops","bookmarks":{"shopify_shops":{"start_date":"2024-05-01T00:00:00Z"}}}`))
	require.NoError(t, err)

	assert.Equal(t, "shopify_shops", s.CurrentlySyncing)
	b, ok := s.Bookmark("shopify_shops", "start_date")
	assert.True(t, ok)
	assert.Equal(t, "2024-05-01T00:00:00Z", b)

	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.NotNil(t, empty.Bookmarks)

	noBookmarks, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	noBookmarks.SetBookmark("s", "k", "v")
	assert.Equal(t, "v", noBookmarks.Bookmarks["s"]["k"])

	_, err = Parse([]byte(`{"bookmarks": [`))
	assert.Error(t, err)
}

func TestSyncState_Bookmark(t *testing.T) {
	s := New()

	_, ok := s.Bookmark("shopify_shops", "start_date")
	assert.False(t, ok)

	s.SetBookmark("shopify_shops", "start_date", "")
	_, ok = s.Bookmark("shopify_shops", "start_date")
	assert.False(t, ok)

	s.SetBookmark("shopify_shops", "start_date", "2024-05-01")
	b, ok := s.Bookmark("shopify_shops", "start_date")
	assert.True(t, ok)
	assert.Equal(t, "2024-05-01", b)
}

func TestSyncState_MarshalOmitsClearedMarker(t *testing.T) {
	s := New()
	s.SetCurrentlySyncing("shopify_shops")
	s.SetBookmark("shopify_shops", "start_date", "2024-05-01")
	s.ClearCurrentlySyncing()

	data, err := s.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"bookmarks":{"shopify_shops":{"start_date":"2024-05-01"}}}`, string(data))
}

func TestSyncState_Clone(t *testing.T) {
	s := New()
	s.SetBookmark("a", "k", "1")

	c := s.Clone()
	c.SetBookmark("a", "k", "2")
	c.SetCurrentlySyncing("a")

	b, _ := s.Bookmark("a", "k")
	assert.Equal(t, "1", b)
	assert.Empty(t, s.CurrentlySyncing)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)

	s, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.Bookmarks)

	s.SetBookmark("shopify_shops", "start_date", "2024-05-03T12:30:00Z")
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	initial := New()
	initial.SetBookmark("a", "k", "1")
	store := NewMemoryStore(initial)

	initial.SetBookmark("a", "k", "mutated")

	s, err := store.Load(ctx)
	require.NoError(t, err)
	b, _ := s.Bookmark("a", "k")
	assert.Equal(t, "1", b)

	s.SetBookmark("a", "k", "2")
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, 1, store.Saves())

	again, err := store.Load(ctx)
	require.NoError(t, err)
	b, _ = again.Bookmark("a", "k")
	assert.Equal(t, "2", b)
}
