// Package state holds the replication state persisted between runs and the
// stores it is kept in.
package state

import (
	"context"
	"fmt"
	"maps"

	"github.com/goccy/go-json"
)

// SyncState is the Singer state document:
//
//	{"currently_syncing": "shopify_shops", "bookmarks": {"shopify_shops": {"start_date": "..."}}}
type SyncState struct {
	CurrentlySyncing string                    `json:"currently_syncing,omitempty"`
	Bookmarks        map[string]map[string]any `json:"bookmarks"`
}

func New() *SyncState {
	return &SyncState{Bookmarks: make(map[string]map[string]any)}
}

// Parse decodes a state document. Empty input is an empty state.
func Parse(data []byte) (*SyncState, error) {
	s := New()
	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]any)
	}

	return s, nil
}

func (s *SyncState) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

func (s *SyncState) Clone() *SyncState {
	c := &SyncState{
		CurrentlySyncing: s.CurrentlySyncing,
		Bookmarks:        make(map[string]map[string]any, len(s.Bookmarks)),
	}
	for stream, b := range s.Bookmarks {
		c.Bookmarks[stream] = maps.Clone(b)
	}
	return c
}

// Bookmark returns the stored bookmark of stream under key as a string.
func (s *SyncState) Bookmark(stream, key string) (string, bool) {
	v, ok := s.Bookmarks[stream][key]
	if !ok || v == nil {
		return "", false
	}

	str, ok := v.(string)
	if !ok {
		str = fmt.Sprint(v)
	}
	return str, str != ""
}

func (s *SyncState) SetBookmark(stream, key string, value any) {
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]any)
	}
	if s.Bookmarks[stream] == nil {
		s.Bookmarks[stream] = make(map[string]any)
	}
	s.Bookmarks[stream][key] = value
}

func (s *SyncState) SetCurrentlySyncing(stream string) {
	s.CurrentlySyncing = stream
}

func (s *SyncState) ClearCurrentlySyncing() {
	s.CurrentlySyncing = ""
}

// Store persists SyncState between runs.
type Store interface {
	Load(ctx context.Context) (*SyncState, error)
	Save(ctx context.Context, s *SyncState) error
}
