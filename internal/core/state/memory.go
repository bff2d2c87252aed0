package state

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.Mutex
	state *SyncState
	saves int
}

func NewMemoryStore(initial *SyncState) *MemoryStore {
	if initial == nil {
		initial = New()
	}
	return &MemoryStore{state: initial.Clone()}
}

func (m *MemoryStore) Load(context.Context) (*SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
