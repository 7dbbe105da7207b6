package snapshot

import (
	"context"
	"slices"
	"sync"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

type MemoryStore struct {
	mu       sync.RWMutex
	snapshot pick.Snapshot
	saved    bool
	saves    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (pick.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.saved {
		return pick.Snapshot{}, false, nil
	}
	out := s.snapshot
	out.Picks = slices.Clone(s.snapshot.Picks)
	return out, true, nil
}

func (s *MemoryStore) Save(_ context.Context, snapshot pick.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot.Picks = slices.Clone(snapshot.Picks)
	s.snapshot = snapshot
	s.saved = true
	s.saves++
	return nil
}

// Saves counts successful Save calls.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
