package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/pickboard/internal/platform/resilience"
)

const DefaultTTL = 60 * time.Second

// Entry is a cached value and the moment it was fetched.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
}

// Age reports how old the entry is at now.
func (e Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Store maps keys to entries that are served only while younger than the TTL.
// One store belongs to exactly one owner; it is never shared across sources.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	ttl     time.Duration
	flight  resilience.Group[V]
	now     func() time.Time

	loadTimeout time.Duration
}

func NewStore[V any](ttl time.Duration) *Store[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[V]{
		entries: make(map[string]Entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithLoadTimeout bounds each shared load. Loads run detached from the
// caller that started them, so this is their only deadline.
func (s *Store[V]) WithLoadTimeout(d time.Duration) *Store[V] {
	s.loadTimeout = d
	return s
}

func (s *Store[V]) TTL() time.Duration {
	return s.ttl
}

// Get returns the entry for key when it is still fresh. Stale entries are
// evicted on read.
func (s *Store[V]) Get(key string) (Entry[V], bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Entry[V]{}, false
	}
	if e.Age(s.now()) >= s.ttl {
		s.mu.Lock()
		if current, still := s.entries[key]; still && current.FetchedAt.Equal(e.FetchedAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return Entry[V]{}, false
	}
	return e, true
}

func (s *Store[V]) Set(key string, value V) Entry[V] {
	e := Entry[V]{Value: value, FetchedAt: s.now()}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return e
}

func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *Store[V]) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]Entry[V])
	s.mu.Unlock()
}

func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrLoad serves a fresh entry or runs loader once for all concurrent
// callers of the same key. The bool reports a cache hit. The loader keeps
// the first caller's values but not its cancellation; a caller whose ctx
// ends stops waiting without failing the others.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (V, error)) (V, bool, error) {
	var zero V
	if loader == nil {
		return zero, false, fmt.Errorf("loader is required")
	}
	if e, ok := s.Get(key); ok {
		return e.Value, true, nil
	}

	var hit atomic.Bool
	ch := s.flight.DoChan(key, func() (V, error) {
		if e, ok := s.Get(key); ok {
			hit.Store(true)
			return e.Value, nil
		}
		loadCtx := context.WithoutCancel(ctx)
		if s.loadTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, s.loadTimeout)
			defer cancel()
		}
		loaded, loadErr := loader(loadCtx)
		if loadErr != nil {
			return zero, loadErr
		}
		s.Set(key, loaded)
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val, hit.Load(), nil
	}
}
