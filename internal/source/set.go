package source

import (
	"sync"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

// Set owns the fetchers of the configured sports, keyed by canonical code.
type Set struct {
	mu       sync.RWMutex
	fetchers map[string]PickFetcher
	order    []string
}

func NewSet(fetchers ...PickFetcher) *Set {
	s := &Set{fetchers: make(map[string]PickFetcher, len(fetchers))}
	for _, f := range fetchers {
		s.Add(f)
	}
	return s
}

// Add registers f, replacing any fetcher already held for its sport.
func (s *Set) Add(f PickFetcher) {
	if f == nil {
		return
	}
	sport := pick.NormalizeSport(f.Sport())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.fetchers[sport]; !exists {
		s.order = append(s.order, sport)
	}
	s.fetchers[sport] = f
}

func (s *Set) Get(sport string) (PickFetcher, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fetchers[pick.NormalizeSport(sport)]
	return f, ok
}

// Sports lists the registered sports in registration order.
func (s *Set) Sports() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}
