package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

// PickRepository is an in-process remote store. Create keeps existing rows'
// lock state and refreshes their volatile fields.
type PickRepository struct {
	mu    sync.RWMutex
	picks map[string]pick.Pick
	order []string
}

func NewPickRepository(seed []pick.Pick) *PickRepository {
	repo := &PickRepository{picks: make(map[string]pick.Pick, len(seed))}
	_ = repo.Create(context.Background(), seed)
	return repo
}

func (r *PickRepository) Create(_ context.Context, picks []pick.Pick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range picks {
		if item.ID == "" {
			return fmt.Errorf("create pick: id is required")
		}
		if existing, ok := r.picks[item.ID]; ok {
			r.picks[item.ID] = pick.Refresh(existing, item)
			continue
		}
		r.picks[item.ID] = item
		r.order = append(r.order, item.ID)
	}
	return nil
}

func (r *PickRepository) Update(_ context.Context, pickID string, patch pick.LockPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.picks[pickID]
	if !ok {
		return fmt.Errorf("update pick %s: not found", pickID)
	}
	r.picks[pickID] = existing.WithPatch(patch)
	return nil
}

func (r *PickRepository) List(_ context.Context) ([]pick.Pick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]pick.Pick, 0, len(r.order))
	for _, pickID := range r.order {
		out = append(out, r.picks[pickID])
	}
	return out, nil
}
