package pick

import "context"

// Repository is the remote pick store. Create must be idempotent by pick id.
type Repository interface {
	Create(ctx context.Context, picks []Pick) error
	Update(ctx context.Context, pickID string, patch LockPatch) error
	List(ctx context.Context) ([]Pick, error)
}

// SnapshotStore persists the aggregated snapshot between sessions.
type SnapshotStore interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snapshot Snapshot) error
}
