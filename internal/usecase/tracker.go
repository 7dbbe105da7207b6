package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/riskibarqy/pickboard/internal/platform/metrics"
	"go.opentelemetry.io/otel/attribute"
)

type ReconcileResult struct {
	Picks     []pick.Pick `json:"picks"`
	Created   int         `json:"created"`
	Refreshed int         `json:"refreshed"`
	Merged    int         `json:"merged"`
	Pending   int         `json:"pending"`
	// SnapshotErr is set when the working set could not be persisted locally.
	SnapshotErr error `json:"-"`
}

// Tracker owns the working set of picks and their lock state, mirrored to
// the remote store and the local snapshot. The mutex guards only the
// in-memory set and is never held across a remote call.
type Tracker struct {
	repo      pick.Repository
	snapshots pick.SnapshotStore
	events    *Broadcaster
	metrics   *metrics.Recorder
	logger    *logging.Logger
	now       func() time.Time

	mu        sync.RWMutex
	picks     map[string]pick.Pick
	order     []string
	pending   map[string]struct{}
	fetchedAt time.Time
}

func NewTracker(
	repo pick.Repository,
	snapshots pick.SnapshotStore,
	events *Broadcaster,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) *Tracker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Tracker{
		repo:      repo,
		snapshots: snapshots,
		events:    events,
		metrics:   recorder,
		logger:    logger.Named("tracker"),
		now:       time.Now,
		picks:     make(map[string]pick.Pick),
		pending:   make(map[string]struct{}),
	}
}

// Hydrate replaces the working set with a snapshot. Hydrated picks stay
// pending until the next Reconcile creates them remotely; their lock state is
// provisional and the remote store's state replaces it once listed.
func (t *Tracker) Hydrate(snapshot pick.Snapshot) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.picks = make(map[string]pick.Pick, len(snapshot.Picks))
	t.order = t.order[:0]
	t.pending = make(map[string]struct{}, len(snapshot.Picks))
	for _, p := range snapshot.Picks {
		if p.ID == "" {
			p.ID = pick.ComputeID(p)
		}
		if err := p.Validate(); err != nil {
			t.logger.Warn("skipping invalid snapshot pick", "pick_id", p.ID, "error", err)
			continue
		}
		if _, dup := t.picks[p.ID]; dup {
			continue
		}
		t.picks[p.ID] = p
		t.order = append(t.order, p.ID)
		t.pending[p.ID] = struct{}{}
	}
	t.fetchedAt = snapshot.FetchedAt
	t.metrics.TrackedPicks(len(t.picks))
	return len(t.picks)
}

// Reconcile merges a fresh fetch into the working set. New picks enter
// unlocked and are created remotely; known picks only refresh their volatile
// fields. Remote lock state is then merged latest-write-wins. A remote
// failure is returned wrapped in ErrRemoteSync after the local state and the
// snapshot have been updated.
func (t *Tracker) Reconcile(ctx context.Context, fetched []pick.Pick) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Tracker.Reconcile", attribute.Int("fetched", len(fetched)))
	defer span.End()

	incoming := pick.Dedupe(fetched)
	result := ReconcileResult{}

	t.mu.Lock()
	for _, p := range incoming {
		if existing, ok := t.picks[p.ID]; ok {
			t.picks[p.ID] = pick.Refresh(existing, p)
			result.Refreshed++
			continue
		}
		p = withoutLock(p)
		t.picks[p.ID] = p
		t.order = append(t.order, p.ID)
		t.pending[p.ID] = struct{}{}
	}
	toCreate := t.pendingCreatesLocked()
	t.fetchedAt = t.now()
	t.mu.Unlock()

	var syncErr error
	created := make(map[string]struct{}, len(toCreate))
	if len(toCreate) > 0 {
		if err := t.repo.Create(ctx, toCreate); err != nil {
			syncErr = fmt.Errorf("%w: create %d picks: %w", ErrRemoteSync, len(toCreate), err)
			t.metrics.RemoteSyncFailure("create")
			t.events.Publish(ctx, EventSyncFailed, "", map[string]any{"operation": "create", "count": len(toCreate)})
			t.logger.WarnContext(ctx, "remote create failed, picks stay pending", "count", len(toCreate), "error", err)
		} else {
			t.mu.Lock()
			for _, p := range toCreate {
				delete(t.pending, p.ID)
				created[p.ID] = struct{}{}
			}
			t.mu.Unlock()
			result.Created = len(toCreate)
		}
	}

	remote, err := t.repo.List(ctx)
	if err != nil {
		t.metrics.RemoteSyncFailure("list")
		t.logger.WarnContext(ctx, "remote lock state unavailable", "error", err)
		if syncErr == nil {
			syncErr = fmt.Errorf("%w: list picks: %w", ErrRemoteSync, err)
		}
	} else {
		result.Merged = t.mergeRemote(remote, created)
	}

	t.mu.RLock()
	result.Pending = len(t.pending)
	result.Picks = make([]pick.Pick, 0, len(incoming))
	for _, p := range incoming {
		result.Picks = append(result.Picks, t.picks[p.ID])
	}
	tracked := len(t.picks)
	t.mu.RUnlock()

	t.metrics.TrackedPicks(tracked)
	result.SnapshotErr = t.saveSnapshot(ctx)
	return result, syncErr
}

// pendingCreatesLocked must be called with t.mu held. Lock state only
// travels through Update, so creates always carry an unlocked pick.
func (t *Tracker) pendingCreatesLocked() []pick.Pick {
	out := make([]pick.Pick, 0, len(t.pending))
	for _, pickID := range t.order {
		if _, ok := t.pending[pickID]; ok {
			out = append(out, withoutLock(t.picks[pickID]))
		}
	}
	return out
}

// mergeRemote applies remote lock state latest-write-wins. For ids in
// adopt, which were only just confirmed remotely, the remote state wins
// outright over whatever the snapshot carried.
func (t *Tracker) mergeRemote(remote []pick.Pick, adopt map[string]struct{}) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	merged := 0
	for _, r := range remote {
		local, ok := t.picks[r.ID]
		if !ok {
			continue
		}
		_, authoritative := adopt[r.ID]
		switch {
		case r.LockChangedAt.After(local.LockChangedAt):
		case authoritative && (r.Locked != local.Locked || !r.LockChangedAt.Equal(local.LockChangedAt)):
		default:
			continue
		}
		t.picks[r.ID] = local.WithPatch(pick.PatchOf(r))
		merged++
	}
	return merged
}

func withoutLock(p pick.Pick) pick.Pick {
	p.Locked = false
	p.LockedAt = nil
	p.LockChangedAt = time.Time{}
	return p
}

func (t *Tracker) Lock(ctx context.Context, pickID string) (pick.Pick, error) {
	return t.setLock(ctx, pickID, true)
}

func (t *Tracker) Unlock(ctx context.Context, pickID string) (pick.Pick, error) {
	return t.setLock(ctx, pickID, false)
}

// setLock writes remotely first; the local pick only changes once the remote
// store accepted the new state.
func (t *Tracker) setLock(ctx context.Context, pickID string, locked bool) (pick.Pick, error) {
	action, spanName := "unlock", "usecase.Tracker.Unlock"
	if locked {
		action, spanName = "lock", "usecase.Tracker.Lock"
	}
	ctx, span := startUsecaseSpan(ctx, spanName, attribute.String("pick_id", pickID))
	defer span.End()

	pickID = strings.TrimSpace(pickID)
	if pickID == "" {
		return pick.Pick{}, fmt.Errorf("%w: pick id is required", ErrInvalidInput)
	}

	t.mu.RLock()
	current, ok := t.picks[pickID]
	_, pending := t.pending[pickID]
	t.mu.RUnlock()
	if !ok {
		return pick.Pick{}, fmt.Errorf("%w: pick %s", ErrNotFound, pickID)
	}
	if current.Locked == locked {
		return current, nil
	}

	next := current.WithLock(locked, t.now())
	var err error
	if pending {
		// The row may not exist remotely yet; create it unlocked, then patch.
		if err = t.repo.Create(ctx, []pick.Pick{withoutLock(current)}); err == nil {
			t.mu.Lock()
			delete(t.pending, pickID)
			t.mu.Unlock()
		}
	}
	if err == nil {
		err = t.repo.Update(ctx, pickID, pick.PatchOf(next))
	}
	t.metrics.LockTransition(action, err)
	if err != nil {
		t.metrics.RemoteSyncFailure(action)
		t.events.Publish(ctx, EventSyncFailed, pickID, map[string]any{"operation": action})
		return pick.Pick{}, fmt.Errorf("%w: %s %s: %w", ErrRemoteSync, action, pickID, err)
	}

	t.mu.Lock()
	latest := t.picks[pickID].WithPatch(pick.PatchOf(next))
	t.picks[pickID] = latest
	delete(t.pending, pickID)
	t.mu.Unlock()

	if err := t.saveSnapshot(ctx); err != nil {
		t.events.Publish(ctx, EventSnapshotFailed, pickID, map[string]any{"operation": action})
	}

	eventType := EventPickUnlocked
	if locked {
		eventType = EventPickLocked
	}
	t.events.Publish(ctx, eventType, pickID, latest)
	return latest, nil
}

// Picks returns the working set in first-seen order.
func (t *Tracker) Picks() []pick.Pick {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]pick.Pick, 0, len(t.order))
	for _, pickID := range t.order {
		out = append(out, t.picks[pickID])
	}
	return out
}

func (t *Tracker) Locked() []pick.Pick {
	all := t.Picks()
	out := all[:0]
	for _, p := range all {
		if p.Locked {
			out = append(out, p)
		}
	}
	return out
}

func (t *Tracker) Get(pickID string) (pick.Pick, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.picks[pickID]
	return p, ok
}

// ApplyLocks overlays the tracked lock state onto picks that are not part of
// the working set's own output, such as a cached aggregate.
func (t *Tracker) ApplyLocks(picks []pick.Pick) []pick.Pick {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]pick.Pick, len(picks))
	for i, p := range picks {
		if tracked, ok := t.picks[p.ID]; ok {
			p = p.WithPatch(pick.PatchOf(tracked))
		}
		out[i] = p
	}
	return out
}

func (t *Tracker) saveSnapshot(ctx context.Context) error {
	if t.snapshots == nil {
		return nil
	}
	t.mu.RLock()
	snapshot := pick.Snapshot{FetchedAt: t.fetchedAt, Picks: make([]pick.Pick, 0, len(t.order))}
	for _, pickID := range t.order {
		snapshot.Picks = append(snapshot.Picks, t.picks[pickID])
	}
	t.mu.RUnlock()

	if err := t.snapshots.Save(ctx, snapshot); err != nil {
		t.logger.WarnContext(ctx, "snapshot save failed", "picks", len(snapshot.Picks), "error", err)
		return fmt.Errorf("%w: save snapshot: %w", ErrDependencyUnavailable, err)
	}
	return nil
}
