package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/riskibarqy/pickboard/internal/source"
	"go.opentelemetry.io/otel/attribute"
)

type Dashboard struct {
	DateKey       string          `json:"dateKey"`
	Picks         []pick.Pick     `json:"picks"`
	Errors        []SourceFailure `json:"errors"`
	FallbackUsed  bool            `json:"fallbackUsed"`
	FetchedAt     time.Time       `json:"fetchedAt"`
	SyncError     string          `json:"syncError,omitempty"`
	SnapshotError string          `json:"snapshotError,omitempty"`
}

// DashboardService wires aggregation, lock tracking and the snapshot into
// the operations a pick board UI drives.
type DashboardService struct {
	aggregator *Aggregator
	tracker    *Tracker
	snapshots  pick.SnapshotStore
	sources    SourceCatalog
	events     *Broadcaster
	logger     *logging.Logger
}

func NewDashboardService(
	aggregator *Aggregator,
	tracker *Tracker,
	snapshots pick.SnapshotStore,
	sources SourceCatalog,
	events *Broadcaster,
	logger *logging.Logger,
) *DashboardService {
	if logger == nil {
		logger = logging.Default()
	}
	return &DashboardService{
		aggregator: aggregator,
		tracker:    tracker,
		snapshots:  snapshots,
		sources:    sources,
		events:     events,
		logger:     logger.Named("dashboard"),
	}
}

// Bootstrap hydrates the tracker from the durable snapshot. An unreadable
// snapshot is logged and treated as absent.
func (s *DashboardService) Bootstrap(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.DashboardService.Bootstrap")
	defer span.End()

	if s.snapshots == nil {
		return nil
	}
	snapshot, found, err := s.snapshots.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot unreadable, starting empty", "error", err)
		return nil
	}
	if !found {
		s.logger.InfoContext(ctx, "no snapshot found, starting empty")
		return nil
	}

	hydrated := s.tracker.Hydrate(snapshot)
	s.logger.InfoContext(ctx, "tracker hydrated from snapshot",
		"picks", hydrated,
		"fetched_at", snapshot.FetchedAt,
	)
	return nil
}

// Refresh fetches every requested sport and reconciles the result with the
// tracked lock state. Demo data never reaches the tracker.
func (s *DashboardService) Refresh(ctx context.Context, sports []string, dateKey string) (Dashboard, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DashboardService.Refresh", attribute.String("date_key", dateKey))
	defer span.End()

	if len(sports) == 0 {
		sports = s.aggregator.Sports()
	}
	aggregate, err := s.aggregator.FetchAll(ctx, sports, dateKey)
	if err != nil {
		return Dashboard{}, err
	}

	out := Dashboard{
		DateKey:      aggregate.DateKey,
		Picks:        aggregate.Picks,
		Errors:       aggregate.Errors,
		FallbackUsed: aggregate.FallbackUsed,
		FetchedAt:    aggregate.FetchedAt,
	}

	// Empty successful cycles still reconcile so the snapshot time advances.
	if !aggregate.FallbackUsed {
		reconciled, err := s.tracker.Reconcile(ctx, aggregate.Picks)
		switch {
		case err == nil:
		case errors.Is(err, ErrRemoteSync):
			out.SyncError = err.Error()
			s.logger.WarnContext(ctx, "refresh completed with remote sync failure", "error", err)
		default:
			return Dashboard{}, fmt.Errorf("reconcile picks: %w", err)
		}
		out.Picks = reconciled.Picks
		if reconciled.SnapshotErr != nil {
			out.SnapshotError = reconciled.SnapshotErr.Error()
		}
	}

	s.events.Publish(ctx, EventPicksRefreshed, "", map[string]any{
		"dateKey":      out.DateKey,
		"count":        len(out.Picks),
		"fallbackUsed": out.FallbackUsed,
		"failures":     len(out.Errors),
	})
	return out, nil
}

// SetLock locks or unlocks a tracked pick.
func (s *DashboardService) SetLock(ctx context.Context, pickID string, locked bool) (pick.Pick, error) {
	if locked {
		return s.tracker.Lock(ctx, pickID)
	}
	return s.tracker.Unlock(ctx, pickID)
}

// Tracked lists the working set, optionally filtered by lock state.
func (s *DashboardService) Tracked(locked *bool) []pick.Pick {
	if locked == nil {
		return s.tracker.Picks()
	}
	if *locked {
		return s.tracker.Locked()
	}
	all := s.tracker.Picks()
	out := all[:0]
	for _, p := range all {
		if !p.Locked {
			out = append(out, p)
		}
	}
	return out
}

func (s *DashboardService) Snapshot(ctx context.Context) (pick.Snapshot, error) {
	if s.snapshots == nil {
		return pick.Snapshot{}, fmt.Errorf("%w: snapshot store not configured", ErrDependencyUnavailable)
	}
	snapshot, found, err := s.snapshots.Load(ctx)
	if err != nil {
		return pick.Snapshot{}, fmt.Errorf("%w: load snapshot: %v", ErrDependencyUnavailable, err)
	}
	if !found {
		return pick.Snapshot{}, fmt.Errorf("%w: no snapshot saved yet", ErrNotFound)
	}
	return snapshot, nil
}

func (s *DashboardService) LastSource(sport string) (pick.Source, error) {
	fetcher, ok := s.sources.Get(sport)
	if !ok {
		return pick.Source{}, fmt.Errorf("%w: sport %s", ErrNotFound, sport)
	}
	last, ok := fetcher.LastSource()
	if !ok {
		return pick.Source{}, fmt.Errorf("%w: %s has not been fetched yet", ErrNotFound, fetcher.Sport())
	}
	return last, nil
}

func (s *DashboardService) ClearCache(sport, dateKey string) error {
	fetcher, ok := s.sources.Get(sport)
	if !ok {
		return fmt.Errorf("%w: sport %s", ErrNotFound, sport)
	}
	if err := fetcher.ClearCache(dateKey); err != nil {
		if errors.Is(err, source.ErrInvalidDateKey) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return err
	}
	return nil
}

func (s *DashboardService) Subscribe(buffer int) (<-chan Event, func()) {
	return s.events.Subscribe(buffer)
}
