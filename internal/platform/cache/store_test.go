package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, _, err := store.GetOrLoad(context.Background(), "same-key", loader)
			if err != nil {
				errCh <- err
				return
			}
			if v != "value" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_ReportsHitWithinTTL(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	var calls atomic.Int32
	loader := func(context.Context) (string, error) {
		calls.Add(1)
		return "cached", nil
	}

	if _, hit, err := store.GetOrLoad(context.Background(), "k", loader); err != nil || hit {
		t.Fatalf("first GetOrLoad: hit=%v err=%v", hit, err)
	}
	if _, hit, err := store.GetOrLoad(context.Background(), "k", loader); err != nil || !hit {
		t.Fatalf("second GetOrLoad: hit=%v err=%v", hit, err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_EntryExpiresAtTTL(t *testing.T) {
	t.Parallel()

	store := NewStore[int](time.Minute)
	now := time.Date(2025, 12, 25, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set("2025-12-25", 7)

	now = now.Add(59 * time.Second)
	e, ok := store.Get("2025-12-25")
	if !ok || e.Value != 7 {
		t.Fatalf("expected fresh entry, got ok=%v value=%v", ok, e.Value)
	}
	if e.Age(now) != 59*time.Second {
		t.Fatalf("unexpected age %s", e.Age(now))
	}

	now = now.Add(time.Second)
	if _, ok := store.Get("2025-12-25"); ok {
		t.Fatalf("entry at exactly the TTL must be stale")
	}
	if store.Len() != 0 {
		t.Fatalf("expected stale entry evicted")
	}
}

func TestStore_LoaderErrorIsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	boom := errors.New("boom")
	if _, _, err := store.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
		return "", boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("failed loads must not populate the cache")
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	t.Parallel()

	store := NewStore[string](0)
	if store.TTL() != DefaultTTL {
		t.Fatalf("expected default ttl, got %s", store.TTL())
	}
	store.Set("a", "1")
	store.Set("b", "2")

	store.Delete("a")
	if _, ok := store.Get("a"); ok {
		t.Fatalf("expected a deleted")
	}
	store.Clear()
	if _, ok := store.Get("b"); ok {
		t.Fatalf("expected cache cleared")
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")

func TestStore_GetOrLoad_LeaderCancelDoesNotFailWaiters(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute).WithLoadTimeout(time.Second)
	started := make(chan struct{})
	release := make(chan struct{})
	loader := func(ctx context.Context) (string, error) {
		close(started)
		select {
		case <-release:
			return "value", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := store.GetOrLoad(leaderCtx, "k", loader)
		leaderErr <- err
	}()
	<-started

	waiterVal := make(chan string, 1)
	waiterErr := make(chan error, 1)
	go func() {
		v, _, err := store.GetOrLoad(context.Background(), "k", loader)
		waiterVal <- v
		waiterErr <- err
	}()

	cancelLeader()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("leader err = %v, want context.Canceled", err)
	}
	close(release)

	if err := <-waiterErr; err != nil {
		t.Fatalf("waiter err = %v", err)
	}
	if v := <-waiterVal; v != "value" {
		t.Fatalf("waiter value = %q, want %q", v, "value")
	}
	if _, ok := store.Get("k"); !ok {
		t.Fatal("loaded value was not cached")
	}
}

func TestStore_GetOrLoad_LoadTimeoutBoundsDetachedLoad(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute).WithLoadTimeout(20 * time.Millisecond)
	_, _, err := store.GetOrLoad(context.Background(), "k", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}
