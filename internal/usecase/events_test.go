package usecase

import (
	"context"
	"testing"

	"github.com/riskibarqy/pickboard/internal/platform/id"
)

func TestBroadcaster_DeliversAndUnsubscribes(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(&id.SequenceGenerator{Prefix: "evt"}, nil)
	first, cancelFirst := b.Subscribe(2)
	second, cancelSecond := b.Subscribe(2)
	defer cancelSecond()

	event := b.Publish(context.Background(), EventPickLocked, "nba_x", nil)
	if event.ID != "evt-1" || event.Type != EventPickLocked || event.At.IsZero() {
		t.Fatalf("unexpected event %+v", event)
	}
	if got := <-first; got.ID != event.ID {
		t.Fatalf("first subscriber got %+v", got)
	}
	if got := <-second; got.PickID != "nba_x" {
		t.Fatalf("second subscriber got %+v", got)
	}

	cancelFirst()
	cancelFirst()
	if _, open := <-first; open {
		t.Fatalf("cancelled subscription must be closed")
	}
	if b.Subscribers() != 1 {
		t.Fatalf("expected one subscriber left, got %d", b.Subscribers())
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(&id.SequenceGenerator{Prefix: "evt"}, nil)
	sub, cancel := b.Subscribe(1)
	defer cancel()

	b.Publish(context.Background(), EventPicksRefreshed, "", nil)
	b.Publish(context.Background(), EventPicksRefreshed, "", nil)

	if got := <-sub; got.ID != "evt-1" {
		t.Fatalf("expected the first event to be kept, got %+v", got)
	}
	select {
	case extra := <-sub:
		t.Fatalf("expected the overflow event to be dropped, got %+v", extra)
	default:
	}
}

func TestBroadcaster_NilIsNoop(t *testing.T) {
	t.Parallel()

	var b *Broadcaster
	if got := b.Publish(context.Background(), EventSyncFailed, "", nil); got.ID != "" {
		t.Fatalf("expected zero event, got %+v", got)
	}
}
