package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/pickboard/internal/platform/id"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
)

type EventType string

const (
	EventPicksRefreshed EventType = "picks.refreshed"
	EventPickLocked     EventType = "pick.locked"
	EventPickUnlocked   EventType = "pick.unlocked"
	EventSyncFailed     EventType = "sync.failed"
	EventSnapshotFailed EventType = "snapshot.failed"
)

const defaultSubscriberBuffer = 32

type Event struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	PickID  string    `json:"pickId,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Broadcaster fans state changes out to subscribers. Delivery is
// non-blocking: a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	ids    id.Generator
	logger *logging.Logger
	now    func() time.Time

	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

func NewBroadcaster(ids id.Generator, logger *logging.Logger) *Broadcaster {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Broadcaster{
		ids:    ids,
		logger: logger.Named("events"),
		now:    time.Now,
		subs:   make(map[int]chan Event),
	}
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	key := b.nextID
	b.nextID++
	b.subs[key] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, key)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(ctx context.Context, typ EventType, pickID string, payload any) Event {
	if b == nil {
		return Event{}
	}
	eventID, err := b.ids.NewID()
	if err != nil {
		b.logger.WarnContext(ctx, "event id generation failed", "type", typ, "error", err)
	}
	event := Event{ID: eventID, Type: typ, PickID: pickID, Payload: payload, At: b.now()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for key, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.WarnContext(ctx, "subscriber buffer full, event dropped", "subscriber", key, "type", typ)
		}
	}
	return event
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
