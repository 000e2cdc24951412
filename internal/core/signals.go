package core

import "sync"

// EventType identifies the two signals the core exposes outward.
type EventType string

const (
	// EventDBUpdated fires whenever local state is replaced by a remote pull.
	EventDBUpdated EventType = "db-updated"
	// EventSyncStatus fires on every push/pull success or failure.
	EventSyncStatus EventType = "sync-status"
)

// Event is the payload delivered to subscribers. OK and Message are only
// meaningful for EventSyncStatus.
type Event struct {
	Type    EventType `json:"type"`
	OK      bool      `json:"ok"`
	Message string    `json:"message"`
}

// Bus is the explicit observer interface the presentation layer subscribes
// to. Delivery is a synchronous callback on the publishing goroutine;
// subscribers must not block.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns its unsubscribe function.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers evt to every current subscriber.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}
