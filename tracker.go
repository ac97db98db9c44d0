package xevents

import (
	"sync"
	"weak"
)

// Tracker records subscriptions made against one or more buses so they can
// be removed with a single Cleanup call. It holds weak references: tracking
// never keeps a bus alive, and a collected or destroyed bus is skipped.
type Tracker struct {
	mu      sync.Mutex
	entries []trackedSubscription
}

type trackedSubscription struct {
	eventName string
	id        string
	bus       weak.Pointer[Bus]
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker { return &Tracker{} }

// Track records a subscription already made on bus. It does not subscribe.
func (t *Tracker) Track(eventName, id string, bus *Bus) {
	if bus == nil || id == "" {
		return
	}
	t.mu.Lock()
	t.entries = append(t.entries, trackedSubscription{eventName: eventName, id: id, bus: weak.Make(bus)})
	t.mu.Unlock()
}

// Subscribe subscribes handler on bus and tracks the result.
func (t *Tracker) Subscribe(bus *Bus, eventName string, handler Handler, opts ...SubscribeOption) string {
	id := bus.Subscribe(eventName, handler, opts...)
	t.Track(eventName, id, bus)
	return id
}

// Cleanup unsubscribes every tracked subscription and forgets them. Calling
// it again is a no-op.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	entries := t.entries
	t.entries = nil
	t.mu.Unlock()

	for _, e := range entries {
		if bus := e.bus.Value(); bus != nil {
			bus.Off(e.eventName, e.id)
		}
	}
}

// Count returns the number of tracked, not yet cleaned up, subscriptions.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
