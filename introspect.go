package xevents

import (
	"maps"
	"slices"
)

// SubscriberCount returns the number of subscriptions registered for name.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events[name])
}

// ActiveEvents returns the names that currently have subscribers, sorted.
func (b *Bus) ActiveEvents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.events))
	for name, subs := range b.events {
		if len(subs) > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// HasListeners reports whether name has at least one subscription.
func (b *Bus) HasListeners(name string) bool {
	return b.SubscriberCount(name) > 0
}

// DebugInfo aggregates subscriber counts per event.
func (b *Bus) DebugInfo() DebugInfo {
	b.mu.RLock()
	info := DebugInfo{
		TotalEvents: len(b.events),
		Events:      make(map[string]int, len(b.events)),
		Schemas:     len(b.schemas),
	}
	for name, subs := range b.events {
		info.Events[name] = len(subs)
		info.TotalSubscriptions += len(subs)
	}
	b.mu.RUnlock()

	info.HistorySize = b.history.count()
	info.MaxHistory = b.history.capacity()
	return info
}

// SubscriptionInfo lists, per event, every subscription in dispatch order.
func (b *Bus) SubscriptionInfo() map[string][]SubscriptionInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string][]SubscriptionInfo, len(b.events))
	for name, subs := range b.events {
		infos := make([]SubscriptionInfo, len(subs))
		for i, s := range subs {
			infos[i] = s.info()
		}
		out[name] = infos
	}
	return out
}

// DetectMemoryLeaks returns every event whose subscriber count exceeds
// threshold, highest count first.
//
// This is advisory. A legitimate fan-out event with many independent
// listeners looks exactly like a forgotten unsubscribe; use the report to
// decide where to look, not as proof of a leak.
func (b *Bus) DetectMemoryLeaks(threshold int) []LeakReport {
	b.mu.RLock()
	var reports []LeakReport
	for name, subs := range b.events {
		if len(subs) > threshold {
			reports = append(reports, LeakReport{EventName: name, Subscribers: len(subs), Threshold: threshold})
		}
	}
	b.mu.RUnlock()

	slices.SortFunc(reports, func(a, c LeakReport) int {
		if a.Subscribers != c.Subscribers {
			return c.Subscribers - a.Subscribers
		}
		if a.EventName < c.EventName {
			return -1
		}
		if a.EventName > c.EventName {
			return 1
		}
		return 0
	})

	for _, r := range reports {
		b.notify(BusEvent{Type: EventLeakSuspected, EventName: r.EventName, Subscribers: r.Subscribers})
	}
	return reports
}

// CleanupOrphanedSubscriptions deletes registry entries with no subscribers
// and returns how many it removed. Off never leaves such entries, so a
// non-zero result points at a bug elsewhere.
func (b *Bus) CleanupOrphanedSubscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	maps.DeleteFunc(b.events, func(_ string, subs []*subscription) bool {
		if len(subs) == 0 {
			removed++
			return true
		}
		return false
	})
	return removed
}

// RemoveAllListeners clears the subscribers of the given events, or of every
// event when called without names.
func (b *Bus) RemoveAllListeners(names ...string) {
	b.mu.Lock()
	var removed []*subscription
	if len(names) == 0 {
		for _, subs := range b.events {
			removed = append(removed, subs...)
		}
		b.events = make(map[string][]*subscription)
	} else {
		for _, name := range names {
			removed = append(removed, b.events[name]...)
			delete(b.events, name)
		}
	}
	b.mu.Unlock()

	for _, s := range removed {
		b.notify(BusEvent{Type: EventUnsubscribed, EventName: s.name, SubscriptionID: s.id, Priority: s.priority, Once: s.once})
	}
}

// EventHistory returns the retained emissions, oldest first.
func (b *Bus) EventHistory() []HistoryEntry {
	return b.history.entries()
}

// ClearHistory drops all retained emissions.
func (b *Bus) ClearHistory() {
	b.history.clear()
}
