package xevents

import (
	"time"
)

// BusEventType enumerates bus lifecycle events for the Observer pattern.
type BusEventType string

const (
	EventSubscribed         BusEventType = "subscribed"
	EventUnsubscribed       BusEventType = "unsubscribed"
	EventEmitted            BusEventType = "emitted"
	EventValidationRejected BusEventType = "validation_rejected"
	EventNoSubscribers      BusEventType = "no_subscribers"
	EventHandlerFailed      BusEventType = "handler_failed"
	EventLeakSuspected      BusEventType = "leak_suspected"
	EventDeprecatedName     BusEventType = "deprecated_name"
)

// BusEvent carries telemetry for observers.
type BusEvent struct {
	Type           BusEventType
	EventName      string
	SubscriptionID string
	Priority       int
	Once           bool
	Subscribers    int
	Payload        any
	Canonical      string // set for EventDeprecatedName
	Timestamp      time.Time
	Duration       time.Duration
	Err            error
}

// HistoryEntry is an immutable record of one emission.
type HistoryEntry struct {
	EventName       string
	Payload         any
	Timestamp       time.Time
	SubscriberCount int
}

// SubscriptionInfo describes a subscription without exposing its handler.
type SubscriptionInfo struct {
	ID       string
	Once     bool
	Priority int
}

// DebugInfo aggregates registry state for diagnostics.
type DebugInfo struct {
	TotalEvents        int
	TotalSubscriptions int
	Events             map[string]int
	Schemas            int
	HistorySize        int
	MaxHistory         int
}

// LeakReport names an event whose subscriber count crossed a threshold.
type LeakReport struct {
	EventName   string
	Subscribers int
	Threshold   int
}

// PoolStats returns telemetry about the observer pool.
type PoolStats struct {
	Dropped    uint64 // Events dropped due to full buffer
	Processed  uint64 // Events successfully processed
	Panics     uint64 // Observer panics recovered
	QueueDepth int
	Workers    int
	BufferSize int
}

// Metrics defines observable telemetry for the bus.
type Metrics struct {
	Emitted          uint64
	Delivered        uint64
	Rejected         uint64
	HandlerFailures  uint64
	HandlerPanics    uint64
	NoSubscribers    uint64
	EventsDropped    uint64
	AvgHandlerTimeMs float64
}

// HealthStatus summarises bus health for probes and dashboards.
type HealthStatus struct {
	Status    string // "healthy", "degraded", "unhealthy"
	Metrics   Metrics
	Timestamp time.Time
	Message   string
}
