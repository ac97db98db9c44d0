package xevents

import (
	"context"
	"time"
)

// Handler processes one payload. A returned error or a panic is reported as a
// handler failure and never stops dispatch to the remaining subscribers.
type Handler func(ctx context.Context, payload any) error

// Middleware composes processing concerns around a Handler.
type Middleware func(next Handler) Handler

// Unsubscribe removes the subscription it was returned for. Calling it more
// than once is a no-op.
type Unsubscribe func()

// Observer receives bus lifecycle events. Implementations should be non-blocking.
type Observer interface {
	OnBusEvent(e BusEvent)
}

// Closer is implemented by observers that own resources; Destroy closes them.
type Closer interface {
	Close(ctx context.Context) error
}

// Catalog is a static table of event schemas, quiet events and legacy aliases
// installed on a bus at construction.
type Catalog interface {
	Schemas() map[string]Schema
	OptionalEvents() []string
	// Aliases maps a deprecated event name to its canonical name.
	Aliases() map[string]string
}

// HealthChecker provides health status for production monitoring.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// API represents the complete xevents surface.
type API interface {
	Subscribe(name string, handler Handler, opts ...SubscribeOption) string
	On(name string, handler Handler, opts ...SubscribeOption) Unsubscribe
	Once(name string, handler Handler, opts ...SubscribeOption) Unsubscribe
	Off(name, id string)
	Unsubscribe(name, id string)
	Emit(ctx context.Context, name string, payload any)
	WaitFor(ctx context.Context, name string, timeout time.Duration) (any, error)
	RegisterSchema(name string, schema Schema)

	SubscriberCount(name string) int
	ActiveEvents() []string
	HasListeners(name string) bool
	DebugInfo() DebugInfo
	SubscriptionInfo() map[string][]SubscriptionInfo
	DetectMemoryLeaks(threshold int) []LeakReport
	CleanupOrphanedSubscriptions() int
	RemoveAllListeners(names ...string)
	EventHistory() []HistoryEntry
	ClearHistory()

	GetMetrics() Metrics
	Health(ctx context.Context) HealthStatus
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	Destroy(ctx context.Context) error
}

var _ API = (*Bus)(nil)
var _ HealthChecker = (*Bus)(nil)
