package redisstream

import (
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xevents"
	"github.com/trickstertwo/xlog"
)

// Option configures the xevents.Bus construction when calling Use.
type Option func(*xevents.BusBuilder)

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *xevents.BusBuilder) { b.WithLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(b *xevents.BusBuilder) { b.WithClock(c) }
}

// WithCodec selects the bus codec by name (default: json).
func WithCodec(name string) Option {
	return func(b *xevents.BusBuilder) { b.WithCodec(name) }
}

// WithMiddleware adds handler middlewares.
func WithMiddleware(mw ...xevents.Middleware) Option {
	return func(b *xevents.BusBuilder) { b.WithMiddleware(mw...) }
}

// WithObserver attaches further observers.
func WithObserver(obs ...xevents.Observer) Option {
	return func(b *xevents.BusBuilder) { b.WithObserver(obs...) }
}

// WithMaxHistory bounds the in-process history.
func WithMaxHistory(n int) Option {
	return func(b *xevents.BusBuilder) { b.WithMaxHistory(n) }
}

// WithCatalog pre-registers a static event catalog.
func WithCatalog(c xevents.Catalog) Option {
	return func(b *xevents.BusBuilder) { b.WithCatalog(c) }
}
