package xevents

import (
	"context"
	"time"

	"github.com/trickstertwo/xlog"
)

// RecoveryMiddleware converts handler panics into *PanicError values so one
// subscriber cannot take down the emitting goroutine.
func RecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload any) (err error) {
			defer func() {
				if r := recover(); r != nil {
					name, _ := EventNameFromContext(ctx)
					id, _ := SubscriptionIDFromContext(ctx)
					err = &PanicError{EventName: name, SubscriptionID: id, Value: r}
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware traces every handler invocation at debug level.
func LoggingMiddleware(l *xlog.Logger) Middleware {
	if l == nil {
		return func(next Handler) Handler { return next }
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, payload any) error {
			name, _ := EventNameFromContext(ctx)
			id, _ := SubscriptionIDFromContext(ctx)
			start := time.Now()

			err := next(ctx, payload)

			l.Debug().
				Str("event_name", name).
				Str("subscription_id", id).
				Dur("dur", time.Since(start)).
				Err(err).
				Msg("handler done")
			return err
		}
	}
}

// Chain composes middlewares around a handler in order.
func Chain(h Handler, mws ...Middleware) Handler {
	if len(mws) == 0 {
		return h
	}
	wrapped := h
	// Apply in reverse so that first middleware wraps last.
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
