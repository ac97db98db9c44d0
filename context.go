package xevents

import (
	"context"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// ctxKey is the base for all context keys in xevents (prevents collisions).
type ctxKey string

const (
	eventNameCtxKey      ctxKey = "xevents:event"
	subscriptionIDCtxKey ctxKey = "xevents:subscription"
	codecCtxKey          ctxKey = "xevents:codec"
	loggerCtxKey         ctxKey = "xevents:logger"
	clockCtxKey          ctxKey = "xevents:clock"
)

// dispatchContext attaches the bus collaborators handlers may need.
func (b *Bus) dispatchContext(ctx context.Context, name string) context.Context {
	ctx = context.WithValue(ctx, eventNameCtxKey, name)
	if b.codec != nil {
		ctx = context.WithValue(ctx, codecCtxKey, b.codec)
	}
	if b.logger != nil {
		ctx = context.WithValue(ctx, loggerCtxKey, b.logger)
	}
	if b.clock != nil {
		ctx = context.WithValue(ctx, clockCtxKey, b.clock)
	}
	return ctx
}

func withSubscriptionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subscriptionIDCtxKey, id)
}

// EventNameFromContext returns the name of the event being dispatched.
func EventNameFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(eventNameCtxKey).(string)
	return v, ok
}

// SubscriptionIDFromContext returns the id of the subscription being invoked.
func SubscriptionIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subscriptionIDCtxKey).(string)
	return v, ok
}

// CodecFromContext retrieves the bus Codec injected for handlers.
func CodecFromContext(ctx context.Context) (Codec, bool) {
	if c, ok := ctx.Value(codecCtxKey).(Codec); ok && c != nil {
		return c, true
	}
	return nil, false
}

func LoggerFromContext(ctx context.Context) (*xlog.Logger, bool) {
	if l, ok := ctx.Value(loggerCtxKey).(*xlog.Logger); ok && l != nil {
		return l, true
	}
	return nil, false
}

func ClockFromContext(ctx context.Context) (xclock.Clock, bool) {
	if c, ok := ctx.Value(clockCtxKey).(xclock.Clock); ok && c != nil {
		return c, true
	}
	return nil, false
}
