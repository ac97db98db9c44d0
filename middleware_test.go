package xevents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xlog"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(label string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, payload any) error {
				order = append(order, label)
				return next(ctx, payload)
			}
		}
	}
	h := Chain(func(context.Context, any) error {
		order = append(order, "handler")
		return nil
	}, mw("first"), nil, mw("second"))

	require.NoError(t, h(context.Background(), nil))
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware()(func(context.Context, any) error { panic("boom") })

	ctx := withSubscriptionID(context.WithValue(context.Background(), eventNameCtxKey, "x"), "sub-1")
	err := h(ctx, nil)

	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "x", perr.EventName)
	assert.Equal(t, "sub-1", perr.SubscriptionID)
	assert.Equal(t, "boom", perr.Value)
}

func TestBusMiddleware_WrapsEveryHandler(t *testing.T) {
	var seen []string
	audit := func(next Handler) Handler {
		return func(ctx context.Context, payload any) error {
			name, _ := EventNameFromContext(ctx)
			seen = append(seen, name)
			return next(ctx, payload)
		}
	}
	bus, rec := newTestBus(t, func(bb *BusBuilder) { bb.WithMiddleware(audit).WithMiddleware() })

	bus.Subscribe("a", noop)
	bus.Subscribe("b", func(context.Context, any) error { panic("b failed") })
	bus.Emit(context.Background(), "a", nil)
	bus.Emit(context.Background(), "b", nil)

	assert.Equal(t, []string{"a", "b"}, seen)
	failures := rec.ofType(EventHandlerFailed)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err, ErrHandlerPanic)
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	want := errors.New("handler error")
	for _, mw := range []Middleware{LoggingMiddleware(nil), LoggingMiddleware(xlog.Default())} {
		h := mw(func(context.Context, any) error { return want })
		assert.ErrorIs(t, h(context.Background(), nil), want)
	}
}
