package xevents

import (
	"context"
	"time"
)

// WaitFor blocks until name is next emitted and returns its payload.
//
// It registers a once subscription; whichever of delivery, timeout or ctx
// cancellation happens first settles the call, and the subscription is
// removed before WaitFor returns so it never fires late. A timeout <= 0
// waits on ctx alone.
func (b *Bus) WaitFor(ctx context.Context, name string, timeout time.Duration) (any, error) {
	if b.destroyed.Load() {
		return nil, ErrBusDestroyed
	}

	delivered := make(chan any, 1)
	unsubscribe := b.Once(name, func(_ context.Context, payload any) error {
		select {
		case delivered <- payload:
		default:
		}
		return nil
	})
	defer unsubscribe()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case payload := <-delivered:
		return payload, nil
	case <-expired:
		if payload, ok := takeDelivered(delivered); ok {
			return payload, nil
		}
		return nil, &WaitTimeoutError{EventName: name, Timeout: timeout}
	case <-ctx.Done():
		if payload, ok := takeDelivered(delivered); ok {
			return payload, nil
		}
		return nil, ctx.Err()
	}
}

// takeDelivered reports a payload that arrived in the same instant the wait
// expired; a delivered event always wins.
func takeDelivered(delivered <-chan any) (any, bool) {
	select {
	case payload := <-delivered:
		return payload, true
	default:
		return nil, false
	}
}
