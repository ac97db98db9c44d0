package xevents

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var (
	defaultBus   *Bus
	defaultBusMu sync.Mutex
)

// Default returns the process-wide Bus, building one with defaults on first
// use. Components that need isolation (tests in particular) should construct
// their own Bus instead.
func Default() *Bus {
	defaultBusMu.Lock()
	defer defaultBusMu.Unlock()

	if defaultBus != nil {
		return defaultBus
	}

	bus, err := NewBusBuilder().Build()
	if err != nil {
		panic(fmt.Sprintf("xevents: failed to initialize default bus: %v", err))
	}
	defaultBus = bus
	return defaultBus
}

// SetDefault replaces the process-wide default Bus.
func SetDefault(b *Bus) {
	if b == nil {
		panic("xevents: SetDefault called with nil Bus")
	}
	defaultBusMu.Lock()
	defaultBus = b
	defaultBusMu.Unlock()
}

// Emit is the Facade using the default bus.
func Emit(ctx context.Context, name string, payload any) {
	Default().Emit(ctx, name, payload)
}

// On is the Facade using the default bus.
func On(name string, handler Handler, opts ...SubscribeOption) Unsubscribe {
	return Default().On(name, handler, opts...)
}

// Once is the Facade using the default bus.
func Once(name string, handler Handler, opts ...SubscribeOption) Unsubscribe {
	return Default().Once(name, handler, opts...)
}

// Off is the Facade using the default bus.
func Off(name, id string) {
	Default().Off(name, id)
}

// WaitFor is the Facade using the default bus.
func WaitFor(ctx context.Context, name string, timeout time.Duration) (any, error) {
	return Default().WaitFor(ctx, name, timeout)
}
