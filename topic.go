package xevents

import (
	"context"
	"time"
)

// Topic binds an event name to its payload type so registration and emission
// are checked at compile time. Untyped On/Emit remain available for names
// outside a closed catalog.
type Topic[T any] struct {
	name string
}

// NewTopic declares a typed event name.
func NewTopic[T any](name string) Topic[T] { return Topic[T]{name: name} }

// Name returns the event name.
func (t Topic[T]) Name() string { return t.name }

// TypedHandler handles payloads of a single type.
type TypedHandler[T any] func(ctx context.Context, payload T) error

// AsHandler adapts a TypedHandler. Payloads of another type are converted
// through the bus Codec; a payload that cannot be converted fails the handler
// with ErrPayloadType.
func AsHandler[T any](h TypedHandler[T]) Handler {
	if h == nil {
		return nil
	}
	return func(ctx context.Context, payload any) error {
		v, err := DecodePayload[T](ctx, payload)
		if err != nil {
			return err
		}
		return h(ctx, v)
	}
}

// SubscribeTopic is Subscribe for a typed topic.
func SubscribeTopic[T any](b *Bus, t Topic[T], h TypedHandler[T], opts ...SubscribeOption) string {
	return b.Subscribe(t.name, AsHandler(h), opts...)
}

// OnTopic is On for a typed topic.
func OnTopic[T any](b *Bus, t Topic[T], h TypedHandler[T], opts ...SubscribeOption) Unsubscribe {
	return b.On(t.name, AsHandler(h), opts...)
}

// OnceTopic is Once for a typed topic.
func OnceTopic[T any](b *Bus, t Topic[T], h TypedHandler[T], opts ...SubscribeOption) Unsubscribe {
	return b.Once(t.name, AsHandler(h), opts...)
}

// EmitTopic is Emit for a typed topic.
func EmitTopic[T any](ctx context.Context, b *Bus, t Topic[T], payload T) {
	b.Emit(ctx, t.name, payload)
}

// WaitForTopic is WaitFor for a typed topic.
func WaitForTopic[T any](ctx context.Context, b *Bus, t Topic[T], timeout time.Duration) (T, error) {
	payload, err := b.WaitFor(ctx, t.name, timeout)
	if err != nil {
		var zero T
		return zero, err
	}
	return Convert[T](b.codec, payload)
}
