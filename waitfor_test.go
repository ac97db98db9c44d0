package xevents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitFor_ResolvesBeforeTimeout(t *testing.T) {
	bus, _ := newTestBus(t, nil)
	before := bus.SubscriberCount("x")

	go func() {
		time.Sleep(10 * time.Millisecond)
		bus.Emit(context.Background(), "x", "hello")
	}()

	payload, err := bus.WaitFor(context.Background(), "x", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "hello", payload)
	assert.Equal(t, before, bus.SubscriberCount("x"))

	// The settled wait never fires again.
	time.Sleep(60 * time.Millisecond)
	bus.Emit(context.Background(), "x", "late")
	assert.Equal(t, before, bus.SubscriberCount("x"))
}

func TestWaitFor_TimesOut(t *testing.T) {
	bus, _ := newTestBus(t, nil)
	bus.Subscribe("x", noop)
	before := bus.SubscriberCount("x")

	start := time.Now()
	payload, err := bus.WaitFor(context.Background(), "x", 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.Nil(t, payload)
	require.ErrorIs(t, err, ErrWaitTimeout)
	var terr *WaitTimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "x", terr.EventName)
	assert.Equal(t, 50*time.Millisecond, terr.Timeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)

	assert.Equal(t, before, bus.SubscriberCount("x"))
}

func TestWaitFor_ContextCancelled(t *testing.T) {
	bus, _ := newTestBus(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := bus.WaitFor(ctx, "x", 0)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, bus.HasListeners("x"))
}

func TestWaitFor_HigherPriorityHandlersRunFirst(t *testing.T) {
	bus, _ := newTestBus(t, nil)

	var seen bool
	bus.Subscribe("x", func(context.Context, any) error { seen = true; return nil }, WithPriority(1))

	done := make(chan any, 1)
	go func() {
		p, _ := bus.WaitFor(context.Background(), "x", time.Second)
		done <- p
	}()
	require.Eventually(t, func() bool { return bus.SubscriberCount("x") == 2 }, time.Second, time.Millisecond)

	bus.Emit(context.Background(), "x", 42)
	assert.Equal(t, 42, <-done)
	assert.True(t, seen)
}

func TestWaitForTopic(t *testing.T) {
	bus, _ := newTestBus(t, nil)
	topic := NewTopic[paymentEvent]("payment:completed")

	go func() {
		time.Sleep(5 * time.Millisecond)
		bus.Emit(context.Background(), topic.Name(), map[string]any{"paymentId": "p-9", "amount": 3.5})
	}()

	got, err := WaitForTopic(context.Background(), bus, topic, time.Second)
	require.NoError(t, err)
	assert.Equal(t, paymentEvent{PaymentID: "p-9", Amount: 3.5}, got)

	_, err = WaitForTopic(context.Background(), bus, topic, 5*time.Millisecond)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

// emitOnSubscribe emits name as soon as a once subscription for it is
// registered, so the payload is queued before WaitFor starts selecting.
func emitOnSubscribe(bus **Bus, name string, payload any) Observer {
	return ObserverFunc(func(e BusEvent) {
		if e.Type == EventSubscribed && e.EventName == name && e.Once {
			(*bus).Emit(context.Background(), name, payload)
		}
	})
}

func TestWaitFor_DeliveryWinsOverCancelledContext(t *testing.T) {
	var bus *Bus
	bus, _ = newTestBus(t, func(bb *BusBuilder) {
		bb.WithObserver(emitOnSubscribe(&bus, "x", "ready"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 50; i++ {
		payload, err := bus.WaitFor(ctx, "x", 0)
		require.NoError(t, err)
		assert.Equal(t, "ready", payload)
	}
	assert.False(t, bus.HasListeners("x"))
}

func TestWaitFor_DeliveryWinsOverExpiredTimer(t *testing.T) {
	var bus *Bus
	bus, _ = newTestBus(t, func(bb *BusBuilder) {
		bb.WithObserver(emitOnSubscribe(&bus, "x", "ready"))
	})

	for i := 0; i < 50; i++ {
		payload, err := bus.WaitFor(context.Background(), "x", time.Nanosecond)
		require.NoError(t, err)
		assert.Equal(t, "ready", payload)
	}
	assert.False(t, bus.HasListeners("x"))
}
