package xevents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_BulkCleanup(t *testing.T) {
	bus, _ := newTestBus(t, nil)
	tracker := NewTracker()

	names := []string{"declaration:created", "payment:completed", "modal:open"}
	for i := 0; i < 5; i++ {
		id := tracker.Subscribe(bus, names[i%len(names)], noop)
		require.NotEmpty(t, id)
	}
	untracked := bus.Subscribe("modal:open", noop)

	assert.Equal(t, 5, tracker.Count())
	assert.Equal(t, 2, bus.SubscriberCount("declaration:created"))

	tracker.Cleanup()
	assert.Equal(t, 0, tracker.Count())
	assert.Equal(t, 0, bus.SubscriberCount("declaration:created"))
	assert.Equal(t, 0, bus.SubscriberCount("payment:completed"))
	assert.Equal(t, 1, bus.SubscriberCount("modal:open"))

	assert.NotPanics(t, tracker.Cleanup)
	bus.Off("modal:open", untracked)
	for _, n := range names {
		assert.Equal(t, 0, bus.SubscriberCount(n))
	}
}

func TestTracker_MultipleBuses(t *testing.T) {
	a, _ := newTestBus(t, nil)
	b, _ := newTestBus(t, nil)
	tracker := NewTracker()

	tracker.Subscribe(a, "x", noop)
	tracker.Subscribe(b, "x", noop)
	tracker.Track("y", b.Subscribe("y", noop), b)

	tracker.Cleanup()
	assert.False(t, a.HasListeners("x"))
	assert.False(t, b.HasListeners("x"))
	assert.False(t, b.HasListeners("y"))
}

func TestTracker_IgnoresInvalidEntries(t *testing.T) {
	bus, _ := newTestBus(t, nil)
	tracker := NewTracker()

	tracker.Track("x", "", bus)
	tracker.Track("x", "id", nil)
	assert.Equal(t, "", tracker.Subscribe(bus, "x", nil))
	assert.Equal(t, 0, tracker.Count())
}

func TestTracker_AlreadyRemovedAndDestroyedBus(t *testing.T) {
	bus, _ := newTestBus(t, nil)
	tracker := NewTracker()

	id := tracker.Subscribe(bus, "x", noop)
	tracker.Subscribe(bus, "y", noop, WithOnce())
	bus.Off("x", id)
	bus.Emit(context.Background(), "y", nil)

	require.NoError(t, bus.Destroy(context.Background()))
	assert.NotPanics(t, tracker.Cleanup)
	assert.Equal(t, 0, tracker.Count())
}
