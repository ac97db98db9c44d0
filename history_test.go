package xevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory_Ring(t *testing.T) {
	h := newHistory(3)
	assert.Empty(t, h.entries())

	for i := 1; i <= 5; i++ {
		h.append(HistoryEntry{EventName: "e", Payload: i})
	}
	assert.Equal(t, 3, h.count())
	assert.Equal(t, 3, h.capacity())

	var payloads []any
	for _, e := range h.entries() {
		payloads = append(payloads, e.Payload)
	}
	assert.Equal(t, []any{3, 4, 5}, payloads)

	h.clear()
	assert.Zero(t, h.count())
	h.append(HistoryEntry{Payload: 6})
	assert.Equal(t, 6, h.entries()[0].Payload)
}

func TestHistory_ZeroCapacity(t *testing.T) {
	h := newHistory(-1)
	h.append(HistoryEntry{})
	assert.Zero(t, h.count())
	assert.Empty(t, h.entries())
}

func TestHistory_EntriesIsACopy(t *testing.T) {
	h := newHistory(2)
	h.append(HistoryEntry{EventName: "a"})
	out := h.entries()
	out[0].EventName = "mutated"
	assert.Equal(t, "a", h.entries()[0].EventName)
}
