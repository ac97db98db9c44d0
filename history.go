package xevents

import "sync"

// DefaultMaxHistory is the emission history bound used when none is configured.
const DefaultMaxHistory = 100

// history is a bounded FIFO ring of emissions. Appending to a full ring
// evicts the oldest entry.
type history struct {
	mu    sync.Mutex
	buf   []HistoryEntry
	start int
	size  int
}

func newHistory(max int) *history {
	if max < 0 {
		max = 0
	}
	return &history{buf: make([]HistoryEntry, max)}
}

func (h *history) append(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.buf) == 0 {
		return
	}
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = e
		h.size++
		return
	}
	h.buf[h.start] = e
	h.start = (h.start + 1) % len(h.buf)
}

// entries returns the retained emissions oldest-first.
func (h *history) entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HistoryEntry, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

func (h *history) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

func (h *history) capacity() int { return len(h.buf) }

func (h *history) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.buf)
	h.start = 0
	h.size = 0
}
