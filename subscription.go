package xevents

import (
	"slices"
	"sort"
	"sync/atomic"
)

// SubscribeOption configures a single subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	once     bool
	priority int
}

// WithPriority sets dispatch priority. Higher values run first; equal
// priorities run in registration order. The default is 0.
func WithPriority(p int) SubscribeOption {
	return func(c *subscribeConfig) { c.priority = p }
}

// WithOnce removes the subscription right after its first invocation.
func WithOnce() SubscribeOption {
	return func(c *subscribeConfig) { c.once = true }
}

type subscription struct {
	id       string
	name     string
	handler  Handler
	once     bool
	priority int

	fired atomic.Bool
}

// claim reports whether the subscription may run. A once subscription can be
// claimed a single time, even by concurrent emissions.
func (s *subscription) claim() bool {
	if !s.once {
		return true
	}
	return s.fired.CompareAndSwap(false, true)
}

func (s *subscription) info() SubscriptionInfo {
	return SubscriptionInfo{ID: s.id, Once: s.once, Priority: s.priority}
}

// Subscriber lists are copy-on-write: a stored slice is never mutated, so a
// slice loaded under the read lock is a stable snapshot for dispatch.

func insertByPriority(list []*subscription, sub *subscription) []*subscription {
	idx := sort.Search(len(list), func(i int) bool { return list[i].priority < sub.priority })
	return slices.Insert(slices.Clone(list), idx, sub)
}

func removeByID(list []*subscription, id string) ([]*subscription, *subscription) {
	i := slices.IndexFunc(list, func(s *subscription) bool { return s.id == id })
	if i < 0 {
		return list, nil
	}
	removed := list[i]
	return slices.Delete(slices.Clone(list), i, i+1), removed
}
