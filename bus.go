package xevents

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
	"go.uber.org/multierr"
)

// Bus is an in-process publish/subscribe mediator. Emit dispatches
// synchronously, in priority order, to every handler registered for an event
// name. The zero value is not usable; construct one with NewBusBuilder or New.
//
// Handlers run without any bus lock held and may subscribe, unsubscribe or
// emit. Emitting the same event from its own handler recurses; bounding that
// recursion is the caller's responsibility.
type Bus struct {
	clock       xclock.Clock
	logger      *xlog.Logger
	codec       Codec
	middlewares []Middleware

	mu            sync.RWMutex
	events        map[string][]*subscription
	schemas       map[string]Schema
	optional      map[string]struct{}
	aliases       map[string]string
	leakThreshold int

	history *history

	observerPool *ObserverPool
	observersMu  sync.RWMutex
	observers    []Observer

	metrics     busMetrics
	destroyed   atomic.Bool
	destroyOnce sync.Once
}

// busMetrics uses lock-free atomics for telemetry.
type busMetrics struct {
	emitted       atomic.Uint64
	delivered     atomic.Uint64
	rejected      atomic.Uint64
	failures      atomic.Uint64
	panics        atomic.Uint64
	noSubscribers atomic.Uint64
	processingNs  atomic.Int64
}

// Codec returns the configured codec (Strategy).
func (b *Bus) Codec() Codec { return b.codec }

// Subscribe registers a persistent, priority-0 handler unless opts say
// otherwise, and returns the subscription id. WithOnce is honoured here too;
// the id can still be passed to Off before the first delivery. A nil handler, or a destroyed
// bus, registers nothing and returns "".
func (b *Bus) Subscribe(name string, handler Handler, opts ...SubscribeOption) string {
	sub := b.add(name, handler, opts)
	if sub == nil {
		return ""
	}
	return sub.id
}

// On registers handler and returns a closure that removes exactly this
// subscription.
func (b *Bus) On(name string, handler Handler, opts ...SubscribeOption) Unsubscribe {
	sub := b.add(name, handler, opts)
	if sub == nil {
		return func() {}
	}
	var once sync.Once
	return func() {
		once.Do(func() { b.Off(name, sub.id) })
	}
}

// Once is On with the once flag forced.
func (b *Bus) Once(name string, handler Handler, opts ...SubscribeOption) Unsubscribe {
	return b.On(name, handler, append(opts, WithOnce())...)
}

// Off removes the subscription id from name. Unknown names and ids are
// ignored: removal races are expected.
func (b *Bus) Off(name, id string) {
	b.mu.Lock()
	removed := b.removeLocked(name, id)
	b.mu.Unlock()

	if removed != nil {
		b.notify(BusEvent{
			Type:           EventUnsubscribed,
			EventName:      name,
			SubscriptionID: removed.id,
			Priority:       removed.priority,
			Once:           removed.once,
		})
	}
}

// Unsubscribe is an alias of Off.
func (b *Bus) Unsubscribe(name, id string) { b.Off(name, id) }

func (b *Bus) add(name string, handler Handler, opts []SubscribeOption) *subscription {
	if handler == nil || b.destroyed.Load() {
		return nil
	}

	var cfg subscribeConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}

	// Panic recovery always wraps the user handler first.
	wrapped := Chain(RecoveryMiddleware()(handler), b.middlewares...)
	sub := &subscription{
		id:       uuid.NewString(),
		name:     name,
		handler:  wrapped,
		once:     cfg.once,
		priority: cfg.priority,
	}

	b.mu.Lock()
	list := insertByPriority(b.events[name], sub)
	b.events[name] = list
	count, threshold := len(list), b.leakThreshold
	b.mu.Unlock()

	b.notify(BusEvent{
		Type:           EventSubscribed,
		EventName:      name,
		SubscriptionID: sub.id,
		Priority:       sub.priority,
		Once:           sub.once,
		Subscribers:    count,
	})
	if threshold > 0 && count > threshold {
		b.notify(BusEvent{Type: EventLeakSuspected, EventName: name, Subscribers: count})
	}
	return sub
}

// removeLocked deletes id from name's list and drops the name when the list
// empties. Callers hold b.mu.
func (b *Bus) removeLocked(name, id string) *subscription {
	list, ok := b.events[name]
	if !ok {
		return nil
	}
	next, removed := removeByID(list, id)
	if removed == nil {
		return nil
	}
	if len(next) == 0 {
		delete(b.events, name)
	} else {
		b.events[name] = next
	}
	return removed
}

// Emit validates payload against the schema registered for name and then
// invokes every handler for name, highest priority first. Emit never fails
// the caller: rejected payloads and failing handlers are reported to
// observers. Emissions on a destroyed bus are dropped.
func (b *Bus) Emit(ctx context.Context, name string, payload any) {
	if b.destroyed.Load() {
		return
	}

	b.mu.RLock()
	schema, ok := b.schemas[name]
	canonical, deprecated := b.aliases[name]
	if !ok && deprecated {
		schema = b.schemas[canonical]
	}
	_, optional := b.optional[name]
	b.mu.RUnlock()

	if schema != nil {
		if err := b.validate(schema, name, payload); err != nil {
			b.metrics.rejected.Add(1)
			b.notify(BusEvent{Type: EventValidationRejected, EventName: name, Payload: payload, Err: err})
			return
		}
	}
	if deprecated {
		b.notify(BusEvent{Type: EventDeprecatedName, EventName: name, Canonical: canonical})
	}

	b.mu.RLock()
	subs := b.events[name]
	b.mu.RUnlock()

	b.metrics.emitted.Add(1)
	if len(subs) == 0 {
		b.metrics.noSubscribers.Add(1)
		if !optional {
			b.notify(BusEvent{Type: EventNoSubscribers, EventName: name})
		}
	}

	b.history.append(HistoryEntry{
		EventName:       name,
		Payload:         payload,
		Timestamp:       b.clock.Now(),
		SubscriberCount: len(subs),
	})
	b.notify(BusEvent{Type: EventEmitted, EventName: name, Payload: payload, Subscribers: len(subs)})

	if len(subs) == 0 {
		return
	}

	hctx := b.dispatchContext(ctx, name)
	for _, sub := range subs {
		if !sub.claim() {
			continue
		}
		b.invoke(hctx, sub, payload)
		if sub.once {
			b.Off(name, sub.id)
		}
	}
}

// validate runs schema, treating a panicking schema as a rejection.
func (b *Bus) validate(schema Schema, name string, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ValidationError{EventName: name, Reason: "schema panicked", Err: &PanicError{EventName: name, Value: r}}
		}
	}()

	verr := schema.Validate(payload)
	if verr == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(verr, &ve) {
		out := *ve
		out.EventName = name
		return &out
	}
	return &ValidationError{EventName: name, Reason: verr.Error(), Err: verr}
}

// invoke runs one handler behind its own error boundary.
func (b *Bus) invoke(ctx context.Context, sub *subscription, payload any) {
	start := b.clock.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{EventName: sub.name, SubscriptionID: sub.id, Value: r}
			}
		}()
		return sub.handler(withSubscriptionID(ctx, sub.id), payload)
	}()
	duration := b.clock.Since(start)
	b.recordProcessingTime(duration.Nanoseconds())

	if err == nil {
		b.metrics.delivered.Add(1)
		return
	}

	b.metrics.failures.Add(1)
	var perr *PanicError
	if errors.As(err, &perr) {
		b.metrics.panics.Add(1)
	} else {
		err = &HandlerError{EventName: sub.name, SubscriptionID: sub.id, Err: err}
	}
	b.notify(BusEvent{
		Type:           EventHandlerFailed,
		EventName:      sub.name,
		SubscriptionID: sub.id,
		Priority:       sub.priority,
		Once:           sub.once,
		Payload:        payload,
		Duration:       duration,
		Err:            err,
	})
}

// RegisterSchema installs or replaces the schema for name. A nil schema
// removes validation for name.
func (b *Bus) RegisterSchema(name string, schema Schema) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if schema == nil {
		delete(b.schemas, name)
		return
	}
	b.schemas[name] = schema
}

// MarkOptional adds names to the set of events that may legitimately have no
// subscribers; emitting them without listeners is not reported.
func (b *Bus) MarkOptional(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, n := range names {
		b.optional[n] = struct{}{}
	}
}

// ApplyCatalog installs a catalog's schemas, quiet events and aliases. A
// deprecated alias without its own schema is validated against whatever
// schema the canonical name holds at emit time.
func (b *Bus) ApplyCatalog(c Catalog) {
	if c == nil {
		return
	}
	schemas := c.Schemas()
	aliases := c.Aliases()
	optional := c.OptionalEvents()

	b.mu.Lock()
	defer b.mu.Unlock()

	for name, s := range schemas {
		if s != nil {
			b.schemas[name] = s
		}
	}
	for legacy, canonical := range aliases {
		b.aliases[legacy] = canonical
	}
	for _, n := range optional {
		b.optional[n] = struct{}{}
	}
}

// GetMetrics returns current bus metrics.
func (b *Bus) GetMetrics() Metrics {
	var dropped uint64
	if b.observerPool != nil {
		dropped = b.observerPool.Stats().Dropped
	}
	return Metrics{
		Emitted:          b.metrics.emitted.Load(),
		Delivered:        b.metrics.delivered.Load(),
		Rejected:         b.metrics.rejected.Load(),
		HandlerFailures:  b.metrics.failures.Load(),
		HandlerPanics:    b.metrics.panics.Load(),
		NoSubscribers:    b.metrics.noSubscribers.Load(),
		EventsDropped:    dropped,
		AvgHandlerTimeMs: float64(b.metrics.processingNs.Load()) / 1e6,
	}
}

// Health reports "unhealthy" once destroyed and "degraded" when more than 5%
// of handler invocations fail.
func (b *Bus) Health(_ context.Context) HealthStatus {
	if b.destroyed.Load() {
		return HealthStatus{
			Status:    "unhealthy",
			Timestamp: b.clock.Now(),
			Message:   "bus is destroyed",
		}
	}

	metrics := b.GetMetrics()
	status := "healthy"
	invocations := metrics.Delivered + metrics.HandlerFailures
	if metrics.HandlerFailures > 0 && invocations > 0 {
		if float64(metrics.HandlerFailures)/float64(invocations) > 0.05 {
			status = "degraded"
		}
	}

	return HealthStatus{
		Status:    status,
		Metrics:   metrics,
		Timestamp: b.clock.Now(),
	}
}

// Destroy clears the registry, schemas and history, drains the observer pool
// and closes observers implementing Closer. The bus must not be used for new
// work afterwards: Emit is dropped, Subscribe returns "" and WaitFor fails
// with ErrBusDestroyed; Off remains a safe no-op.
func (b *Bus) Destroy(ctx context.Context) error {
	var err error

	b.destroyOnce.Do(func() {
		b.destroyed.Store(true)

		b.mu.Lock()
		b.events = make(map[string][]*subscription)
		b.schemas = make(map[string]Schema)
		b.optional = make(map[string]struct{})
		b.aliases = make(map[string]string)
		b.mu.Unlock()

		b.history.clear()

		if b.observerPool != nil {
			pctx, cancel := ctx, context.CancelFunc(func() {})
			if _, ok := ctx.Deadline(); !ok {
				pctx, cancel = context.WithTimeout(ctx, 5*time.Second)
			}
			if perr := b.observerPool.Close(pctx); perr != nil {
				if b.logger != nil {
					b.logger.Warn().Err(perr).Msg("xevents: observer pool shutdown timeout")
				}
				err = multierr.Append(err, perr)
			}
			cancel()
		}

		b.observersMu.Lock()
		observers := b.observers
		b.observers = nil
		b.observersMu.Unlock()

		for _, o := range observers {
			if c, ok := o.(Closer); ok {
				err = multierr.Append(err, c.Close(ctx))
			}
		}
	})

	return err
}

// AddObserver registers an observer (thread-safe).
func (b *Bus) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	b.observers = append(b.observers, obs)
	b.observersMu.Unlock()
}

// RemoveObserver removes an observer.
func (b *Bus) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	defer b.observersMu.Unlock()

	for i, o := range b.observers {
		if sameObserver(o, obs) {
			b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
			break
		}
	}
}

// sameObserver compares observers without panicking on uncomparable
// implementations such as ObserverFunc.
func sameObserver(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// notify delivers e to observers, through the pool when one is configured.
// Observer failures never reach the emitting code.
func (b *Bus) notify(e BusEvent) {
	if b.destroyed.Load() {
		return
	}

	b.observersMu.RLock()
	if len(b.observers) == 0 {
		b.observersMu.RUnlock()
		return
	}
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.observersMu.RUnlock()

	e.Timestamp = b.clock.Now()
	if b.observerPool != nil {
		b.observerPool.Notify(e, observers)
		return
	}
	for _, o := range observers {
		callObserver(o, e)
	}
}

// recordProcessingTime records handler time as an exponential moving average.
func (b *Bus) recordProcessingTime(ns int64) {
	const alpha = 0.2 // 20% weight to new sample
	current := b.metrics.processingNs.Load()
	if current == 0 {
		b.metrics.processingNs.Store(ns)
		return
	}
	newAvg := int64(float64(ns)*alpha + float64(current)*(1-alpha))
	b.metrics.processingNs.Store(newAvg)
}
