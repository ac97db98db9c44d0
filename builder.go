package xevents

import (
	"context"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// BusBuilder constructs Bus instances (Builder pattern).
type BusBuilder struct {
	codecName string
	codecInst Codec

	middlewares   []Middleware
	observers     []Observer
	logger        *xlog.Logger
	clock         xclock.Clock
	maxHistory    int
	leakThreshold int

	schemas  map[string]Schema
	catalogs []Catalog
	optional []string

	poolWorkers int
	poolBuffer  int
	usePool     bool
}

// NewBusBuilder returns a new builder with sensible defaults.
func NewBusBuilder() *BusBuilder {
	return &BusBuilder{
		codecName:  "json",
		maxHistory: DefaultMaxHistory,
		schemas:    make(map[string]Schema),
	}
}

func (bb *BusBuilder) WithCodec(name string) *BusBuilder {
	bb.codecName = name
	return bb
}

// WithCodecInstance accepts a ready Codec instance.
func (bb *BusBuilder) WithCodecInstance(c Codec) *BusBuilder {
	bb.codecInst = c
	return bb
}

func (bb *BusBuilder) WithMiddleware(mw ...Middleware) *BusBuilder {
	if len(mw) == 0 {
		return bb
	}
	bb.middlewares = append(bb.middlewares, mw...)
	return bb
}

func (bb *BusBuilder) WithObserver(obs ...Observer) *BusBuilder {
	for _, o := range obs {
		if o != nil {
			bb.observers = append(bb.observers, o)
		}
	}
	return bb
}

// WithObserverPool dispatches observer notifications on a worker pool
// instead of the emitting goroutine.
func (bb *BusBuilder) WithObserverPool(workers, bufferSize int) *BusBuilder {
	bb.usePool = true
	bb.poolWorkers = workers
	bb.poolBuffer = bufferSize
	return bb
}

func (bb *BusBuilder) WithLogger(l *xlog.Logger) *BusBuilder {
	bb.logger = l
	return bb
}

func (bb *BusBuilder) WithClock(c xclock.Clock) *BusBuilder {
	bb.clock = c
	return bb
}

// WithMaxHistory bounds the emission history. Zero disables it.
func (bb *BusBuilder) WithMaxHistory(n int) *BusBuilder {
	if n >= 0 {
		bb.maxHistory = n
	}
	return bb
}

// WithLeakThreshold reports EventLeakSuspected whenever a subscribe pushes an
// event's subscriber count above n. Zero disables the check.
func (bb *BusBuilder) WithLeakThreshold(n int) *BusBuilder {
	if n >= 0 {
		bb.leakThreshold = n
	}
	return bb
}

func (bb *BusBuilder) WithSchema(name string, s Schema) *BusBuilder {
	if s != nil {
		bb.schemas[name] = s
	}
	return bb
}

// WithCatalog pre-registers a static event catalog. Later catalogs and
// WithSchema entries override earlier ones.
func (bb *BusBuilder) WithCatalog(c Catalog) *BusBuilder {
	if c != nil {
		bb.catalogs = append(bb.catalogs, c)
	}
	return bb
}

// WithOptionalEvents names events that may have no subscribers without
// being reported.
func (bb *BusBuilder) WithOptionalEvents(names ...string) *BusBuilder {
	bb.optional = append(bb.optional, names...)
	return bb
}

func (bb *BusBuilder) Build() (*Bus, error) {
	var cd Codec
	if bb.codecInst != nil {
		cd = bb.codecInst
	} else {
		var err error
		cd, err = NewCodec(bb.codecName)
		if err != nil {
			return nil, err
		}
	}

	var clk xclock.Clock
	if bb.clock != nil {
		clk = bb.clock
	} else {
		clk = xclock.Default()
	}
	var lg *xlog.Logger
	if bb.logger != nil {
		lg = bb.logger
	} else {
		// Default to xlog's process logger; Adapter pattern to platform logging.
		lg = xlog.Default()
	}

	b := &Bus{
		clock:         clk,
		logger:        lg,
		codec:         cd,
		middlewares:   bb.middlewares,
		events:        make(map[string][]*subscription),
		schemas:       make(map[string]Schema),
		optional:      make(map[string]struct{}),
		aliases:       make(map[string]string),
		leakThreshold: bb.leakThreshold,
		history:       newHistory(bb.maxHistory),
	}
	if bb.usePool {
		b.observerPool = NewObserverPool(bb.poolWorkers, bb.poolBuffer)
	}

	for _, c := range bb.catalogs {
		b.ApplyCatalog(c)
	}
	for name, s := range bb.schemas {
		b.RegisterSchema(name, s)
	}
	b.MarkOptional(bb.optional...)

	// Attach logging observer first for dependable telemetry unless already supplied externally.
	hasLoggingObserver := false
	for _, o := range bb.observers {
		if _, ok := o.(LoggingObserver); ok {
			hasLoggingObserver = true
			break
		}
	}
	if !hasLoggingObserver && lg != nil {
		b.AddObserver(LoggingObserver{Logger: lg})
	}

	for _, o := range bb.observers {
		b.AddObserver(o)
	}

	return b, nil
}

// New constructs a Bus via Builder and returns a destroy func for convenience.
func New(init func(b *BusBuilder)) (*Bus, func() error, error) {
	b := NewBusBuilder()
	if init != nil {
		init(b)
	}
	bus, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	destroy := func() error { return bus.Destroy(context.Background()) }
	return bus, destroy, nil
}
