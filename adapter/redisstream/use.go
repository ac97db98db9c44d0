package redisstream

import (
	"context"
	"fmt"

	"github.com/trickstertwo/xevents"
	"github.com/trickstertwo/xlog"
)

// Use builds a Bus whose emissions are mirrored into a Redis stream, sets it
// as the default Bus, then returns it with its recorder. The recorder is
// closed by Bus.Destroy. Mirrors xlog/xclock "Use" behavior: explicit
// construction and global install.
//
// Zero-valued fields of cfg fall back to Defaults.
func Use(cfg Config, opts ...Option) (*xevents.Bus, *Recorder) {
	rec, err := NewRecorder(ConfigFromMap(cfg.toMap()), xlog.Default())
	if err != nil {
		panic(fmt.Errorf("redisstream.Use: %w", err))
	}

	bb := xevents.NewBusBuilder().WithObserver(rec)
	for _, o := range opts {
		if o != nil {
			o(bb)
		}
	}
	bus, err := bb.Build()
	if err != nil {
		_ = rec.Close(context.Background())
		panic(fmt.Errorf("redisstream.Use: %w", err))
	}

	// Install as process-wide default (replaces any existing default).
	xevents.SetDefault(bus)
	return bus, rec
}
