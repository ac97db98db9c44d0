package redisstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trickstertwo/xevents"
	"github.com/trickstertwo/xlog"
	"go.uber.org/multierr"
)

// Recorder is an xevents.Observer that mirrors every successful emission
// into a capped Redis stream. Writes happen on a background goroutine so the
// emitting code never waits on Redis; entries that do not fit the buffer are
// dropped and counted.
type Recorder struct {
	cfg    Config
	client *redis.Client
	codec  xevents.Codec
	logger *xlog.Logger

	mu     sync.RWMutex // guards queue against send-after-close
	closed bool
	queue  chan map[string]any
	done   chan struct{}

	metrics recorderMetrics
}

type recorderMetrics struct {
	recorded    atomic.Uint64
	dropped     atomic.Uint64
	writeErrors atomic.Uint64
}

// RecorderStats is a snapshot of recorder counters.
type RecorderStats struct {
	Recorded    uint64
	Dropped     uint64
	WriteErrors uint64
	QueueDepth  int
}

var (
	_ xevents.Observer = (*Recorder)(nil)
	_ xevents.Closer   = (*Recorder)(nil)
)

// NewRecorder connects to Redis and starts the writer. A nil logger
// disables write-error logging.
func NewRecorder(cfg Config, logger *xlog.Logger) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := xevents.NewCodec(cfg.Codec)
	if err != nil {
		return nil, fmt.Errorf("redisstream: %w", err)
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		PoolSize:     4,
		MinIdleConns: 1,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:    tls.VersionTLS12,
			ServerName:    cfg.TLSServerName,
			Renegotiation: tls.RenegotiateNever,
		}
	}

	client := redis.NewClient(opts)
	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, err
	}

	r := &Recorder{
		cfg:    cfg,
		client: client,
		codec:  codec,
		logger: logger,
		queue:  make(chan map[string]any, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	go r.writer()
	return r, nil
}

// OnBusEvent queues emissions; every other bus event is ignored. The payload
// is encoded on the calling goroutine, so callers may reuse it once Emit
// returns.
func (r *Recorder) OnBusEvent(e xevents.BusEvent) {
	if e.Type != xevents.EventEmitted {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	vals, err := encodeEntry(r.codec, e)
	if err != nil {
		r.metrics.writeErrors.Add(1)
		r.logError(err, e.EventName)
		return
	}
	select {
	case r.queue <- vals:
	default:
		r.metrics.dropped.Add(1)
	}
}

func (r *Recorder) writer() {
	defer close(r.done)

	batch := make([]map[string]any, 0, r.cfg.BatchSize)
	for vals := range r.queue {
		batch = append(batch[:0], vals)
	fill:
		for len(batch) < r.cfg.BatchSize {
			select {
			case next, ok := <-r.queue:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		r.write(batch)
	}
}

// write sends a batch with one pipelined round trip.
func (r *Recorder) write(batch []map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	pipe := r.client.Pipeline()
	for _, vals := range batch {
		args := &redis.XAddArgs{
			Stream: r.cfg.Stream,
			ID:     "*",
			Values: vals,
		}
		if r.cfg.MaxLenApprox > 0 {
			args.MaxLen = r.cfg.MaxLenApprox
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
	}
	queued := len(batch)

	if _, err := pipe.Exec(ctx); err != nil {
		r.metrics.writeErrors.Add(uint64(queued))
		r.logError(err, "")
		return
	}
	r.metrics.recorded.Add(uint64(queued))
}

func (r *Recorder) logError(err error, eventName string) {
	if r.logger == nil {
		return
	}
	r.logger.Warn().
		Err(err).
		Str("stream", r.cfg.Stream).
		Str("event_name", eventName).
		Msg("redisstream: history write failed")
}

// History returns up to count of the most recent entries, oldest first.
// A count <= 0 returns the whole stream.
func (r *Recorder) History(ctx context.Context, count int64) ([]Entry, error) {
	var (
		msgs []redis.XMessage
		err  error
	)
	if count > 0 {
		msgs, err = r.client.XRevRangeN(ctx, r.cfg.Stream, "+", "-", count).Result()
		slices.Reverse(msgs)
	} else {
		msgs, err = r.client.XRange(ctx, r.cfg.Stream, "-", "+").Result()
	}
	if err != nil {
		return nil, fmt.Errorf("redisstream: read %s: %w", r.cfg.Stream, err)
	}

	out := make([]Entry, len(msgs))
	for i, m := range msgs {
		out[i] = decodeEntry(r.codec, m)
	}
	return out, nil
}

// Len returns the number of entries currently in the stream.
func (r *Recorder) Len(ctx context.Context) (int64, error) {
	n, err := r.client.XLen(ctx, r.cfg.Stream).Result()
	if err != nil {
		return 0, fmt.Errorf("redisstream: xlen %s: %w", r.cfg.Stream, err)
	}
	return n, nil
}

// Clear deletes the history stream.
func (r *Recorder) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.cfg.Stream).Err(); err != nil {
		return fmt.Errorf("redisstream: clear %s: %w", r.cfg.Stream, err)
	}
	return nil
}

func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Recorded:    r.metrics.recorded.Load(),
		Dropped:     r.metrics.dropped.Load(),
		WriteErrors: r.metrics.writeErrors.Load(),
		QueueDepth:  len(r.queue),
	}
}

// Close stops accepting entries, drains queued ones and closes the client.
// The bus calls it from Destroy.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	var err error
	select {
	case <-r.done:
	case <-ctx.Done():
		err = multierr.Append(err, fmt.Errorf("redisstream: drain: %w", ctx.Err()))
	}
	return multierr.Append(err, r.client.Close())
}

func ping(c *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := c.Ping(ctx).Result()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("redis ping timeout: %w", err)
		}
		return err
	}

	if strings.ToUpper(res) != "PONG" {
		return fmt.Errorf("unexpected redis ping result: %s", res)
	}
	return nil
}

// String identifies the recorder in logs.
func (r *Recorder) String() string {
	return "redisstream.Recorder(" + r.cfg.Stream + "@" + r.cfg.Addr + "/db" + strconv.Itoa(r.cfg.DB) + ")"
}
