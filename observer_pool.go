package xevents

import (
	"context"
	"sync"
	"sync/atomic"
)

// ObserverPool manages asynchronous event dispatching to observers.
// Prevents slow observers from blocking the emit path.
// Non-blocking design: drops events if buffer full to avoid backpressure.
type ObserverPool struct {
	taskCh    chan observerTask
	workers   int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	dropped   atomic.Uint64
	processed atomic.Uint64
	panics    atomic.Uint64
}

// observerTask pins the observer set captured at notify time.
type observerTask struct {
	event     BusEvent
	observers []Observer
}

// NewObserverPool creates a pool for async observer notification.
// workers: number of dispatch goroutines (default 4)
// bufferSize: capacity of the task channel (default 1000)
func NewObserverPool(workers, bufferSize int) *ObserverPool {
	if workers < 1 {
		workers = 4
	}
	if bufferSize < 1 {
		bufferSize = 1000
	}

	ctx, cancel := context.WithCancel(context.Background())
	op := &ObserverPool{
		taskCh:  make(chan observerTask, bufferSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		op.wg.Add(1)
		go op.worker()
	}

	return op
}

// Notify queues an event for asynchronous dispatch.
// Non-blocking: returns immediately, drops the event if the buffer is full.
func (op *ObserverPool) Notify(e BusEvent, observers []Observer) {
	if len(observers) == 0 || op.closed.Load() {
		return
	}

	select {
	case op.taskCh <- observerTask{event: e, observers: observers}:
	default:
		op.dropped.Add(1)
	}
}

func (op *ObserverPool) worker() {
	defer op.wg.Done()
	for {
		select {
		case <-op.ctx.Done():
			// Drain what was queued before shutdown.
			for {
				select {
				case t := <-op.taskCh:
					op.dispatch(t)
				default:
					return
				}
			}
		case t := <-op.taskCh:
			op.dispatch(t)
		}
	}
}

func (op *ObserverPool) dispatch(t observerTask) {
	for _, obs := range t.observers {
		if callObserver(obs, t.event) {
			op.panics.Add(1)
		}
	}
	op.processed.Add(1)
}

// callObserver invokes obs and reports whether it panicked.
func callObserver(obs Observer, e BusEvent) (panicked bool) {
	if obs == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			panicked = true
		}
	}()
	obs.OnBusEvent(e)
	return false
}

// Close stops accepting events and waits for queued ones to be delivered
// until ctx is done.
func (op *ObserverPool) Close(ctx context.Context) error {
	if op.closed.Swap(true) {
		return nil
	}

	op.cancel()

	done := make(chan struct{})
	go func() {
		op.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrObserverPoolShutdownTimeout
	}
}

// Stats returns current pool statistics.
func (op *ObserverPool) Stats() PoolStats {
	return PoolStats{
		Dropped:    op.dropped.Load(),
		Processed:  op.processed.Load(),
		Panics:     op.panics.Load(),
		QueueDepth: len(op.taskCh),
		Workers:    op.workers,
		BufferSize: cap(op.taskCh),
	}
}
