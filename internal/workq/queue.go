package workq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/pprof"
	"sync/atomic"
)

const (
	// defaultQueueDepth is the number of pending Work items a Queue accepts
	// before Submit reports ErrQueueFull. Each slot only ever has a single
	// Work item, so this is generous.
	defaultQueueDepth = 8
)

var (
	ErrPending   = errors.New("work already pending")
	ErrQueueFull = errors.New("queue full")
	ErrStopped   = errors.New("queue stopped")
)

// Handler is the callback run by a Queue. ctx is cancelled when the Queue
// stops.
type Handler func(ctx context.Context)

// Work is a unit of work that can be submitted to a Queue repeatedly, but
// never while it's still pending.
type Work struct {
	handler Handler
	pending atomic.Bool
}

// NewWork creates Work that runs h.
func NewWork(h Handler) *Work {
	return &Work{handler: h}
}

// IsPending returns whether the Work has been submitted and its handler has
// not yet returned.
func (w *Work) IsPending() bool {
	return w.pending.Load()
}

// Queue executes Work items one after another on a single goroutine.
type Queue struct {
	name   string
	items  chan *Work
	state  atomic.Int32
	logger *slog.Logger
}

const (
	queueCreated int32 = iota
	queueRunning
	queueStopped
)

// NewQueue creates a Queue with the given name. The name is attached to the
// queue goroutine as a pprof label and to log records.
func NewQueue(name string, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Queue{
		name:   name,
		items:  make(chan *Work, defaultQueueDepth),
		logger: logger.With("queue", name),
	}
}

// Name returns the name of the Queue.
func (q *Queue) Name() string {
	return q.name
}

// Submit schedules w to run later on the Queue. It returns ErrPending if w
// has already been submitted and not yet completed.
func (q *Queue) Submit(w *Work) error {
	if q.state.Load() == queueStopped {
		return ErrStopped
	}

	if !w.pending.CompareAndSwap(false, true) {
		return ErrPending
	}

	select {
	case q.items <- w:
		return nil
	default:
		w.pending.Store(false)
		return ErrQueueFull
	}
}

// Run processes submitted Work until ctx is cancelled. Work still queued at
// that point is dropped and marked as no longer pending.
func (q *Queue) Run(ctx context.Context) error {
	if !q.state.CompareAndSwap(queueCreated, queueRunning) {
		return fmt.Errorf("run queue %s: %w", q.name, ErrStopped)
	}

	defer q.drain()

	pprof.Do(ctx, pprof.Labels("queue", q.name), func(ctx context.Context) {
		q.logger.Debug("queue started")

		for {
			select {
			case <-ctx.Done():
				q.logger.Debug("queue stopped")
				return
			case w := <-q.items:
				q.process(ctx, w)
			}
		}
	})

	return nil
}

func (q *Queue) process(ctx context.Context, w *Work) {
	defer w.pending.Store(false)

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("work handler panicked", "panic", r)
		}
	}()

	w.handler(ctx)
}

func (q *Queue) drain() {
	q.state.Store(queueStopped)

	for {
		select {
		case w := <-q.items:
			w.pending.Store(false)
		default:
			return
		}
	}
}
