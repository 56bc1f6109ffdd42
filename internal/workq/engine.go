package workq

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"
)

// UnknownQueueError is returned when Work is submitted for an id the Engine
// has no Queue for.
type UnknownQueueError struct {
	id int
}

func (e UnknownQueueError) Error() string {
	return fmt.Sprintf("no queue for id %d", e.id)
}

// Engine runs a dedicated Queue per id.
type Engine struct {
	queues map[int]*Queue
	ids    []int
}

// NewEngine creates an Engine with one Queue for each of ids. Queues are
// named "bg_<id>".
func NewEngine(logger *slog.Logger, ids ...int) *Engine {
	e := &Engine{
		queues: make(map[int]*Queue, len(ids)),
	}

	for _, id := range ids {
		if _, exists := e.queues[id]; exists {
			continue
		}

		e.queues[id] = NewQueue(fmt.Sprintf("bg_%d", id), logger)
		e.ids = append(e.ids, id)
	}

	return e
}

// Submit schedules w on the Queue for id.
func (e *Engine) Submit(id int, w *Work) error {
	q, ok := e.queues[id]
	if !ok {
		return UnknownQueueError{id}
	}

	return q.Submit(w)
}

// IDs returns the ids the Engine has Queues for, in creation order.
func (e *Engine) IDs() []int {
	return slices.Clone(e.ids)
}

// Run runs every Queue until ctx is cancelled. Handlers of running Work see
// the cancellation through their own ctx.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, id := range e.ids {
		q := e.queues[id]

		g.Go(func() error {
			return q.Run(gctx)
		})
	}

	return g.Wait()
}
