package slots

import (
	"context"
	"sync"
)

// Signal is a one-shot cancellation flag for the current run of a Slot. Once
// raised it stays raised until the Slot starts its next job.
type Signal struct {
	raised bool
	value  int
	done   chan struct{}

	mu sync.Mutex
}

func newSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Raise marks the Signal as raised with value. Raising an already raised
// Signal only replaces the value.
func (s *Signal) Raise(value int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value

	if !s.raised {
		s.raised = true
		close(s.done)
	}
}

// Check returns the value the Signal was raised with and whether it has
// been raised.
func (s *Signal) Check() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value, s.raised
}

// Done returns a channel that's closed when the Signal is raised.
func (s *Signal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.done
}

// Context returns a copy of parent that's cancelled with a *KilledError
// cause when the Signal is raised. The returned CancelFunc must be called
// once the job has returned.
func (s *Signal) Context(
	parent context.Context,
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	done := s.Done()

	go func() {
		select {
		case <-done:
			value, _ := s.Check()
			cancel(&KilledError{Value: value})
		case <-ctx.Done():
		}
	}()

	return ctx, func() { cancel(context.Canceled) }
}

// reset lowers the Signal for a new run. It must only be called while no job
// is running on the Slot.
func (s *Signal) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raised {
		s.raised = false
		s.value = 0
		s.done = make(chan struct{})
	}
}
