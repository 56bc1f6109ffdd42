package slots

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nixpig/benchworker/internal/slots/output"
	"github.com/nixpig/benchworker/internal/workq"
)

// SlotCount is the number of Slots in a Pool.
const SlotCount = 2

// IDs returns the ids of the Slots in a Pool, in admission order.
func IDs() []int {
	return []int{1, 2}
}

// Executor runs a Slot's Work on the execution context dedicated to that
// Slot's id. workq.Engine is an Executor.
type Executor interface {
	Submit(id int, w *workq.Work) error
}

// Config configures a Pool. Zero values use the defaults.
type Config struct {
	// BufferCapacity is the size in bytes of each background job's result
	// buffer.
	BufferCapacity int

	// MemoryLimit bounds the bytes held by all result buffers and argument
	// copies. Starting a job that would exceed it fails with ErrOutOfMemory.
	MemoryLimit int64

	Logger *slog.Logger
}

// StartRequest describes a job to start.
type StartRequest struct {
	// Kind is the kind of job, which must match the Pool's Body.
	Kind string

	// Args is the job's argument list, starting with Kind itself.
	Args []string

	// Background captures the job's output in a result buffer rather than
	// writing it to Console.
	Background bool

	// Console receives notices about the job and, for foreground jobs, its
	// output. Nil discards them.
	Console io.Writer
}

// Pool admits jobs to a fixed set of SlotCount Slots.
type Pool struct {
	slots  [SlotCount]*Slot
	exec   Executor
	body   Body
	budget *budget
	logger *slog.Logger
}

// NewPool creates a Pool whose Slots run body on exec.
func NewPool(exec Executor, body Body, cfg Config) *Pool {
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = output.DefaultCapacity
	}

	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = DefaultMemoryLimit
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	p := &Pool{
		exec:   exec,
		body:   body,
		budget: newBudget(cfg.MemoryLimit),
		logger: cfg.Logger,
	}

	for i, id := range IDs() {
		p.slots[i] = newSlot(id, body, p.budget, cfg.BufferCapacity, cfg.Logger)
	}

	return p
}

// Start starts a job on the first idle Slot and returns its id. It returns
// ErrUnsupportedCommand if the kind isn't the Pool's, ErrAllSlotsBusy if
// no Slot is idle and ErrOutOfMemory if the job's resources couldn't be
// allocated.
func (p *Pool) Start(req StartRequest) (int, error) {
	if req.Kind != p.body.Kind() {
		return 0, fmt.Errorf(
			"%q, only %s is supported: %w",
			req.Kind,
			p.body.Kind(),
			ErrUnsupportedCommand,
		)
	}

	if len(req.Args) < 2 || req.Args[0] != req.Kind {
		return 0, fmt.Errorf(
			"%s needs at least one argument: %w",
			req.Kind,
			ErrInvalidArgs,
		)
	}

	for _, s := range p.slots {
		if s.IsRunning() {
			continue
		}

		err := s.start(p.exec, req)
		if errors.Is(err, errSlotBusy) {
			continue
		}

		if err != nil {
			p.logger.Warn("start job", "slot", s.id, "err", err)
			return 0, err
		}

		return s.id, nil
	}

	return 0, ErrAllSlotsBusy
}

// Slot returns the Slot with the given id.
func (p *Pool) Slot(id int) (*Slot, error) {
	if id < 1 || id > SlotCount {
		return nil, NewInvalidSlotIDError(id)
	}

	return p.slots[id-1], nil
}

// Status returns the Status of every Slot, in id order.
func (p *Pool) Status() [SlotCount]Status {
	var st [SlotCount]Status

	for i, s := range p.slots {
		st[i] = s.Status()
	}

	return st
}

// Result retrieves the results of the Slot with the given id. See
// Slot.Results.
func (p *Pool) Result(id int) (Results, error) {
	s, err := p.Slot(id)
	if err != nil {
		return Results{}, err
	}

	return s.Results(), nil
}

// Kill kills the job on the Slot with the given id. It returns ErrNotRunning
// if the Slot is idle.
func (p *Pool) Kill(id int) error {
	s, err := p.Slot(id)
	if err != nil {
		return err
	}

	return s.Kill()
}

// KillAll raises the Signal of every Slot, running or not. An idle Slot
// lowers it again when its next job starts.
func (p *Pool) KillAll() {
	for _, s := range p.slots {
		s.raise()
	}
}

// Shutdown makes a 'best effort' attempt to stop running jobs. It doesn't
// wait for them to return.
func (p *Pool) Shutdown() {
	p.logger.Debug("killing all slots")
	p.KillAll()
}
