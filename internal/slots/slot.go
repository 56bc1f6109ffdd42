package slots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/nixpig/benchworker/internal/logging"
	"github.com/nixpig/benchworker/internal/slots/output"
	"github.com/nixpig/benchworker/internal/workq"
)

// NoExitCode is reported as the exit code of a Slot that hasn't finished a
// job since it was last started.
const NoExitCode = -1

const noticeSeparator = "--------------------------------------------------"

// Status is a summary of a Slot.
type Status struct {
	ID         int
	State      SlotState
	HasResults bool
	Background bool

	// Command is the job's command line, present while the Slot holds the
	// job's arguments: from start until the results are retrieved.
	Command string

	RunID    string
	ExitCode int
}

// Results is the output retrieved from a Slot.
type Results struct {
	ID        int
	Available bool
	Text      string

	// Discarded is true when the job had finished and retrieving the results
	// released them. A read while the job is running leaves them in place.
	Discarded bool
}

// Slot runs at most one job at a time. It owns the job's argument copy,
// result buffer and cancellation Signal.
type Slot struct {
	id       int
	work     *workq.Work
	signal   *Signal
	body     Body
	budget   *budget
	capacity int
	logger   *slog.Logger

	argv     *Vector
	results  *output.Buffer
	mode     Mode
	console  io.Writer
	runID    string
	exitCode int

	mu sync.Mutex
}

func newSlot(
	id int,
	body Body,
	b *budget,
	capacity int,
	logger *slog.Logger,
) *Slot {
	s := &Slot{
		id:       id,
		signal:   newSignal(),
		body:     body,
		budget:   b,
		capacity: capacity,
		logger:   logger.With("slot", id),
		console:  io.Discard,
		exitCode: NoExitCode,
	}

	s.work = workq.NewWork(s.run)

	return s
}

// ID returns the id of the Slot.
func (s *Slot) ID() int {
	return s.id
}

// IsRunning returns whether the Slot's job has been scheduled and not yet
// returned.
func (s *Slot) IsRunning() bool {
	return s.work.IsPending()
}

func (s *Slot) start(exec Executor, req StartRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.work.IsPending() {
		return errSlotBusy
	}

	// Everything acquired for this attempt is held in locals until the job is
	// handed off, so a failure at any step leaves the Slot as it was.
	var fresh *output.Buffer
	if req.Background && s.results == nil {
		b, err := s.allocResults()
		if err != nil {
			return fmt.Errorf("no memory to store a response: %w", err)
		}

		fresh = b
	}

	argv, err := duplicateArgs(s.budget, req.Args)
	if err != nil {
		s.freeResults(fresh)
		return fmt.Errorf("no memory for duplicated command arguments: %w", err)
	}

	// The handler can't observe the Slot until s.mu is released below.
	if err := exec.Submit(s.id, s.work); err != nil {
		argv.Release()
		s.freeResults(fresh)

		if errors.Is(err, workq.ErrPending) {
			return errSlotBusy
		}

		return fmt.Errorf("submit job to slot #%d: %w", s.id, err)
	}

	switch {
	case !req.Background:
		s.freeResults(s.results)
		s.results = nil
	case fresh != nil:
		s.results = fresh
	default:
		s.results.Reset()
	}

	s.argv.Release()
	s.argv = argv

	s.mode = ModeForeground
	if req.Background {
		s.mode = ModeBackground
	}

	s.console = req.Console
	if s.console == nil {
		s.console = io.Discard
	}

	s.runID = uuid.NewString()
	s.exitCode = NoExitCode
	s.signal.reset()

	return nil
}

// run is the Slot's work handler, called on the Slot's queue.
func (s *Slot) run(ctx context.Context) {
	s.mu.Lock()
	args := slices.Clone(s.argv.Args())
	command := s.argv.CommandLine()
	mode := s.mode
	console := s.console
	runID := s.runID

	out := console
	if mode == ModeBackground {
		out = s.results
	}
	s.mu.Unlock()

	ctx = logging.ContextAttrs(ctx, slog.String("run_id", runID))

	fmt.Fprintf(console, "Starting a job on slot #%d\n", s.id)
	s.logger.InfoContext(ctx, "job started", "command", command, "mode", mode)

	jobCtx, cancel := s.signal.Context(ctx)
	exitCode := s.body.Run(jobCtx, args, out)
	cause := context.Cause(jobCtx)
	cancel()

	s.complete(ctx, exitCode, cause)
}

// complete records the exit code and prints the completion notice. It leaves
// the arguments and results in place for status and retrieval.
func (s *Slot) complete(ctx context.Context, exitCode int, cause error) {
	s.mu.Lock()
	s.exitCode = exitCode
	console := s.console
	mode := s.mode
	s.mu.Unlock()

	fmt.Fprintln(console, noticeSeparator)
	fmt.Fprintf(
		console,
		"%s returned %d from slot #%d\n",
		s.body.Kind(),
		exitCode,
		s.id,
	)
	if mode == ModeBackground {
		fmt.Fprintf(console, "Use \"result %d\" to print results\n", s.id)
	}
	fmt.Fprintln(console, noticeSeparator)

	var killed *KilledError
	s.logger.InfoContext(
		ctx,
		"job completed",
		"exit_code", exitCode,
		"killed", errors.As(cause, &killed),
	)
}

// Status returns a summary of the Slot.
func (s *Slot) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:         s.id,
		State:      SlotStateIdle,
		HasResults: s.results != nil && s.results.Len() > 0,
		Background: s.mode == ModeBackground,
		Command:    s.argv.CommandLine(),
		RunID:      s.runID,
		ExitCode:   s.exitCode,
	}

	if s.work.IsPending() {
		st.State = SlotStateRunning
	}

	return st
}

// Results returns the Slot's buffered output. Once the job has finished,
// retrieving the results releases them together with the job's arguments,
// so they can only be retrieved in full once. Results read while the job is
// running are a snapshot and are kept.
func (s *Slot) Results() Results {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.results == nil || s.results.Len() == 0 {
		return Results{ID: s.id}
	}

	r := Results{
		ID:        s.id,
		Available: true,
		Text:      s.results.String(),
	}

	if !s.work.IsPending() {
		s.freeResults(s.results)
		s.results = nil

		s.argv.Release()
		s.argv = nil

		r.Discarded = true

		s.logger.Debug("results deleted", "run_id", s.runID)
	}

	return r
}

// Kill raises the Slot's Signal. It doesn't wait for the job to return.
func (s *Slot) Kill() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.work.IsPending() {
		return fmt.Errorf("slot #%d: %w", s.id, ErrNotRunning)
	}

	s.signal.Raise(s.id)
	s.logger.Info("kill signal raised", "run_id", s.runID)

	return nil
}

func (s *Slot) raise() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signal.Raise(s.id)
}

func (s *Slot) allocResults() (*output.Buffer, error) {
	if err := s.budget.acquire(int64(s.capacity)); err != nil {
		return nil, err
	}

	return output.NewBuffer(s.capacity), nil
}

func (s *Slot) freeResults(b *output.Buffer) {
	if b == nil {
		return
	}

	s.budget.release(int64(b.Cap()))
}
