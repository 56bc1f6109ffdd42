package slots

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrAllSlotsBusy       = errors.New("all slots busy")
	ErrOutOfMemory        = errors.New("out of memory")
	ErrNotRunning         = errors.New("not running")
	ErrInvalidArgs        = errors.New("invalid arguments")

	// errSlotBusy is returned by a Slot that was found idle by the Pool but
	// got started by a concurrent caller before it could be claimed.
	errSlotBusy = errors.New("slot busy")
)

// InvalidSlotIDError is returned when an operation addresses a Slot id
// outside of the Pool.
type InvalidSlotIDError struct {
	id int
}

func (e InvalidSlotIDError) Error() string {
	return fmt.Sprintf("invalid slot id %d: must be 1-%d", e.id, SlotCount)
}

func NewInvalidSlotIDError(id int) InvalidSlotIDError {
	return InvalidSlotIDError{id}
}

// KilledError is the cancellation cause of a job's context when its Slot was
// killed. Value is the value the Signal was raised with.
type KilledError struct {
	Value int
}

func (e *KilledError) Error() string {
	return fmt.Sprintf("killed (signal %d)", e.Value)
}
