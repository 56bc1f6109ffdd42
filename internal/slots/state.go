package slots

type SlotState int

const (
	// SlotStateUnknown is the zero value.
	SlotStateUnknown SlotState = iota

	// SlotStateIdle indicates the slot has no job scheduled or running. A job
	// can be started.
	SlotStateIdle

	// SlotStateRunning indicates a job has been handed to the slot's queue and
	// has not yet returned.
	SlotStateRunning
)

// NOTE: Keep in sync with the SlotState values.
var slotStates = []string{
	"Unknown",
	"Idle",
	"Running",
}

func (s SlotState) String() string {
	if int(s) < 0 || int(s) >= len(slotStates) {
		return slotStates[0]
	}

	return slotStates[s]
}

// Mode determines whether a job's output is captured.
type Mode int

const (
	// ModeForeground jobs write directly to the console of the caller that
	// started them. Nothing is captured.
	ModeForeground Mode = iota

	// ModeBackground jobs write into the slot's result buffer, which is kept
	// until the results are retrieved.
	ModeBackground
)

func (m Mode) String() string {
	if m == ModeBackground {
		return "Background"
	}

	return "Foreground"
}
