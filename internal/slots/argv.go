package slots

import (
	"strings"
)

// Vector is an owned copy of a job's argument list. It shares no memory with
// the slice it was duplicated from, so the job can keep using it after the
// caller's request has gone away.
type Vector struct {
	args   []string
	size   int64
	budget *budget
}

// duplicateArgs copies args, charging their size to b. If b can't cover the
// copy nothing is held and ErrOutOfMemory is returned.
func duplicateArgs(b *budget, args []string) (*Vector, error) {
	var size int64
	for _, a := range args {
		size += int64(len(a))
	}

	if err := b.acquire(size); err != nil {
		return nil, err
	}

	v := &Vector{
		args:   make([]string, len(args)),
		size:   size,
		budget: b,
	}

	for i, a := range args {
		v.args[i] = strings.Clone(a)
	}

	return v, nil
}

// Args returns the arguments. The returned slice must not be modified.
func (v *Vector) Args() []string {
	if v == nil {
		return nil
	}

	return v.args
}

// Len returns the number of arguments.
func (v *Vector) Len() int {
	if v == nil {
		return 0
	}

	return len(v.args)
}

// CommandLine returns the arguments joined by single spaces.
func (v *Vector) CommandLine() string {
	if v == nil {
		return ""
	}

	return strings.Join(v.args, " ")
}

// Release drops the arguments and returns their size to the budget. It's
// safe to call more than once and on a nil Vector.
func (v *Vector) Release() {
	if v == nil || v.args == nil {
		return
	}

	v.budget.release(v.size)
	v.args = nil
	v.size = 0
}
