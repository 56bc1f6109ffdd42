package slots

import (
	"context"
	"io"
)

// Body is the routine a Slot runs as a job.
//
// Run is called with the job's arguments, where args[0] is the job kind, and
// the writer the job reports to: the Slot's result buffer for background
// jobs, or the console of the caller for foreground jobs. Writes to a full
// result buffer are truncated and return an error, which a Body should treat
// as a reason to stop writing rather than to fail.
//
// ctx is cancelled when the Slot is killed (with a *KilledError cause) or the
// execution engine shuts down. A Body is expected to check ctx periodically
// and return early, with a Body-defined exit code, once it's done.
type Body interface {
	Kind() string
	Run(ctx context.Context, args []string, out io.Writer) int
}

type bodyFunc struct {
	kind string
	fn   func(ctx context.Context, args []string, out io.Writer) int
}

func (b bodyFunc) Kind() string {
	return b.kind
}

func (b bodyFunc) Run(ctx context.Context, args []string, out io.Writer) int {
	return b.fn(ctx, args, out)
}

// BodyFunc adapts fn to a Body of the given kind.
func BodyFunc(
	kind string,
	fn func(ctx context.Context, args []string, out io.Writer) int,
) Body {
	return bodyFunc{kind: kind, fn: fn}
}
