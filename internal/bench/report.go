package bench

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const summarySeparator = "- - - - - - - - - - - - - - - - - - - - - - - - -"

// reporter serialises report lines from concurrent streams. Once a write to
// out fails, for instance because a result buffer is full, the rest of the
// report is dropped.
type reporter struct {
	out    io.Writer
	failed bool

	mu sync.Mutex
}

func newReporter(out io.Writer) *reporter {
	if out == nil {
		out = io.Discard
	}

	return &reporter{out: out}
}

func (r *reporter) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failed {
		return len(p), nil
	}

	if _, err := r.out.Write(p); err != nil {
		r.failed = true
	}

	return len(p), nil
}

func (r *reporter) printf(format string, a ...any) {
	fmt.Fprintf(r, format, a...)
}

// line prints a single interval or summary line.
func (r *reporter) line(
	label string,
	from, to time.Duration,
	n int64,
	suffix string,
) {
	r.printf(
		"[%s] %6.2f-%-6.2f sec  %12s  %16s  %s\n",
		label,
		from.Seconds(),
		to.Seconds(),
		formatBytes(n),
		formatBitrate(n, to-from),
		suffix,
	)
}

func streamLabel(id int) string {
	return fmt.Sprintf("%3d", id)
}

// formatBytes formats n using binary units, like "1.25 MBytes".
func formatBytes(n int64) string {
	const unit = 1024

	if n < unit {
		return fmt.Sprintf("%d Bytes", n)
	}

	value := float64(n)
	prefixes := []string{"K", "M", "G", "T"}

	var prefix string
	for _, p := range prefixes {
		value /= unit
		prefix = p

		if value < unit {
			break
		}
	}

	return fmt.Sprintf("%.2f %sBytes", value, prefix)
}

// formatBitrate formats the rate of n bytes over d using decimal units, like
// "9.41 Gbits/sec".
func formatBitrate(n int64, d time.Duration) string {
	if d <= 0 {
		return "0.00 bits/sec"
	}

	const unit = 1000

	value := float64(n) * 8 / d.Seconds()
	if value < unit {
		return fmt.Sprintf("%.2f bits/sec", value)
	}

	prefixes := []string{"K", "M", "G", "T"}

	var prefix string
	for _, p := range prefixes {
		value /= unit
		prefix = p

		if value < unit {
			break
		}
	}

	return fmt.Sprintf("%.2f %sbits/sec", value, prefix)
}
