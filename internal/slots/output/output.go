// Package output provides the fixed-capacity result buffer a background job
// writes its report into. The buffer is safe for a writer and any number of
// readers to use concurrently.
package output

import (
	"errors"
	"sync"
)

// DefaultCapacity is the size of a result buffer when none is configured.
// 10KB holds the full report of a benchmark run with 1s intervals for a few
// minutes.
const DefaultCapacity = 10 * 1024

// ErrBufferFull is returned by Write when p did not fit in the remaining
// capacity and was truncated.
var ErrBufferFull = errors.New("output buffer full")

// Buffer is a fixed-size byte buffer. Writes beyond its capacity are
// truncated. The backing array is allocated once and reused by Reset.
type Buffer struct {
	data []byte
	n    int

	mu sync.RWMutex
}

// NewBuffer allocates a zeroed Buffer of the given capacity. A capacity of
// zero or less uses DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Buffer{data: make([]byte, capacity)}
}

// Write implements io.Writer. It copies as much of p as fits and returns
// ErrBufferFull with the short count when p had to be truncated.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := copy(b.data[b.n:], p)
	b.n += n

	if n < len(p) {
		return n, ErrBufferFull
	}

	return n, nil
}

// String returns a copy of the data written so far. Against an active
// writer it's a point-in-time snapshot.
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return string(b.data[:b.n])
}

// Len returns the number of bytes written. A zero length means the buffer
// holds no results.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.n
}

// Cap returns the fixed capacity of the buffer.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Reset zero-fills the buffer in place, discarding anything written.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.data)
	b.n = 0
}
