package slots

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultMemoryLimit is the number of bytes all slots may hold for result
// buffers and argument copies together. It fits both default-size result
// buffers with room to spare for arguments.
const DefaultMemoryLimit = 64 * 1024

// budget bounds the memory held by the Pool's slots. Acquisitions never
// wait: when the limit would be exceeded they fail with ErrOutOfMemory.
type budget struct {
	sem   *semaphore.Weighted
	limit int64
	inUse atomic.Int64
}

func newBudget(limit int64) *budget {
	return &budget{
		sem:   semaphore.NewWeighted(limit),
		limit: limit,
	}
}

func (b *budget) acquire(n int64) error {
	if n == 0 {
		return nil
	}

	if !b.sem.TryAcquire(n) {
		return fmt.Errorf(
			"acquire %d bytes (%d of %d in use): %w",
			n,
			b.inUse.Load(),
			b.limit,
			ErrOutOfMemory,
		)
	}

	b.inUse.Add(n)

	return nil
}

func (b *budget) release(n int64) {
	if n == 0 {
		return
	}

	b.inUse.Add(-n)
	b.sem.Release(n)
}

func (b *budget) used() int64 {
	return b.inUse.Load()
}
