package output_test

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nixpig/benchworker/internal/slots/output"
)

func TestBuffer(t *testing.T) {
	t.Parallel()

	t.Run("Test basic scenarios", func(t *testing.T) {
		t.Parallel()

		scenarios := map[string]struct {
			capacity int
			writes   [][]byte
			want     string
			wantErr  bool
		}{
			"Single write": {
				capacity: 32,
				writes:   [][]byte{[]byte("Hello, world!")},
				want:     "Hello, world!",
			},
			"Multiple writes": {
				capacity: 32,
				writes:   [][]byte{[]byte("Hello, "), []byte("world!")},
				want:     "Hello, world!",
			},
			"Empty write": {
				capacity: 32,
				writes:   [][]byte{[]byte("")},
				want:     "",
			},
			"Exactly full": {
				capacity: 5,
				writes:   [][]byte{[]byte("12345")},
				want:     "12345",
			},
			"Truncated write": {
				capacity: 5,
				writes:   [][]byte{[]byte("1234"), []byte("5678")},
				want:     "12345",
				wantErr:  true,
			},
			"Write after full": {
				capacity: 3,
				writes:   [][]byte{[]byte("abc"), []byte("d")},
				want:     "abc",
				wantErr:  true,
			},
		}

		for scenario, config := range scenarios {
			t.Run(scenario, func(t *testing.T) {
				t.Parallel()

				b := output.NewBuffer(config.capacity)

				var gotErr error
				for _, w := range config.writes {
					if _, err := b.Write(w); err != nil {
						gotErr = err
					}
				}

				if config.wantErr && !errors.Is(gotErr, output.ErrBufferFull) {
					t.Errorf("expected ErrBufferFull: got '%v'", gotErr)
				}

				if !config.wantErr && gotErr != nil {
					t.Errorf("expected not to receive error: got '%v'", gotErr)
				}

				if b.String() != config.want {
					t.Errorf(
						"expected buffer data: got '%s', want '%s'",
						b.String(),
						config.want,
					)
				}

				if b.Len() != len(config.want) {
					t.Errorf(
						"expected buffer length: got '%d', want '%d'",
						b.Len(),
						len(config.want),
					)
				}
			})
		}
	})

	t.Run("Test default capacity", func(t *testing.T) {
		t.Parallel()

		b := output.NewBuffer(0)

		if b.Cap() != output.DefaultCapacity {
			t.Errorf(
				"expected capacity: got '%d', want '%d'",
				b.Cap(),
				output.DefaultCapacity,
			)
		}

		if b.Len() != 0 {
			t.Errorf("expected new buffer to be empty: got '%d'", b.Len())
		}
	})

	t.Run("Test reset", func(t *testing.T) {
		t.Parallel()

		b := output.NewBuffer(16)
		b.Write([]byte("previous run"))

		b.Reset()

		if b.Len() != 0 {
			t.Errorf("expected reset buffer to be empty: got '%d'", b.Len())
		}

		b.Write([]byte("next"))

		if b.String() != "next" {
			t.Errorf("expected buffer data: got '%s', want 'next'", b.String())
		}

		if b.Cap() != 16 {
			t.Errorf("expected capacity to be kept: got '%d'", b.Cap())
		}
	})

	t.Run("Test snapshot is a copy", func(t *testing.T) {
		t.Parallel()

		b := output.NewBuffer(16)
		b.Write([]byte("abc"))

		snapshot := b.String()
		b.Reset()

		if snapshot != "abc" {
			t.Errorf("expected snapshot to survive reset: got '%s'", snapshot)
		}
	})

	t.Run("Test concurrent writes and reads", func(t *testing.T) {
		t.Parallel()

		writes := 1000
		payload := []byte("x")

		b := output.NewBuffer(writes)

		var wg sync.WaitGroup

		for range writes {
			wg.Go(func() {
				b.Write(payload)
			})
		}

		for range 10 {
			wg.Go(func() {
				snapshot := b.String()
				if strings.Trim(snapshot, "x") != "" {
					t.Errorf("expected only complete writes: got '%s'", snapshot)
				}
			})
		}

		wg.Wait()

		if !bytes.Equal([]byte(b.String()), bytes.Repeat(payload, writes)) {
			t.Errorf("expected all writes to be kept: got '%d' bytes", b.Len())
		}
	})
}
