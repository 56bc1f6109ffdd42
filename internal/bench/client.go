package bench

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// receiverTimeout bounds how long the client waits for the server to report
// how many bytes it received.
const receiverTimeout = 5 * time.Second

type stream struct {
	id   int
	conn net.Conn
	sent atomic.Int64
}

// send writes payload to the stream until ctx is done. A done ctx expires the
// write deadline so a blocked write returns straight away.
func (s *stream) send(ctx context.Context, payload []byte) error {
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	for ctx.Err() == nil {
		n, err := s.conn.Write(payload)
		s.sent.Add(int64(n))

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("stream %d: %w", s.id, err)
		}
	}

	return nil
}

// received half-closes the stream and reads back the byte count the server
// saw on it.
func (s *stream) received(ctx context.Context) (int64, error) {
	if cw, ok := s.conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return 0, fmt.Errorf("stream %d: close write: %w", s.id, err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	s.conn.SetReadDeadline(time.Now().Add(receiverTimeout))

	var buf [8]byte
	if _, err := io.ReadFull(s.conn, buf[:]); err != nil {
		return 0, fmt.Errorf("stream %d: read receiver count: %w", s.id, err)
	}

	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

func (r *Runner) runClient(
	ctx context.Context,
	opts *options,
	rep *reporter,
) int {
	addr := net.JoinHostPort(opts.host, strconv.Itoa(opts.port))

	rep.printf("Connecting to host %s, port %d\n", opts.host, opts.port)

	streams := make([]*stream, 0, opts.parallel)
	defer func() {
		for _, s := range streams {
			s.conn.Close()
		}
	}()

	for i := range opts.parallel {
		conn, err := r.dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				rep.printf("bench: interrupt - the client has terminated\n")
				return ExitInterrupted
			}

			rep.printf("bench: error - unable to connect to server: %v\n", err)
			return ExitFailed
		}

		s := &stream{id: i + 1, conn: conn}
		streams = append(streams, s)

		rep.printf(
			"[%s] local %s connected to %s\n",
			streamLabel(s.id),
			conn.LocalAddr(),
			conn.RemoteAddr(),
		)
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	payload := make([]byte, opts.length)
	start := time.Now()

	g, gctx := errgroup.WithContext(runCtx)

	for _, s := range streams {
		g.Go(func() error {
			return s.send(gctx, payload)
		})
	}

	g.Go(func() error {
		reportIntervals(gctx, rep, streams, start, opts.interval)
		return nil
	})

	err := g.Wait()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		rep.printf("bench: interrupt - the client has terminated\n")
		summarise(rep, streams, nil, elapsed)

		return ExitInterrupted
	}

	if err != nil {
		rep.printf("bench: error - %v\n", err)
		return ExitFailed
	}

	received := make([]int64, len(streams))
	for i, s := range streams {
		n, err := s.received(ctx)
		if err != nil {
			if ctx.Err() != nil {
				rep.printf("bench: interrupt - the client has terminated\n")
				return ExitInterrupted
			}

			rep.printf("bench: error - %v\n", err)
			return ExitFailed
		}

		received[i] = n
	}

	summarise(rep, streams, received, elapsed)
	rep.printf("\nbench Done.\n")

	return ExitOK
}

func totalSent(streams []*stream) int64 {
	var total int64
	for _, s := range streams {
		total += s.sent.Load()
	}

	return total
}

func reportIntervals(
	ctx context.Context,
	rep *reporter,
	streams []*stream,
	start time.Time,
	interval time.Duration,
) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	label := streamLabel(1)
	if len(streams) > 1 {
		label = "SUM"
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last int64
	lastAt := start

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			total := totalSent(streams)
			rep.line(label, lastAt.Sub(start), now.Sub(start), total-last, "")

			last = total
			lastAt = now
		}
	}
}

// summarise prints per-stream sender totals and, when received is not nil,
// the matching receiver totals.
func summarise(
	rep *reporter,
	streams []*stream,
	received []int64,
	elapsed time.Duration,
) {
	rep.printf("%s\n", summarySeparator)

	var sent, recv int64

	for i, s := range streams {
		n := s.sent.Load()
		sent += n
		rep.line(streamLabel(s.id), 0, elapsed, n, "sender")

		if received != nil {
			recv += received[i]
			rep.line(streamLabel(s.id), 0, elapsed, received[i], "receiver")
		}
	}

	if len(streams) > 1 {
		rep.line("SUM", 0, elapsed, sent, "sender")

		if received != nil {
			rep.line("SUM", 0, elapsed, recv, "receiver")
		}
	}
}
