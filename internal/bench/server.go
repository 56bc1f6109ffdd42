package bench

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Serve accepts benchmark clients on ln and reports what each one sent to
// out. It returns when ctx is done, or with oneOff once the first client has
// been handled. ln is closed on return.
func Serve(ctx context.Context, ln net.Listener, out io.Writer, oneOff bool) error {
	return serve(ctx, ln, newReporter(out), oneOff)
}

func serve(ctx context.Context, ln net.Listener, rep *reporter, oneOff bool) error {
	var (
		closeOnce sync.Once
		finished  atomic.Bool
		wg        sync.WaitGroup
	)

	closeListener := func() {
		closeOnce.Do(func() { ln.Close() })
	}
	defer closeListener()

	stop := context.AfterFunc(ctx, closeListener)
	defer stop()

	rep.printf("Server listening on %s\n", ln.Addr())

	var acceptErr error

	for {
		conn, err := ln.Accept()
		if err != nil {
			acceptErr = err
			break
		}

		wg.Go(func() {
			handle(ctx, conn, rep)

			if oneOff {
				finished.Store(true)
				closeListener()
			}
		})
	}

	wg.Wait()

	switch {
	case ctx.Err() != nil:
		return context.Cause(ctx)
	case finished.Load():
		return nil
	default:
		return fmt.Errorf("accept: %w", acceptErr)
	}
}

// handle drains a single client stream and writes back the number of bytes
// received once the client half-closes.
func handle(ctx context.Context, conn net.Conn, rep *reporter) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	remote := conn.RemoteAddr().String()
	rep.printf("Accepted connection from %s\n", remote)

	start := time.Now()

	n, err := io.Copy(io.Discard, conn)
	elapsed := time.Since(start)

	if err != nil {
		rep.printf("[%s] error - %v\n", remote, err)
		return
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))

	if _, err := conn.Write(buf[:]); err != nil {
		rep.printf("[%s] error - %v\n", remote, err)
		return
	}

	rep.line(remote, 0, elapsed, n, "receiver")
}
