// Package logging sets up the slog loggers used by the daemon and carries
// per-run attributes (slot, run id) on a context.Context so that every log
// record made while handling a job is tagged with them.
package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

type attrsKeyT struct{}

var attrsKey attrsKeyT

// ContextHandler is a slog.Handler that adds the attributes stored on the
// record's context by ContextAttrs.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(handler slog.Handler) ContextHandler {
	return ContextHandler{Handler: handler}
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if a, ok := ctx.Value(attrsKey).([]slog.Attr); ok {
		r.AddAttrs(a...)
	}

	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// ContextAttrs returns a copy of ctx carrying attrs in addition to any
// attributes already on it.
func ContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	existing, _ := ctx.Value(attrsKey).([]slog.Attr)

	a := make([]slog.Attr, 0, len(existing)+len(attrs))
	a = append(a, existing...)
	a = append(a, attrs...)

	return context.WithValue(ctx, attrsKey, a)
}

// New creates a text logger writing to w. Debug records are only emitted
// when debug is true.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})))
}

// LineWriter is an io.Writer that emits each complete line written to it as
// a log record. It's used as the console of jobs started remotely, where
// there's no terminal to print to.
type LineWriter struct {
	ctx    context.Context
	logger *slog.Logger
	level  slog.Level

	mu  sync.Mutex
	buf []byte
}

func NewLineWriter(
	ctx context.Context,
	logger *slog.Logger,
	level slog.Level,
) *LineWriter {
	return &LineWriter{ctx: ctx, logger: logger, level: level}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}

		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

// Flush emits any partial line still buffered.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *LineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}

	w.logger.Log(w.ctx, w.level, string(line))
}
