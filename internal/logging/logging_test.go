package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/nixpig/benchworker/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, false)

	ctx := logging.ContextAttrs(context.Background(), slog.Int("slot", 1))
	ctx = logging.ContextAttrs(ctx, slog.String("run_id", "abc"))

	logger.InfoContext(ctx, "job completed", "exit_code", 0)

	out := buf.String()
	require.Contains(t, out, "msg=\"job completed\"")
	require.Contains(t, out, "slot=1")
	require.Contains(t, out, "run_id=abc")
	require.Contains(t, out, "exit_code=0")
}

func TestContextAttrsDoesNotShareBacking(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, false)

	base := logging.ContextAttrs(context.Background(), slog.Int("slot", 1))
	first := logging.ContextAttrs(base, slog.String("run_id", "first"))
	_ = logging.ContextAttrs(base, slog.String("run_id", "second"))

	logger.InfoContext(first, "check")

	require.Contains(t, buf.String(), "run_id=first")
	require.NotContains(t, buf.String(), "run_id=second")
}

func TestDebugLevel(t *testing.T) {
	t.Parallel()

	var quiet, verbose bytes.Buffer

	logging.New(&quiet, false).Debug("hidden")
	logging.New(&verbose, true).Debug("shown")

	require.Empty(t, quiet.String())
	require.Contains(t, verbose.String(), "shown")
}

func TestLineWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, false)

	w := logging.NewLineWriter(context.Background(), logger, slog.LevelInfo)

	n, err := w.Write([]byte("first line\nsecond "))
	require.NoError(t, err)
	require.Equal(t, len("first line\nsecond "), n)

	require.Equal(t, 1, strings.Count(buf.String(), "\n"))
	require.Contains(t, buf.String(), "first line")

	w.Write([]byte("line\r\n\n"))
	require.Contains(t, buf.String(), "second line")
	require.Equal(t, 2, strings.Count(buf.String(), "\n"))

	w.Write([]byte("partial"))
	w.Flush()
	require.Contains(t, buf.String(), "partial")
}
