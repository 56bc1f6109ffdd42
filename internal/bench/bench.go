// Package bench implements the "bench" job: a TCP throughput benchmark with
// a client mode that transmits for a fixed time over one or more parallel
// streams, and a server mode that receives and reports what it got.
//
// Both modes check their context throughout, so a job killed through its
// slot stops within one write of being signalled.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Kind is the job kind implemented by Runner.
const Kind = "bench"

// DefaultPort is the port the server listens on and the client connects to
// unless told otherwise.
const DefaultPort = 5201

// Exit codes returned by Runner.Run.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitFailed      = 2
	ExitInterrupted = 3
)

const (
	defaultDuration = 10 * time.Second
	defaultInterval = time.Second
	defaultLength   = 128 * 1024
	maxParallel     = 128
)

type options struct {
	server   bool
	oneOff   bool
	host     string
	port     int
	duration time.Duration
	interval time.Duration
	parallel int
	length   int
}

// Runner runs bench jobs. It implements slots.Body.
type Runner struct {
	dialer net.Dialer
}

func New() *Runner {
	return &Runner{}
}

// Kind returns the job kind, "bench".
func (r *Runner) Kind() string {
	return Kind
}

// Run runs a benchmark as described by args, where args[0] is the job kind,
// and writes its report to out.
func (r *Runner) Run(ctx context.Context, args []string, out io.Writer) int {
	rep := newReporter(out)

	opts, err := parseArgs(args, rep)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}

		rep.printf("bench: parameter error - %v\n", err)
		return ExitUsage
	}

	if opts.server {
		return r.runServer(ctx, opts, rep)
	}

	return r.runClient(ctx, opts, rep)
}

func parseArgs(args []string, out io.Writer) (*options, error) {
	if len(args) > 0 {
		args = args[1:]
	}

	opts := &options{}

	var seconds, intervalSeconds int

	fs := pflag.NewFlagSet(Kind, pflag.ContinueOnError)
	fs.SetOutput(out)

	fs.BoolVarP(&opts.server, "server", "s", false, "Run in server mode")
	fs.StringVarP(&opts.host, "client", "c", "", "Run in client mode, connecting to host")
	fs.IntVarP(&opts.port, "port", "p", DefaultPort, "Server port to listen on or connect to")
	fs.IntVarP(&seconds, "time", "t", int(defaultDuration/time.Second), "Time in seconds to transmit for")
	fs.IntVarP(&intervalSeconds, "interval", "i", int(defaultInterval/time.Second), "Seconds between periodic reports, 0 to disable")
	fs.IntVarP(&opts.parallel, "parallel", "P", 1, "Number of parallel client streams")
	fs.IntVarP(&opts.length, "length", "l", defaultLength, "Length of buffer to write")
	fs.BoolVar(&opts.oneOff, "one-off", false, "Handle one client then exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	switch {
	case opts.server && opts.host != "":
		return nil, errors.New("cannot be both server and client")
	case !opts.server && opts.host == "":
		return nil, errors.New("must either be a client (-c) or server (-s)")
	}

	if opts.port < 0 || opts.port > 65535 || (!opts.server && opts.port == 0) {
		return nil, fmt.Errorf("invalid port %d", opts.port)
	}

	if seconds < 1 {
		return nil, fmt.Errorf("invalid time %d", seconds)
	}

	if intervalSeconds < 0 {
		return nil, fmt.Errorf("invalid interval %d", intervalSeconds)
	}

	if opts.parallel < 1 || opts.parallel > maxParallel {
		return nil, fmt.Errorf("parallel must be 1-%d", maxParallel)
	}

	if opts.length < 1 {
		return nil, fmt.Errorf("invalid length %d", opts.length)
	}

	opts.duration = time.Duration(seconds) * time.Second
	opts.interval = time.Duration(intervalSeconds) * time.Second

	return opts, nil
}

func (r *Runner) runServer(
	ctx context.Context,
	opts *options,
	rep *reporter,
) int {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strconv.Itoa(opts.port)))
	if err != nil {
		rep.printf("bench: error - unable to start listener: %v\n", err)
		return ExitFailed
	}

	if err := serve(ctx, ln, rep, opts.oneOff); err != nil {
		if ctx.Err() != nil {
			rep.printf("bench: interrupt - the server has terminated\n")
			return ExitInterrupted
		}

		rep.printf("bench: error - %v\n", err)
		return ExitFailed
	}

	return ExitOK
}
