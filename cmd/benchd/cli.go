package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/nixpig/benchworker/internal/bench"
	"github.com/nixpig/benchworker/internal/logging"
	"github.com/nixpig/benchworker/internal/slots"
	"github.com/nixpig/benchworker/internal/slots/output"
	"github.com/nixpig/benchworker/internal/tlsconfig"
	"github.com/nixpig/benchworker/internal/workq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// TODO: Inject version at build time.
const version = "0.0.1"

func rootCmd() *cobra.Command {
	cfg := &config{}

	c := &cobra.Command{
		Use:           "benchd",
		Short:         "gRPC server running network benchmark jobs on two slots",
		Example:       "  benchd --debug --config /etc/benchd.yaml",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.configPath != "" {
				if err := applyConfigFile(cfg.configPath, cmd.Flags()); err != nil {
					return err
				}
			}

			return cfg.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	f := c.Flags()

	f.StringVar(&cfg.configPath, "config", "", "Path to YAML config file; flags take precedence")
	f.StringVar(&cfg.host, "host", "localhost", "gRPC server host to bind")
	f.StringVar(&cfg.port, "port", "8443", "gRPC server port")
	f.BoolVar(&cfg.debug, "debug", false, "Enable debug logs")

	f.StringVar(&cfg.certPath, "cert-path", "certs/server.crt", "Path to server TLS certificate")
	f.StringVar(&cfg.keyPath, "key-path", "certs/server.key", "Path to server TLS private key")
	f.StringVar(&cfg.caCertPath, "ca-cert-path", "certs/ca.crt", "Path to CA certificate for mTLS")

	f.IntVar(&cfg.bufferSize, "buffer-size", output.DefaultCapacity, "Size in bytes of a background job's result buffer")
	f.Int64Var(&cfg.memoryLimit, "memory-limit", slots.DefaultMemoryLimit, "Bytes available to result buffers and job arguments")

	return c
}

// run serves until ctx is cancelled or the server fails. On the way out it
// kills running jobs, stops the server and waits for the slot queues to
// drain.
func run(ctx context.Context, cfg *config) error {
	logger := logging.New(os.Stderr, cfg.debug)

	engine := workq.NewEngine(logger, slots.IDs()...)

	pool := slots.NewPool(engine, bench.New(), slots.Config{
		BufferCapacity: cfg.bufferSize,
		MemoryLimit:    cfg.memoryLimit,
		Logger:         logger,
	})

	listener, err := net.Listen("tcp", net.JoinHostPort(cfg.host, cfg.port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s, err := newServer(pool, logger, &tlsconfig.Config{
		CertPath:   cfg.certPath,
		KeyPath:    cfg.keyPath,
		CACertPath: cfg.caCertPath,
		Server:     true,
	})
	if err != nil {
		listener.Close()
		return err
	}

	engineCtx, stopEngine := context.WithCancel(context.Background())
	defer stopEngine()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(engineCtx)
	})

	g.Go(func() error {
		defer stopEngine()

		logger.Info("starting server", "addr", listener.Addr().String())

		return s.start(listener)
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down server")

		pool.Shutdown()
		s.shutdown()

		return nil
	})

	return g.Wait()
}
