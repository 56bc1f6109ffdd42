package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	api "github.com/nixpig/benchworker/api/v1"
	"github.com/nixpig/benchworker/internal/logging"
	"github.com/nixpig/benchworker/internal/slots"
	"github.com/nixpig/benchworker/internal/tlsconfig"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
)

type server struct {
	api.UnimplementedSlotServiceServer

	pool       *slots.Pool
	logger     *slog.Logger
	grpcServer *grpc.Server
}

func newServer(
	pool *slots.Pool,
	logger *slog.Logger,
	tlsCfg *tlsconfig.Config,
) (*server, error) {
	tlsConfig, err := tlsconfig.SetupTLS(tlsCfg)
	if err != nil {
		return nil, fmt.Errorf("load TLS credentials: %w", err)
	}

	s := &server{pool: pool, logger: logger}

	s.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			contextCheckUnaryInterceptor,
			authUnaryInterceptor(logger),
		),
		grpc.Creds(credentials.NewTLS(tlsConfig)),
	)

	api.RegisterSlotServiceServer(s.grpcServer, s)

	return s, nil
}

func (s *server) start(listener net.Listener) error {
	return s.grpcServer.Serve(listener)
}

func (s *server) shutdown() {
	s.grpcServer.GracefulStop()
}

func (s *server) StartJob(
	ctx context.Context,
	req *api.StartJobRequest,
) (*api.StartJobResponse, error) {
	if len(req.Args) == 0 {
		return nil, status.Error(codes.InvalidArgument, "args is empty")
	}

	// Remote callers have no console, so notices and foreground output are
	// logged instead.
	console := logging.NewLineWriter(ctx, s.logger, slog.LevelInfo)

	id, err := s.pool.Start(slots.StartRequest{
		Kind:       req.Args[0],
		Args:       req.Args,
		Background: req.Background,
		Console:    console,
	})
	if err != nil {
		return nil, s.mapError("start job", err)
	}

	return &api.StartJobResponse{SlotID: int32(id)}, nil
}

func (s *server) Status(
	ctx context.Context,
	req *api.StatusRequest,
) (*api.StatusResponse, error) {
	all := s.pool.Status()

	resp := &api.StatusResponse{Slots: make([]api.SlotStatus, 0, len(all))}
	for _, st := range all {
		resp.Slots = append(resp.Slots, api.SlotStatus{
			SlotID:     int32(st.ID),
			State:      st.State.String(),
			HasResults: st.HasResults,
			Background: st.Background,
			Command:    st.Command,
			RunID:      st.RunID,
			ExitCode:   int32(st.ExitCode),
		})
	}

	return resp, nil
}

func (s *server) KillJob(
	ctx context.Context,
	req *api.KillJobRequest,
) (*api.KillJobResponse, error) {
	if err := s.pool.Kill(int(req.SlotID)); err != nil {
		return nil, s.mapError("kill job", err)
	}

	return &api.KillJobResponse{}, nil
}

func (s *server) KillAll(
	ctx context.Context,
	req *api.KillAllRequest,
) (*api.KillAllResponse, error) {
	s.pool.KillAll()

	return &api.KillAllResponse{}, nil
}

func (s *server) JobResult(
	ctx context.Context,
	req *api.JobResultRequest,
) (*api.JobResultResponse, error) {
	r, err := s.pool.Result(int(req.SlotID))
	if err != nil {
		return nil, s.mapError("job result", err)
	}

	return &api.JobResultResponse{
		SlotID:    int32(r.ID),
		Available: r.Available,
		Text:      r.Text,
		Discarded: r.Discarded,
	}, nil
}

// mapError translates slots errors to gRPC errors.
func (s *server) mapError(logMsg string, err error) error {
	switch {
	case errors.Is(err, slots.ErrUnsupportedCommand),
		errors.Is(err, slots.ErrInvalidArgs):
		s.logger.Warn(logMsg, "err", err)
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.As(err, new(slots.InvalidSlotIDError)):
		s.logger.Warn(logMsg, "err", err)
		return status.Error(codes.OutOfRange, err.Error())

	case errors.Is(err, slots.ErrAllSlotsBusy),
		errors.Is(err, slots.ErrOutOfMemory):
		s.logger.Warn(logMsg, "err", err)
		return status.Error(codes.ResourceExhausted, err.Error())

	case errors.Is(err, slots.ErrNotRunning):
		s.logger.Warn(logMsg, "err", err)
		return status.Error(codes.FailedPrecondition, err.Error())

	default:
		s.logger.Error(logMsg, "err", err)
		return status.Error(codes.Internal, "internal server error")
	}
}

// contextCheckUnaryInterceptor rejects requests with a cancelled context.
func contextCheckUnaryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	if ctx.Err() != nil {
		return nil, status.FromContextError(ctx.Err()).Err()
	}

	return handler(ctx, req)
}
