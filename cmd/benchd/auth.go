package main

import (
	"context"
	"log/slog"

	"github.com/nixpig/benchworker/internal/auth"
	"github.com/nixpig/benchworker/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// authUnaryInterceptor rejects callers whose certificate role may not call
// the method. Authorised requests carry the client's name on their context,
// so it is logged with anything the request causes.
func authUnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		id, err := auth.Authorise(ctx, info.FullMethod)
		if err != nil {
			if id == (auth.Identity{}) {
				logger.Warn("failed to get client identity", "err", err)
				return nil, status.Error(codes.Unauthenticated, "not authenticated")
			}

			logger.Warn(
				"failed to authorise client",
				"cn", id.CommonName,
				"role", id.Role,
				"method", info.FullMethod,
				"err", err,
			)

			return nil, status.Error(codes.PermissionDenied, "not authorised")
		}

		logger.Debug(
			"authorised client request",
			"cn", id.CommonName,
			"role", id.Role,
			"method", info.FullMethod,
		)

		ctx = logging.ContextAttrs(ctx, slog.String("client", id.CommonName))

		return handler(ctx, req)
	}
}
