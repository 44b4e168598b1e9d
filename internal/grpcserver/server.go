package grpcserver

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultAddr is the address the server listens on unless overridden.
const DefaultAddr = "127.0.0.1:8787"

// TaskService is a stub TaskServiceServer.
// It ignores its input and always answers with the same placeholder task.
type TaskService struct{}

var _ TaskServiceServer = (*TaskService)(nil)

// FetchWatchlist implements TaskServiceServer.
func (s *TaskService) FetchWatchlist(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]interface{}{
		"tasks": map[string]interface{}{"id": "wat"},
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return out, nil
}

// New creates a gRPC server with TaskService and the health service
// registered. Every unary call is logged to logger.
func New(logger *slog.Logger) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))

	RegisterTaskServiceServer(srv, &TaskService{})

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

// loggingInterceptor logs method, status code and latency of unary calls.
// Failures are logged at warn level, everything else at debug.
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "rpc",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}
