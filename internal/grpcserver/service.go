// Package grpcserver exposes the task service over gRPC.
//
// Messages are google.protobuf.Struct values, so the service descriptor is
// declared by hand instead of generated from a .proto file.
package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "grpc.phab.service.TaskService"

	// FetchWatchlistMethod is the full method name of FetchWatchlist.
	FetchWatchlistMethod = "/" + ServiceName + "/FetchWatchlist"
)

// TaskServiceServer is the server API for TaskService.
type TaskServiceServer interface {
	FetchWatchlist(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// RegisterTaskServiceServer registers srv on s.
func RegisterTaskServiceServer(s grpc.ServiceRegistrar, srv TaskServiceServer) {
	s.RegisterService(&taskServiceDesc, srv)
}

func fetchWatchlistHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskServiceServer).FetchWatchlist(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FetchWatchlistMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskServiceServer).FetchWatchlist(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var taskServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaskServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "FetchWatchlist",
			Handler:    fetchWatchlistHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "phab/task_service.proto",
}

// TaskServiceClient is the client API for TaskService.
type TaskServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTaskServiceClient creates a client on top of an existing connection.
func NewTaskServiceClient(cc grpc.ClientConnInterface) *TaskServiceClient {
	return &TaskServiceClient{cc: cc}
}

// FetchWatchlist calls TaskService.FetchWatchlist.
func (c *TaskServiceClient) FetchWatchlist(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FetchWatchlistMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
