package sidecar

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/petrijr/taskhub/internal/wire"
	"github.com/petrijr/taskhub/pkg/api"
)

// Server is the sidecar side of the worker-facing methods. It lets tests
// and in-process sidecars serve work items to a worker.
type Server interface {
	Hello(ctx context.Context) error
	GetWorkItems(req *api.GetWorkItemsRequest, stream WorkItemSender) error
	CompleteOrchestratorTask(ctx context.Context, res *api.OrchestratorResponse) error
	CompleteActivityTask(ctx context.Context, res *api.ActivityResponse) error
}

// WorkItemSender pushes work items to a connected worker.
type WorkItemSender interface {
	Context() context.Context
	Send(item *api.WorkItem) error
}

// ServerOptions returns the options a grpc.Server needs to serve the
// sidecar messages. The codec also handles generated proto messages, so
// other services (health) can share the server.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.ForceServerCodec(wire.Codec{})}
}

// RegisterServer registers srv on s.
func RegisterServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Hello", Handler: helloHandler},
		{MethodName: "CompleteActivityTask", Handler: completeActivityHandler},
		{MethodName: "CompleteOrchestratorTask", Handler: completeOrchestratorHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "GetWorkItems", Handler: getWorkItemsHandler, ServerStreams: true},
	},
	Metadata: "orchestrator_service.proto",
}

func helloHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, _ any) (any, error) {
		return &emptypb.Empty{}, srv.(Server).Hello(ctx)
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodHello}, call)
}

func completeActivityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(api.ActivityResponse)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return &emptypb.Empty{}, srv.(Server).CompleteActivityTask(ctx, req.(*api.ActivityResponse))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCompleteActivityTask}, call)
}

func completeOrchestratorHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(api.OrchestratorResponse)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return &emptypb.Empty{}, srv.(Server).CompleteOrchestratorTask(ctx, req.(*api.OrchestratorResponse))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCompleteOrchestratorTask}, call)
}

func getWorkItemsHandler(srv any, stream grpc.ServerStream) error {
	in := new(api.GetWorkItemsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(Server).GetWorkItems(in, &workItemSender{ServerStream: stream})
}

type workItemSender struct {
	grpc.ServerStream
}

func (s *workItemSender) Send(item *api.WorkItem) error {
	return s.ServerStream.SendMsg(item)
}
