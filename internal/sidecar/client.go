// Package sidecar talks to the durable-task sidecar over gRPC.
package sidecar

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/petrijr/taskhub/internal/wire"
	"github.com/petrijr/taskhub/pkg/api"
)

// The sidecar service is declared without a proto package.
const (
	ServiceName = "TaskHubSidecarService"

	methodHello                    = "/" + ServiceName + "/Hello"
	methodGetWorkItems             = "/" + ServiceName + "/GetWorkItems"
	methodCompleteActivityTask     = "/" + ServiceName + "/CompleteActivityTask"
	methodCompleteOrchestratorTask = "/" + ServiceName + "/CompleteOrchestratorTask"
)

// Client is the subset of TaskHubSidecarService used by a worker.
type Client interface {
	// Hello is a no-op round trip used to check that the sidecar is reachable.
	Hello(ctx context.Context) error
	// GetWorkItems opens the server stream of work items. The stream ends
	// when ctx is cancelled.
	GetWorkItems(ctx context.Context, req *api.GetWorkItemsRequest) (WorkItemStream, error)
	CompleteOrchestratorTask(ctx context.Context, res *api.OrchestratorResponse) error
	CompleteActivityTask(ctx context.Context, res *api.ActivityResponse) error
}

// WorkItemStream yields work items until it returns an error. io.EOF
// marks a clean end of stream.
type WorkItemStream interface {
	Recv() (*api.WorkItem, error)
}

type grpcClient struct {
	cc grpc.ClientConnInterface
}

var _ Client = (*grpcClient)(nil)

// NewClient returns a Client that issues calls on cc.
func NewClient(cc grpc.ClientConnInterface) Client {
	return &grpcClient{cc: cc}
}

func (c *grpcClient) Hello(ctx context.Context) error {
	return c.cc.Invoke(ctx, methodHello, &emptypb.Empty{}, &emptypb.Empty{}, grpc.ForceCodec(wire.Codec{}))
}

func (c *grpcClient) GetWorkItems(ctx context.Context, req *api.GetWorkItemsRequest) (WorkItemStream, error) {
	desc := &grpc.StreamDesc{StreamName: "GetWorkItems", ServerStreams: true}
	cs, err := c.cc.NewStream(ctx, desc, methodGetWorkItems, grpc.ForceCodec(wire.Codec{}))
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return &workItemStream{cs: cs}, nil
}

func (c *grpcClient) CompleteOrchestratorTask(ctx context.Context, res *api.OrchestratorResponse) error {
	return c.cc.Invoke(ctx, methodCompleteOrchestratorTask, res, &emptypb.Empty{}, grpc.ForceCodec(wire.Codec{}))
}

func (c *grpcClient) CompleteActivityTask(ctx context.Context, res *api.ActivityResponse) error {
	return c.cc.Invoke(ctx, methodCompleteActivityTask, res, &emptypb.Empty{}, grpc.ForceCodec(wire.Codec{}))
}

type workItemStream struct {
	cs grpc.ClientStream
}

func (s *workItemStream) Recv() (*api.WorkItem, error) {
	item := new(api.WorkItem)
	if err := s.cs.RecvMsg(item); err != nil {
		return nil, err
	}
	return item, nil
}
