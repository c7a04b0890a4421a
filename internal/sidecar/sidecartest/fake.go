// Package sidecartest provides an in-process sidecar for tests.
package sidecartest

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/petrijr/taskhub/internal/sidecar"
	"github.com/petrijr/taskhub/pkg/api"
)

// Fake is a scriptable sidecar. Work items pushed with Push are streamed
// to every connected worker in order; completions are recorded.
type Fake struct {
	mu             sync.Mutex
	helloErr       error
	completionErrs []error
	orchestrations []*api.OrchestratorResponse
	activities     []*api.ActivityResponse
	requests       []*api.GetWorkItemsRequest
	streams        int
	completionCall int

	items     chan *api.WorkItem
	endStream chan struct{}
	endOnce   sync.Once
	changed   chan struct{}
}

var _ sidecar.Server = (*Fake)(nil)

// NewFake returns an idle fake sidecar.
func NewFake() *Fake {
	return &Fake{
		items:     make(chan *api.WorkItem, 64),
		endStream: make(chan struct{}),
		changed:   make(chan struct{}, 1),
	}
}

// Serve starts f on an in-memory listener and returns a connection to it.
// Both are torn down when the test ends.
func Serve(t testing.TB, f *Fake) *grpc.ClientConn {
	t.Helper()

	conn, stop, err := Start(f)
	if err != nil {
		t.Fatalf("dial fake sidecar: %v", err)
	}
	t.Cleanup(stop)
	return conn
}

// Start is Serve for callers without a testing.TB. stop closes the
// connection and the server.
func Start(f *Fake) (conn *grpc.ClientConn, stop func(), err error) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(sidecar.ServerOptions()...)
	sidecar.RegisterServer(srv, f)
	go func() { _ = srv.Serve(lis) }()

	conn, err = grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		srv.Stop()
		return nil, nil, err
	}
	return conn, func() {
		_ = conn.Close()
		srv.Stop()
	}, nil
}

// ServeTCP starts f on a loopback TCP listener and returns its address,
// for code that dials the sidecar itself.
func ServeTCP(t testing.TB, f *Fake) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer(sidecar.ServerOptions()...)
	sidecar.RegisterServer(srv, f)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

// SetHelloError makes Hello fail with err.
func (f *Fake) SetHelloError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.helloErr = err
}

// FailCompletions makes the next len(errs) completion calls fail with the
// given errors, in order.
func (f *Fake) FailCompletions(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completionErrs = append(f.completionErrs, errs...)
}

// Push queues a work item for delivery.
func (f *Fake) Push(item *api.WorkItem) {
	f.items <- item
}

// EndStream makes open and future GetWorkItems calls return cleanly.
func (f *Fake) EndStream() {
	f.endOnce.Do(func() { close(f.endStream) })
}

func (f *Fake) Hello(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.helloErr
}

func (f *Fake) GetWorkItems(req *api.GetWorkItemsRequest, stream sidecar.WorkItemSender) error {
	f.mu.Lock()
	f.streams++
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	f.notify()

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case <-f.endStream:
			return nil
		case item := <-f.items:
			if err := stream.Send(item); err != nil {
				return err
			}
		}
	}
}

func (f *Fake) CompleteOrchestratorTask(ctx context.Context, res *api.OrchestratorResponse) error {
	f.mu.Lock()
	if err := f.nextCompletionErrLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.orchestrations = append(f.orchestrations, res)
	f.mu.Unlock()
	f.notify()
	return nil
}

func (f *Fake) CompleteActivityTask(ctx context.Context, res *api.ActivityResponse) error {
	f.mu.Lock()
	if err := f.nextCompletionErrLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.activities = append(f.activities, res)
	f.mu.Unlock()
	f.notify()
	return nil
}

func (f *Fake) nextCompletionErrLocked() error {
	f.completionCall++
	if len(f.completionErrs) == 0 {
		return nil
	}
	err := f.completionErrs[0]
	f.completionErrs = f.completionErrs[1:]
	return err
}

func (f *Fake) notify() {
	select {
	case f.changed <- struct{}{}:
	default:
	}
}

// Orchestrations returns the orchestrator completions received so far.
func (f *Fake) Orchestrations() []*api.OrchestratorResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*api.OrchestratorResponse(nil), f.orchestrations...)
}

// Activities returns the activity completions received so far.
func (f *Fake) Activities() []*api.ActivityResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*api.ActivityResponse(nil), f.activities...)
}

// Streams returns how many GetWorkItems calls have been opened.
func (f *Fake) Streams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams
}

// Requests returns the GetWorkItems requests received so far.
func (f *Fake) Requests() []*api.GetWorkItemsRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*api.GetWorkItemsRequest(nil), f.requests...)
}

// CompletionCalls counts completion calls, including failed ones.
func (f *Fake) CompletionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completionCall
}

// WaitFor polls cond until it holds or timeout elapses.
func (f *Fake) WaitFor(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	if !f.Wait(timeout, cond) {
		t.Fatalf("condition not met within %v", timeout)
	}
}

// Wait polls cond until it holds or timeout elapses and reports whether
// it held.
func (f *Fake) Wait(timeout time.Duration, cond func() bool) bool {
	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-f.changed:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			return cond()
		}
	}
	return true
}
