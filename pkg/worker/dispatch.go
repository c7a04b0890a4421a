package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/petrijr/taskhub/internal/sidecar"
	"github.com/petrijr/taskhub/pkg/api"
)

// dispatch pulls work items until the stream fails or ends. Each item is
// handed to its own goroutine so a slow handler never delays receipt of
// the next item; only the concurrency limit can make dispatch wait.
func (w *Worker) dispatch(ctx context.Context, stream sidecar.WorkItemStream, done chan struct{}) {
	defer close(done)

	for {
		item, err := stream.Recv()
		if err != nil {
			w.streamClosed(ctx, err)
			return
		}

		kind := item.Kind()
		w.observer.OnWorkItemReceived(ctx, kind)

		switch kind {
		case api.WorkItemOrchestrator:
			req := item.OrchestratorRequest
			w.spawn(ctx, kind, req.InstanceID, func(ctx context.Context) api.DeliveryResult {
				return w.handleOrchestratorRequest(ctx, req, item.CompletionToken)
			})
		case api.WorkItemActivity:
			req := item.ActivityRequest
			w.spawn(ctx, kind, "", func(ctx context.Context) api.DeliveryResult {
				return w.handleActivityRequest(ctx, req, item.CompletionToken)
			})
		default:
			w.logger.WarnContext(ctx, "received unknown work item type, skipping")
		}
	}
}

// spawn runs handle on a new goroutine once a concurrency slot is free.
// A non-empty instanceID additionally queues the handler behind earlier
// handlers for the same instance. The slot is taken before the instance
// ticket so that every queue head holds a slot and can always proceed.
func (w *Worker) spawn(ctx context.Context, kind api.WorkItemKind, instanceID string, handle func(context.Context) api.DeliveryResult) {
	if w.limiter != nil {
		if err := w.limiter.Acquire(ctx, 1); err != nil {
			w.logger.WarnContext(ctx, "worker stopping, work item dropped",
				slog.String("kind", string(kind)),
				slog.String("instance_id", instanceID),
			)
			return
		}
	}

	var t *ticket
	if instanceID != "" && w.instances != nil {
		t = w.instances.enqueue(instanceID)
	}

	// Handlers outlive Stop: they finish and report even after the stream closes.
	hctx := context.WithoutCancel(ctx)
	go func() {
		if w.limiter != nil {
			defer w.limiter.Release(1)
		}
		if t != nil {
			<-t.ready
			defer w.instances.release(t)
		}

		result := handle(hctx)
		if errors.Is(result.Err, api.ErrMalformedRequest) {
			w.logger.ErrorContext(hctx, "malformed work item",
				slog.String("kind", string(result.Kind)),
				slog.String("activity", result.Name),
				slog.Int("task_id", int(result.TaskID)),
				slog.Any("error", result.Err),
			)
		}
		w.observer.OnDelivered(hctx, result)
	}()
}

func (w *Worker) streamClosed(ctx context.Context, err error) {
	switch {
	case errors.Is(err, io.EOF):
		w.logger.InfoContext(ctx, "work item stream ended")
	case ctx.Err() != nil || status.Code(err) == codes.Canceled:
		// Stop cancelled the stream.
		w.logger.DebugContext(ctx, "work item stream closed")
		err = context.Canceled
	default:
		w.logger.ErrorContext(ctx, "work item stream failed", slog.Any("error", err))
	}
	w.observer.OnStreamClosed(ctx, err)
}
