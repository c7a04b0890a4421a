package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petrijr/taskhub/internal/failure"
	"github.com/petrijr/taskhub/pkg/api"
)

// handleOrchestratorRequest runs one orchestration turn and reports it.
// Executor failures are reported to the sidecar as a FAILED completion;
// nothing is returned to the caller except the delivery outcome.
func (w *Worker) handleOrchestratorRequest(ctx context.Context, req *api.OrchestratorRequest, token string) api.DeliveryResult {
	ctx, span := w.tracer.Start(ctx, "taskhub.orchestrator",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("taskhub.instance_id", req.InstanceID)),
	)
	defer span.End()

	start := time.Now()
	actions, err := recovering(func() ([]*api.OrchestratorAction, error) {
		return w.orchestrations.Execute(ctx, req.InstanceID, req.PastEvents, req.NewEvents)
	})
	w.observer.OnOrchestrationExecuted(ctx, req.InstanceID, err, time.Since(start))

	res := &api.OrchestratorResponse{
		InstanceID:      req.InstanceID,
		Actions:         actions,
		CompletionToken: token,
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "orchestration failed")
		res.Actions = []*api.OrchestratorAction{
			api.NewCompleteOrchestrationAction(-1, api.OrchestrationStatusFailed, nil, failure.FromError(err)),
		}
	}

	result := w.deliver(ctx, api.DeliveryResult{Kind: api.WorkItemOrchestrator, InstanceID: req.InstanceID}, func(ctx context.Context) error {
		return w.client.CompleteOrchestratorTask(ctx, res)
	})
	if result.Err != nil {
		span.SetStatus(otelcodes.Error, "completion not delivered")
		w.deliveryFailed(ctx, api.DeliveryFailure{DeliveryResult: result, OrchestratorResponse: res, At: time.Now()})
	}
	return result
}

// handleActivityRequest runs one activity and reports its result. A
// request without an orchestration instance id is rejected with
// api.ErrMalformedRequest and the sidecar is not contacted.
func (w *Worker) handleActivityRequest(ctx context.Context, req *api.ActivityRequest, token string) api.DeliveryResult {
	result := api.DeliveryResult{Kind: api.WorkItemActivity, TaskID: req.TaskID, Name: req.Name}
	if req.OrchestrationInstance == nil || req.OrchestrationInstance.InstanceID == "" {
		result.Err = fmt.Errorf("activity %q task %d: missing orchestration instance id: %w", req.Name, req.TaskID, api.ErrMalformedRequest)
		return result
	}
	instanceID := req.OrchestrationInstance.InstanceID
	result.InstanceID = instanceID

	ctx, span := w.tracer.Start(ctx, "taskhub.activity",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("taskhub.instance_id", instanceID),
			attribute.String("taskhub.activity", req.Name),
			attribute.Int("taskhub.task_id", int(req.TaskID)),
		),
	)
	defer span.End()

	var input string
	if req.Input != nil {
		input = *req.Input
	}

	start := time.Now()
	out, err := recovering(func() (string, error) {
		return w.activities.Execute(ctx, req.Name, input, req.TaskID)
	})
	w.observer.OnActivityExecuted(ctx, req.Name, req.TaskID, err, time.Since(start))

	res := &api.ActivityResponse{
		InstanceID:      instanceID,
		TaskID:          req.TaskID,
		CompletionToken: token,
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "activity failed")
		res.FailureDetails = failure.FromError(err)
	} else {
		res.Result = &out
	}

	result = w.deliver(ctx, result, func(ctx context.Context) error {
		return w.client.CompleteActivityTask(ctx, res)
	})
	if result.Err != nil {
		span.SetStatus(otelcodes.Error, "completion not delivered")
		w.deliveryFailed(ctx, api.DeliveryFailure{DeliveryResult: result, ActivityResponse: res, At: time.Now()})
	}
	return result
}

func (w *Worker) deliveryFailed(ctx context.Context, f api.DeliveryFailure) {
	if w.cfg.OnDeliveryFailure != nil {
		w.cfg.OnDeliveryFailure(ctx, f)
		return
	}
	w.logger.ErrorContext(ctx, "failed to deliver completion, dropping it",
		slog.String("kind", string(f.Kind)),
		slog.String("instance_id", f.InstanceID),
		slog.Int("task_id", int(f.TaskID)),
		slog.Int("attempts", f.Attempts),
		slog.Any("error", f.Err),
	)
}

// recovering calls fn and converts a panic into *api.PanicError, so a
// misbehaving executor cannot take the worker down.
func recovering[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out = zero
			err = &api.PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn()
}
