package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/petrijr/taskhub/internal/registry"
	"github.com/petrijr/taskhub/pkg/api"
)

// ErrNoExecutionStarted is returned when an orchestration history has no
// ExecutionStarted event, so there is nothing to run.
var ErrNoExecutionStarted = errors.New("history has no ExecutionStarted event")

// OrchestrationExecutor runs each orchestrator to completion in a single
// turn. It does not replay durable tasks or timers; orchestrators that need
// those are served by a replay-capable executor plugged into the worker.
type OrchestrationExecutor struct {
	registry *registry.Registry
}

var _ api.OrchestrationExecutor = (*OrchestrationExecutor)(nil)

func NewOrchestrationExecutor(reg *registry.Registry) *OrchestrationExecutor {
	return &OrchestrationExecutor{registry: reg}
}

// Execute finds the orchestrator named by the ExecutionStarted event, runs
// it once, and returns a single CompleteOrchestration action. A
// termination among the new events completes the instance as TERMINATED
// without running the orchestrator.
func (e *OrchestrationExecutor) Execute(ctx context.Context, instanceID string, pastEvents, newEvents []*api.HistoryEvent) ([]*api.OrchestratorAction, error) {
	for _, ev := range newEvents {
		if ev.ExecutionTerminated != nil {
			return []*api.OrchestratorAction{
				api.NewCompleteOrchestrationAction(0, api.OrchestrationStatusTerminated, ev.ExecutionTerminated.Input, nil),
			}, nil
		}
	}

	started := findExecutionStarted(pastEvents, newEvents)
	if started == nil {
		return nil, fmt.Errorf("orchestration %q: %w", instanceID, ErrNoExecutionStarted)
	}

	fn, err := e.registry.Orchestrator(started.Name)
	if err != nil {
		return nil, err
	}

	octx := &api.OrchestrationContext{
		InstanceID:  instanceID,
		Name:        started.Name,
		Input:       started.Input,
		IsReplaying: len(pastEvents) > 0,
	}
	out, err := invoke(func() (any, error) { return fn(ctx, octx) })
	if err != nil {
		return nil, err
	}
	result, err := marshalResult(out)
	if err != nil {
		return nil, fmt.Errorf("orchestrator %q: encode result: %w", started.Name, err)
	}

	return []*api.OrchestratorAction{
		api.NewCompleteOrchestrationAction(0, api.OrchestrationStatusCompleted, result, nil),
	}, nil
}

func findExecutionStarted(pastEvents, newEvents []*api.HistoryEvent) *api.ExecutionStartedEvent {
	for _, events := range [][]*api.HistoryEvent{pastEvents, newEvents} {
		for _, ev := range events {
			if ev.ExecutionStarted != nil {
				return ev.ExecutionStarted
			}
		}
	}
	return nil
}
