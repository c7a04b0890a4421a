package api

import (
	"context"
	"encoding/json"
)

// ActivityContext describes the activity invocation being executed.
type ActivityContext struct {
	Name   string
	TaskID int32
	Input  string
}

// GetInput decodes the JSON activity input into v. An empty input leaves v untouched.
func (c *ActivityContext) GetInput(v any) error {
	if c.Input == "" {
		return nil
	}
	return json.Unmarshal([]byte(c.Input), v)
}

// Activity is a registered activity function. Its return value is JSON
// encoded before it is reported to the sidecar.
type Activity func(ctx context.Context, actx *ActivityContext) (any, error)

// OrchestrationContext describes the orchestration turn being executed.
type OrchestrationContext struct {
	InstanceID  string
	Name        string
	Input       *string
	IsReplaying bool
}

// GetInput decodes the JSON orchestration input into v. A missing input leaves v untouched.
func (c *OrchestrationContext) GetInput(v any) error {
	if c.Input == nil || *c.Input == "" {
		return nil
	}
	return json.Unmarshal([]byte(*c.Input), v)
}

// Orchestrator is a registered orchestrator function.
type Orchestrator func(ctx context.Context, octx *OrchestrationContext) (any, error)

// OrchestrationExecutor computes the next set of actions for an
// orchestration turn from its history.
type OrchestrationExecutor interface {
	Execute(ctx context.Context, instanceID string, pastEvents, newEvents []*HistoryEvent) ([]*OrchestratorAction, error)
}

// ActivityExecutor runs a registered activity by name.
type ActivityExecutor interface {
	Execute(ctx context.Context, name string, input string, taskID int32) (string, error)
}

// RegistryView exposes the names registered with a worker.
type RegistryView interface {
	OrchestratorNames() []string
	ActivityNames() []string
}
