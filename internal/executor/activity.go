// Package executor runs registered orchestrators and activities on behalf
// of the worker.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/petrijr/taskhub/internal/registry"
	"github.com/petrijr/taskhub/pkg/api"
)

// ActivityExecutor invokes activities from a registry.
type ActivityExecutor struct {
	registry *registry.Registry
}

var _ api.ActivityExecutor = (*ActivityExecutor)(nil)

func NewActivityExecutor(reg *registry.Registry) *ActivityExecutor {
	return &ActivityExecutor{registry: reg}
}

// Execute runs the activity registered under name. The activity's return
// value is JSON encoded; a nil return value yields an empty result.
func (e *ActivityExecutor) Execute(ctx context.Context, name string, input string, taskID int32) (string, error) {
	fn, err := e.registry.Activity(name)
	if err != nil {
		return "", err
	}

	out, err := invoke(func() (any, error) {
		return fn(ctx, &api.ActivityContext{Name: name, TaskID: taskID, Input: input})
	})
	if err != nil {
		return "", err
	}
	result, err := marshalResult(out)
	if err != nil {
		return "", fmt.Errorf("activity %q: encode result: %w", name, err)
	}
	if result == nil {
		return "", nil
	}
	return *result, nil
}

// invoke calls fn, turning a panic into *api.PanicError.
func invoke(fn func() (any, error)) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &api.PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn()
}

func marshalResult(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		s := string(raw)
		return &s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
