package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/taskhub/pkg/api"
)

func sayHello(ctx context.Context, actx *api.ActivityContext) (any, error) {
	return "hello", nil
}

func greeter(ctx context.Context, octx *api.OrchestrationContext) (any, error) {
	return nil, nil
}

func TestRegistry_AddAndLookup(t *testing.T) {
	r := New()

	id, err := r.AddActivity("sayHello", sayHello)
	require.NoError(t, err)
	require.Equal(t, "sayHello", id)

	id, err = r.AddOrchestrator("greeter", greeter)
	require.NoError(t, err)
	require.Equal(t, "greeter", id)

	fn, err := r.Activity("sayHello")
	require.NoError(t, err)
	out, err := fn(context.Background(), &api.ActivityContext{})
	require.NoError(t, err)
	require.Equal(t, "hello", out)

	_, err = r.Orchestrator("greeter")
	require.NoError(t, err)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := New()
	_, err := r.AddActivity("a", sayHello)
	require.NoError(t, err)

	_, err = r.AddActivity("a", sayHello)
	require.ErrorIs(t, err, api.ErrDuplicateName)

	// Orchestrators and activities live in separate namespaces.
	_, err = r.AddOrchestrator("a", greeter)
	require.NoError(t, err)
	_, err = r.AddOrchestrator("a", greeter)
	require.ErrorIs(t, err, api.ErrDuplicateName)
}

func TestRegistry_RejectsInvalidNames(t *testing.T) {
	r := New()

	_, err := r.AddActivity("", sayHello)
	require.ErrorIs(t, err, api.ErrInvalidName)

	_, err = r.AddOrchestrator("  ", greeter)
	require.ErrorIs(t, err, api.ErrInvalidName)

	_, err = r.AddActivity("nil-fn", nil)
	require.ErrorIs(t, err, api.ErrInvalidName)

	require.Empty(t, r.ActivityNames())
	require.Empty(t, r.OrchestratorNames())
}

func TestRegistry_UnknownLookups(t *testing.T) {
	r := New()

	_, err := r.Activity("missing")
	require.True(t, errors.Is(err, api.ErrUnknownActivity))

	_, err = r.Orchestrator("missing")
	require.True(t, errors.Is(err, api.ErrUnknownOrchestrator))
}

func TestRegistry_NamesAreSorted(t *testing.T) {
	r := New()
	for _, name := range []string{"c", "a", "b"} {
		_, err := r.AddActivity(name, sayHello)
		require.NoError(t, err)
	}
	require.Equal(t, []string{"a", "b", "c"}, r.ActivityNames())
}

func TestFunctionName(t *testing.T) {
	require.Equal(t, "sayHello", FunctionName(sayHello))
	require.Equal(t, "greeter", FunctionName(api.Orchestrator(greeter)))
	require.Equal(t, "", FunctionName(nil))
	require.Equal(t, "", FunctionName("not a func"))

	var nilFn api.Activity
	require.Equal(t, "", FunctionName(nilFn))
}
