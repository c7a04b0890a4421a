package deadletter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/petrijr/taskhub/internal/sidecar"
	"github.com/petrijr/taskhub/internal/sidecar/sidecartest"
	"github.com/petrijr/taskhub/internal/wire"
	"github.com/petrijr/taskhub/pkg/api"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func activityFailure() api.DeliveryFailure {
	result := "42"
	return api.DeliveryFailure{
		DeliveryResult: api.DeliveryResult{
			Kind:       api.WorkItemActivity,
			InstanceID: "inst-1",
			TaskID:     3,
			Name:       "Add",
			Attempts:   2,
			Err:        status.Error(codes.Unavailable, "sidecar gone"),
		},
		ActivityResponse: &api.ActivityResponse{
			InstanceID:      "inst-1",
			TaskID:          3,
			Result:          &result,
			CompletionToken: "tok-1",
		},
		At: time.Unix(1_700_000_000, 0),
	}
}

func TestFromFailure_EncodesResponse(t *testing.T) {
	dl, err := FromFailure(activityFailure())
	require.NoError(t, err)

	require.NotEmpty(t, dl.ID)
	require.Equal(t, api.WorkItemActivity, dl.Kind)
	require.Equal(t, "inst-1", dl.InstanceID)
	require.Equal(t, int32(3), dl.TaskID)
	require.Equal(t, 2, dl.Attempts)
	require.Contains(t, dl.Error, "sidecar gone")

	var res api.ActivityResponse
	require.NoError(t, wire.Unmarshal(dl.Payload, &res))
	require.Equal(t, "inst-1", res.InstanceID)
	require.Equal(t, "tok-1", res.CompletionToken)
	require.NotNil(t, res.Result)
	require.Equal(t, "42", *res.Result)
}

func TestFromFailure_WithoutResponse(t *testing.T) {
	_, err := FromFailure(api.DeliveryFailure{})
	require.Error(t, err)
}

func TestRecorder_StoresFailures(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := NewRecorder(store, discardLogger())

	rec.Handle(ctx, activityFailure())
	rec.Handle(ctx, api.DeliveryFailure{})

	dls, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, dls, 1)
	require.Equal(t, "inst-1", dls[0].InstanceID)
}

func TestRecorder_FillsMissingTimestamp(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := NewRecorder(store, discardLogger())
	fixed := time.Unix(1_800_000_000, 0)
	rec.now = func() time.Time { return fixed }

	f := activityFailure()
	f.At = time.Time{}
	rec.Handle(ctx, f)

	dls, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, dls, 1)
	require.True(t, fixed.Equal(dls[0].At))
}

func TestRedeliver(t *testing.T) {
	ctx := context.Background()
	fake := sidecartest.NewFake()
	client := sidecar.NewClient(sidecartest.Serve(t, fake))
	store := NewMemoryStore()

	dl, err := FromFailure(activityFailure())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, dl))

	require.NoError(t, Redeliver(ctx, store, client, dl.ID))

	acts := fake.Activities()
	require.Len(t, acts, 1)
	require.Equal(t, "inst-1", acts[0].InstanceID)
	require.Equal(t, "tok-1", acts[0].CompletionToken)

	_, err = store.Get(ctx, dl.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedeliver_KeepsLetterWhenSidecarRejects(t *testing.T) {
	ctx := context.Background()
	fake := sidecartest.NewFake()
	client := sidecar.NewClient(sidecartest.Serve(t, fake))
	store := NewMemoryStore()

	dl, err := FromFailure(activityFailure())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, dl))

	fake.FailCompletions(status.Error(codes.FailedPrecondition, "unknown instance"))
	err = Redeliver(ctx, store, client, dl.ID)
	require.Equal(t, codes.FailedPrecondition, status.Code(errors.Unwrap(err)))

	_, err = store.Get(ctx, dl.ID)
	require.NoError(t, err)
}

func TestRedeliverAll(t *testing.T) {
	ctx := context.Background()
	fake := sidecartest.NewFake()
	client := sidecar.NewClient(sidecartest.Serve(t, fake))
	store := NewMemoryStore()

	failed := "boom"
	orch := api.DeliveryFailure{
		DeliveryResult: api.DeliveryResult{Kind: api.WorkItemOrchestrator, InstanceID: "inst-2", Attempts: 1},
		OrchestratorResponse: &api.OrchestratorResponse{
			InstanceID: "inst-2",
			Actions: []*api.OrchestratorAction{
				api.NewCompleteOrchestrationAction(0, api.OrchestrationStatusCompleted, &failed, nil),
			},
		},
		At: time.Unix(1_700_000_001, 0),
	}
	for _, f := range []api.DeliveryFailure{activityFailure(), orch} {
		dl, err := FromFailure(f)
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, dl))
	}
	require.NoError(t, store.Put(ctx, &api.DeadLetter{ID: "odd", Kind: api.WorkItemUnknown, At: time.Unix(1_700_000_002, 0)}))

	delivered, err := RedeliverAll(ctx, store, client, Filter{})
	require.Equal(t, 2, delivered)
	require.ErrorContains(t, err, `unsupported dead letter kind "unknown"`)

	require.Len(t, fake.Activities(), 1)
	require.Len(t, fake.Orchestrations(), 1)
	require.Equal(t, "inst-2", fake.Orchestrations()[0].InstanceID)

	left, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, "odd", left[0].ID)
}
