package worker

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/petrijr/taskhub/internal/config"
	"github.com/petrijr/taskhub/internal/sidecar/sidecartest"
	"github.com/petrijr/taskhub/pkg/api"
	"github.com/petrijr/taskhub/pkg/worker"
)

func testConfig(addr string) config.Config {
	return config.Config{
		SidecarAddr:         addr,
		DeliveryMaxAttempts: 1,
		DeadLetterDSN:       "memory://",
		AdminAddr:           "127.0.0.1:0",
		LogLevel:            slog.LevelError,
	}
}

func registerEcho(w *worker.Worker) error {
	_, err := w.AddNamedActivity("Echo", func(ctx context.Context, actx *api.ActivityContext) (any, error) {
		var in string
		if err := actx.GetInput(&in); err != nil {
			return nil, err
		}
		return in, nil
	})
	return err
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("TASKHUB_SIDECAR_ADDR", "env:4001")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg, err := ParseConfig(fs, []string{"-admin-addr", ""})
	require.NoError(t, err)
	require.Equal(t, "env:4001", cfg.SidecarAddr)
	require.Empty(t, cfg.AdminAddr)
}

func TestRun_ProcessesUntilStreamEnds(t *testing.T) {
	fake := sidecartest.NewFake()
	addr := sidecartest.ServeTCP(t, fake)

	errc := make(chan error, 1)
	go func() { errc <- Run(context.Background(), testConfig(addr), registerEcho) }()

	fake.WaitFor(t, 5*time.Second, func() bool { return fake.Streams() == 1 })
	in := `"hi"`
	fake.Push(&api.WorkItem{ActivityRequest: &api.ActivityRequest{
		Name:                  "Echo",
		TaskID:                1,
		Input:                 &in,
		OrchestrationInstance: &api.OrchestrationInstance{InstanceID: "inst-1"},
	}})
	fake.WaitFor(t, 5*time.Second, func() bool { return len(fake.Activities()) == 1 })

	res := fake.Activities()[0]
	require.Equal(t, "inst-1", res.InstanceID)
	require.NotNil(t, res.Result)
	require.Equal(t, `"hi"`, *res.Result)

	fake.EndStream()
	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrStreamClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the stream ended")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	fake := sidecartest.NewFake()
	addr := sidecartest.ServeTCP(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Run(ctx, testConfig(addr), nil) }()

	fake.WaitFor(t, 5*time.Second, func() bool { return fake.Streams() == 1 })
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ReportsConnectionError(t *testing.T) {
	fake := sidecartest.NewFake()
	fake.SetHelloError(status.Error(codes.Unavailable, "not ready"))
	addr := sidecartest.ServeTCP(t, fake)

	err := Run(context.Background(), testConfig(addr), nil)

	var connErr *api.ConnectionError
	require.True(t, errors.As(err, &connErr))
	require.Equal(t, api.ConnectionStageHello, connErr.Stage)
}

func TestRun_RegisterError(t *testing.T) {
	fake := sidecartest.NewFake()
	addr := sidecartest.ServeTCP(t, fake)

	err := Run(context.Background(), testConfig(addr), func(*worker.Worker) error {
		return errors.New("bad registration")
	})
	require.ErrorContains(t, err, "bad registration")
	require.Zero(t, fake.Streams())
}

func TestRun_BadDeadLetterDSN(t *testing.T) {
	cfg := testConfig("127.0.0.1:1")
	cfg.DeadLetterDSN = "ftp://nowhere"

	err := Run(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "open dead letter store")
}
