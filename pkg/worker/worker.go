package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/petrijr/taskhub/internal/executor"
	"github.com/petrijr/taskhub/internal/registry"
	"github.com/petrijr/taskhub/internal/sidecar"
	"github.com/petrijr/taskhub/pkg/api"
)

const tracerName = "github.com/petrijr/taskhub/pkg/worker"

// Config controls how a Worker executes and reports work items.
// The zero value is usable: unbounded concurrency, per-instance
// serialization, a single delivery attempt, and the default executors.
type Config struct {
	// Address is the sidecar address, used in diagnostics and connection errors.
	Address string

	Logger   *slog.Logger
	Observer api.Observer

	// OrchestrationExecutor replaces the default completion-only executor.
	OrchestrationExecutor api.OrchestrationExecutor
	// ActivityExecutor replaces the default registry-backed executor.
	ActivityExecutor api.ActivityExecutor

	// MaxConcurrentWorkItems bounds how many handlers run at once.
	// Zero or negative means unbounded.
	MaxConcurrentWorkItems int

	// DisableInstanceSerialization lets orchestrator requests for the same
	// instance run concurrently.
	DisableInstanceSerialization bool

	// DeliveryRetry governs retries of completion calls.
	DeliveryRetry api.RetryPolicy

	// OnDeliveryFailure receives completions that could not be delivered.
	// When nil they are only logged.
	OnDeliveryFailure api.DeliveryFailureHandler

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Hints forwarded to the sidecar when the work-item stream opens.
	MaxConcurrentOrchestrationWorkItems int32
	MaxConcurrentActivityWorkItems      int32
}

type state int

const (
	stateIdle state = iota
	stateRunning
)

// lifecycle is the worker's state together with the handle of the stream
// it owns while running.
type lifecycle struct {
	state  state
	cancel context.CancelFunc
	done   chan struct{}
}

// Worker connects to a sidecar, pulls work items, runs them, and reports
// completions.
type Worker struct {
	client   sidecar.Client
	registry *registry.Registry
	cfg      Config

	logger         *slog.Logger
	observer       api.Observer
	tracer         trace.Tracer
	orchestrations api.OrchestrationExecutor
	activities     api.ActivityExecutor
	limiter        *semaphore.Weighted
	instances      *instanceQueue

	mu     sync.Mutex
	life   lifecycle
	sealed bool
}

// New creates a Worker with default configuration.
func New(client sidecar.Client) *Worker {
	return NewWithConfig(client, Config{})
}

// NewWithConfig creates a Worker using cfg.
func NewWithConfig(client sidecar.Client, cfg Config) *Worker {
	if cfg.Address == "" {
		cfg.Address = sidecar.DefaultAddress
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	reg := registry.New()
	w := &Worker{
		client:         client,
		registry:       reg,
		cfg:            cfg,
		logger:         logger,
		observer:       obs,
		tracer:         tp.Tracer(tracerName),
		orchestrations: cfg.OrchestrationExecutor,
		activities:     cfg.ActivityExecutor,
	}
	if w.orchestrations == nil {
		w.orchestrations = executor.NewOrchestrationExecutor(reg)
	}
	if w.activities == nil {
		w.activities = executor.NewActivityExecutor(reg)
	}
	if cfg.MaxConcurrentWorkItems > 0 {
		w.limiter = semaphore.NewWeighted(int64(cfg.MaxConcurrentWorkItems))
	}
	if !cfg.DisableInstanceSerialization {
		w.instances = newInstanceQueue()
	}
	return w
}

// AddOrchestrator registers fn under its function name and returns that name.
func (w *Worker) AddOrchestrator(fn api.Orchestrator) (string, error) {
	return w.AddNamedOrchestrator(registry.FunctionName(fn), fn)
}

// AddNamedOrchestrator registers fn under name. Registration is only
// possible before the worker is first started.
func (w *Worker) AddNamedOrchestrator(name string, fn api.Orchestrator) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sealed {
		return "", fmt.Errorf("add orchestrator %q: registration is closed once the worker has started: %w", name, api.ErrIllegalState)
	}
	return w.registry.AddOrchestrator(name, fn)
}

// AddActivity registers fn under its function name and returns that name.
func (w *Worker) AddActivity(fn api.Activity) (string, error) {
	return w.AddNamedActivity(registry.FunctionName(fn), fn)
}

// AddNamedActivity registers fn under name. Registration is only possible
// before the worker is first started.
func (w *Worker) AddNamedActivity(name string, fn api.Activity) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sealed {
		return "", fmt.Errorf("add activity %q: registration is closed once the worker has started: %w", name, api.ErrIllegalState)
	}
	return w.registry.AddActivity(name, fn)
}

// Registry exposes the registered orchestrator and activity names.
func (w *Worker) Registry() api.RegistryView {
	return w.registry
}

// Start checks that the sidecar is reachable, opens the work-item stream,
// and begins dispatching in a background goroutine. ctx bounds the
// connection attempt only; the stream lives until Stop.
//
// Start fails with api.ErrIllegalState if the worker is already running
// and with *api.ConnectionError if the sidecar cannot be reached.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.life.state == stateRunning {
		return fmt.Errorf("start: worker already running: %w", api.ErrIllegalState)
	}

	if err := w.client.Hello(ctx); err != nil {
		return &api.ConnectionError{Stage: api.ConnectionStageHello, Addr: w.cfg.Address, Err: err}
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := w.client.GetWorkItems(streamCtx, &api.GetWorkItemsRequest{
		MaxConcurrentOrchestrationWorkItems: w.cfg.MaxConcurrentOrchestrationWorkItems,
		MaxConcurrentActivityWorkItems:      w.cfg.MaxConcurrentActivityWorkItems,
	})
	if err != nil {
		cancel()
		return &api.ConnectionError{Stage: api.ConnectionStageStream, Addr: w.cfg.Address, Err: err}
	}

	done := make(chan struct{})
	w.life = lifecycle{state: stateRunning, cancel: cancel, done: done}
	w.sealed = true

	w.logger.InfoContext(ctx, "connected to sidecar, waiting for work items",
		slog.String("address", w.cfg.Address),
		slog.Int("orchestrators", len(w.registry.OrchestratorNames())),
		slog.Int("activities", len(w.registry.ActivityNames())),
	)

	go w.dispatch(streamCtx, stream, done)
	return nil
}

// Stop closes the work-item stream and waits for the dispatch loop to
// exit. Handlers already in flight keep running and still report their
// completions.
//
// Stop fails with api.ErrIllegalState if the worker is not running.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.life.state != stateRunning {
		w.mu.Unlock()
		return fmt.Errorf("stop: worker is not running: %w", api.ErrIllegalState)
	}
	life := w.life
	life.cancel()
	w.life = lifecycle{state: stateIdle}
	w.mu.Unlock()

	<-life.done
	w.logger.Info("worker stopped", slog.String("address", w.cfg.Address))
	return nil
}

// Running reports whether the worker has been started and not stopped.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.life.state == stateRunning
}

// Done returns a channel that is closed when the current dispatch loop
// exits, either because the stream ended or because Stop was called.
// For a worker that is not running the channel is already closed.
func (w *Worker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.life.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return w.life.done
}
