package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the worker for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay work-item dispatch.
type Observer interface {
	// OnWorkItemReceived is called by the dispatcher for every item pulled
	// from the stream, before it is handed to a handler.
	OnWorkItemReceived(ctx context.Context, kind WorkItemKind)

	// OnOrchestrationExecuted is called after the orchestration executor
	// returns, for both successes and failures (err != nil).
	OnOrchestrationExecuted(ctx context.Context, instanceID string, err error, duration time.Duration)

	// OnActivityExecuted is called after the activity executor returns,
	// for both successes and failures (err != nil).
	OnActivityExecuted(ctx context.Context, name string, taskID int32, err error, duration time.Duration)

	// OnDelivered is called once per handled work item with the outcome of
	// the completion call.
	OnDelivered(ctx context.Context, result DeliveryResult)

	// OnStreamClosed is called when the work-item stream stops delivering.
	// err is io.EOF for a clean end of stream.
	OnStreamClosed(ctx context.Context, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnWorkItemReceived(ctx context.Context, kind WorkItemKind) {}
func (NoopObserver) OnOrchestrationExecuted(ctx context.Context, instanceID string, err error, d time.Duration) {
}
func (NoopObserver) OnActivityExecuted(ctx context.Context, name string, taskID int32, err error, d time.Duration) {
}
func (NoopObserver) OnDelivered(ctx context.Context, result DeliveryResult) {}
func (NoopObserver) OnStreamClosed(ctx context.Context, err error)          {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnWorkItemReceived(ctx context.Context, kind WorkItemKind) {
	for _, o := range c.observers {
		o.OnWorkItemReceived(ctx, kind)
	}
}

func (c *CompositeObserver) OnOrchestrationExecuted(ctx context.Context, instanceID string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnOrchestrationExecuted(ctx, instanceID, err, d)
	}
}

func (c *CompositeObserver) OnActivityExecuted(ctx context.Context, name string, taskID int32, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnActivityExecuted(ctx, name, taskID, err, d)
	}
}

func (c *CompositeObserver) OnDelivered(ctx context.Context, result DeliveryResult) {
	for _, o := range c.observers {
		o.OnDelivered(ctx, result)
	}
}

func (c *CompositeObserver) OnStreamClosed(ctx context.Context, err error) {
	for _, o := range c.observers {
		o.OnStreamClosed(ctx, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs work-item lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnWorkItemReceived(ctx context.Context, kind WorkItemKind) {
	o.Logger.DebugContext(ctx, "work_item_received",
		slog.String("kind", string(kind)),
	)
}

func (o *LoggingObserver) OnOrchestrationExecuted(ctx context.Context, instanceID string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "orchestration_executed",
		slog.String("instance_id", instanceID),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnActivityExecuted(ctx context.Context, name string, taskID int32, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "activity_executed",
		slog.String("activity", name),
		slog.Int("task_id", int(taskID)),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnDelivered(ctx context.Context, result DeliveryResult) {
	if result.Err == nil {
		o.Logger.DebugContext(ctx, "completion_delivered",
			slog.String("kind", string(result.Kind)),
			slog.String("instance_id", result.InstanceID),
			slog.Int("attempts", result.Attempts),
		)
		return
	}
	o.Logger.ErrorContext(ctx, "completion_undelivered",
		slog.String("kind", string(result.Kind)),
		slog.String("instance_id", result.InstanceID),
		slog.Int("task_id", int(result.TaskID)),
		slog.Int("attempts", result.Attempts),
		slog.Any("error", result.Err),
	)
}

func (o *LoggingObserver) OnStreamClosed(ctx context.Context, err error) {
	if err == nil || errors.Is(err, io.EOF) {
		o.Logger.InfoContext(ctx, "stream_closed")
		return
	}
	o.Logger.WarnContext(ctx, "stream_closed", slog.Any("error", err))
}

// BasicMetrics collects simple counters and aggregate execution durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	itemsReceived          atomic.Int64
	unknownItems           atomic.Int64
	orchestrationsExecuted atomic.Int64
	orchestrationsFailed   atomic.Int64
	activitiesExecuted     atomic.Int64
	activitiesFailed       atomic.Int64
	deliveries             atomic.Int64
	deliveriesFailed       atomic.Int64
	streamsClosed          atomic.Int64
	totalExecDuration      atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	ItemsReceived int64
	UnknownItems  int64

	OrchestrationsExecuted int64
	OrchestrationsFailed   int64
	ActivitiesExecuted     int64
	ActivitiesFailed       int64

	Deliveries       int64
	DeliveriesFailed int64
	StreamsClosed    int64

	AvgExecDuration time.Duration
}

func (m *BasicMetrics) OnWorkItemReceived(ctx context.Context, kind WorkItemKind) {
	m.itemsReceived.Add(1)
	if kind == WorkItemUnknown {
		m.unknownItems.Add(1)
	}
}

func (m *BasicMetrics) OnOrchestrationExecuted(ctx context.Context, instanceID string, err error, d time.Duration) {
	m.orchestrationsExecuted.Add(1)
	if err != nil {
		m.orchestrationsFailed.Add(1)
	}
	m.totalExecDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnActivityExecuted(ctx context.Context, name string, taskID int32, err error, d time.Duration) {
	m.activitiesExecuted.Add(1)
	if err != nil {
		m.activitiesFailed.Add(1)
	}
	m.totalExecDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnDelivered(ctx context.Context, result DeliveryResult) {
	m.deliveries.Add(1)
	if result.Err != nil {
		m.deliveriesFailed.Add(1)
	}
}

func (m *BasicMetrics) OnStreamClosed(ctx context.Context, err error) {
	m.streamsClosed.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	orchestrations := m.orchestrationsExecuted.Load()
	activities := m.activitiesExecuted.Load()
	totalNs := m.totalExecDuration.Load()

	var avg time.Duration
	if n := orchestrations + activities; n > 0 {
		avg = time.Duration(totalNs / n)
	}

	return BasicMetricsSnapshot{
		ItemsReceived:          m.itemsReceived.Load(),
		UnknownItems:           m.unknownItems.Load(),
		OrchestrationsExecuted: orchestrations,
		OrchestrationsFailed:   m.orchestrationsFailed.Load(),
		ActivitiesExecuted:     activities,
		ActivitiesFailed:       m.activitiesFailed.Load(),
		Deliveries:             m.deliveries.Load(),
		DeliveriesFailed:       m.deliveriesFailed.Load(),
		StreamsClosed:          m.streamsClosed.Load(),
		AvgExecDuration:        avg,
	}
}
