package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

//
// Helpers
//

// testObserver is a simple Observer implementation used to verify fan-out behavior.
type testObserver struct {
	mu sync.Mutex

	received       int
	orchestrations int
	activities     int
	deliveries     int
	streamCloses   int

	lastKind       WorkItemKind
	lastInstanceID string
	lastActivity   struct {
		Name     string
		TaskID   int32
		Err      error
		Duration time.Duration
	}
	lastDelivery DeliveryResult
	lastStreamErr error
}

func (o *testObserver) OnWorkItemReceived(ctx context.Context, kind WorkItemKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.received++
	o.lastKind = kind
}

func (o *testObserver) OnOrchestrationExecuted(ctx context.Context, instanceID string, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orchestrations++
	o.lastInstanceID = instanceID
}

func (o *testObserver) OnActivityExecuted(ctx context.Context, name string, taskID int32, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activities++
	o.lastActivity.Name = name
	o.lastActivity.TaskID = taskID
	o.lastActivity.Err = err
	o.lastActivity.Duration = d
}

func (o *testObserver) OnDelivered(ctx context.Context, result DeliveryResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveries++
	o.lastDelivery = result
}

func (o *testObserver) OnStreamClosed(ctx context.Context, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamCloses++
	o.lastStreamErr = err
}

// recordingHandler is a minimal slog.Handler that just records log records.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	// Copy to avoid reuse issues.
	cpy := slog.Record{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		cpy.AddAttrs(a)
		return true
	})
	h.records = append(h.records, cpy)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *recordingHandler) WithGroup(name string) slog.Handler {
	return h
}

func attrsToMap(r slog.Record) map[string]any {
	m := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	return m
}

//
// NoopObserver
//

func TestNoopObserver_DoesNotPanic(t *testing.T) {
	ctx := context.Background()
	var o Observer = NoopObserver{}

	o.OnWorkItemReceived(ctx, WorkItemActivity)
	o.OnOrchestrationExecuted(ctx, "inst-1", errors.New("boom"), time.Second)
	o.OnActivityExecuted(ctx, "doWork", 7, nil, time.Second)
	o.OnDelivered(ctx, DeliveryResult{Kind: WorkItemActivity, Attempts: 1})
	o.OnStreamClosed(ctx, io.EOF)
}

//
// CompositeObserver
//

func TestNewCompositeObserver_EmptyReturnsNoop(t *testing.T) {
	o := NewCompositeObserver()
	if _, ok := o.(NoopObserver); !ok {
		t.Fatalf("expected NewCompositeObserver() to return NoopObserver, got %T", o)
	}
}

func TestNewCompositeObserver_SingleReturnsThatObserver(t *testing.T) {
	single := &testObserver{}
	o := NewCompositeObserver(single, nil) // include a nil to ensure it is filtered

	if got, ok := o.(*testObserver); !ok || got != single {
		t.Fatalf("expected the single non-nil observer to be returned, got %T (%p)", o, o)
	}
}

func TestCompositeObserver_ForwardsAllEvents(t *testing.T) {
	ctx := context.Background()

	o1 := &testObserver{}
	o2 := &testObserver{}
	co, ok := NewCompositeObserver(o1, o2).(*CompositeObserver)
	if !ok {
		t.Fatalf("expected *CompositeObserver")
	}

	err := errors.New("activity failed")
	delivery := DeliveryResult{Kind: WorkItemActivity, InstanceID: "inst-2", TaskID: 7, Attempts: 1}
	co.OnWorkItemReceived(ctx, WorkItemOrchestrator)
	co.OnOrchestrationExecuted(ctx, "inst-1", nil, time.Second)
	co.OnActivityExecuted(ctx, "doWork", 7, err, 2*time.Second)
	co.OnDelivered(ctx, delivery)
	co.OnStreamClosed(ctx, io.EOF)

	for i, o := range []*testObserver{o1, o2} {
		if o.received != 1 || o.orchestrations != 1 || o.activities != 1 || o.deliveries != 1 || o.streamCloses != 1 {
			t.Fatalf("observer %d did not receive all calls: %+v", i+1, o)
		}
		if o.lastKind != WorkItemOrchestrator || o.lastInstanceID != "inst-1" {
			t.Fatalf("observer %d orchestration mismatch: %q %q", i+1, o.lastKind, o.lastInstanceID)
		}
		if o.lastActivity.Name != "doWork" || o.lastActivity.TaskID != 7 ||
			o.lastActivity.Err != err || o.lastActivity.Duration != 2*time.Second {
			t.Fatalf("observer %d activity mismatch: %+v", i+1, o.lastActivity)
		}
		if o.lastDelivery != delivery {
			t.Fatalf("observer %d delivery mismatch: %+v", i+1, o.lastDelivery)
		}
		if !errors.Is(o.lastStreamErr, io.EOF) {
			t.Fatalf("observer %d stream error mismatch: %v", i+1, o.lastStreamErr)
		}
	}
}

//
// LoggingObserver
//

func TestNewLoggingObserver_NilLoggerUsesDefault(t *testing.T) {
	o := NewLoggingObserver(nil)
	lo, ok := o.(*LoggingObserver)
	if !ok {
		t.Fatalf("expected *LoggingObserver, got %T", o)
	}
	if lo.Logger == nil {
		t.Fatalf("expected non-nil Logger when created with nil")
	}
}

func TestLoggingObserver_OnActivityExecuted_LevelDependsOnError(t *testing.T) {
	ctx := context.Background()

	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	o.OnActivityExecuted(ctx, "ok", 1, nil, time.Second)
	o.OnActivityExecuted(ctx, "fail", 2, errors.New("boom"), 2*time.Second)

	if len(h.records) != 2 {
		t.Fatalf("expected 2 log records, got %d", len(h.records))
	}

	successRec := h.records[0]
	failRec := h.records[1]

	if successRec.Level != slog.LevelDebug {
		t.Fatalf("expected success record LevelDebug, got %v", successRec.Level)
	}
	if failRec.Level != slog.LevelError {
		t.Fatalf("expected failure record LevelError, got %v", failRec.Level)
	}
	if failRec.Message != "activity_executed" {
		t.Fatalf("expected activity_executed message, got %q", failRec.Message)
	}

	attrs := attrsToMap(failRec)
	if attrs["activity"] != "fail" {
		t.Fatalf("expected activity=fail, got %v", attrs["activity"])
	}
	if attrs["task_id"] != int64(2) {
		t.Fatalf("expected task_id=2, got %v", attrs["task_id"])
	}
	if attrs["error"] == nil {
		t.Fatalf("expected error attribute on failure record, got nil")
	}
}

func TestLoggingObserver_OnDelivered_FailureIsError(t *testing.T) {
	ctx := context.Background()

	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	o.OnDelivered(ctx, DeliveryResult{Kind: WorkItemOrchestrator, InstanceID: "inst-1", Attempts: 3, Err: errors.New("unavailable")})

	if len(h.records) != 1 {
		t.Fatalf("expected 1 log record, got %d", len(h.records))
	}
	rec := h.records[0]
	if rec.Level != slog.LevelError || rec.Message != "completion_undelivered" {
		t.Fatalf("unexpected record %v %q", rec.Level, rec.Message)
	}
	attrs := attrsToMap(rec)
	if attrs["instance_id"] != "inst-1" {
		t.Fatalf("expected instance_id=inst-1, got %v", attrs["instance_id"])
	}
}

//
// BasicMetrics
//

func TestBasicMetrics_CountersAndSnapshot(t *testing.T) {
	var m BasicMetrics
	ctx := context.Background()

	m.OnWorkItemReceived(ctx, WorkItemOrchestrator)
	m.OnWorkItemReceived(ctx, WorkItemActivity)
	m.OnWorkItemReceived(ctx, WorkItemUnknown)

	m.OnOrchestrationExecuted(ctx, "inst-1", nil, 1*time.Second)
	m.OnActivityExecuted(ctx, "doWork", 7, errors.New("fail"), 3*time.Second)

	m.OnDelivered(ctx, DeliveryResult{Attempts: 1})
	m.OnDelivered(ctx, DeliveryResult{Attempts: 2, Err: errors.New("lost")})
	m.OnStreamClosed(ctx, io.EOF)

	snap := m.Snapshot()

	if snap.ItemsReceived != 3 || snap.UnknownItems != 1 {
		t.Fatalf("received=%d unknown=%d, want 3/1", snap.ItemsReceived, snap.UnknownItems)
	}
	if snap.OrchestrationsExecuted != 1 || snap.OrchestrationsFailed != 0 {
		t.Fatalf("orchestrations=%d failed=%d, want 1/0", snap.OrchestrationsExecuted, snap.OrchestrationsFailed)
	}
	if snap.ActivitiesExecuted != 1 || snap.ActivitiesFailed != 1 {
		t.Fatalf("activities=%d failed=%d, want 1/1", snap.ActivitiesExecuted, snap.ActivitiesFailed)
	}
	if snap.Deliveries != 2 || snap.DeliveriesFailed != 1 {
		t.Fatalf("deliveries=%d failed=%d, want 2/1", snap.Deliveries, snap.DeliveriesFailed)
	}
	if snap.StreamsClosed != 1 {
		t.Fatalf("StreamsClosed=%d, want 1", snap.StreamsClosed)
	}
	if want := 2 * time.Second; snap.AvgExecDuration != want {
		t.Fatalf("AvgExecDuration=%v, want %v", snap.AvgExecDuration, want)
	}
}

func TestBasicMetrics_SnapshotZeroExecutionsHasZeroAverage(t *testing.T) {
	var m BasicMetrics
	snap := m.Snapshot()
	if snap.AvgExecDuration != 0 {
		t.Fatalf("AvgExecDuration=%v, want 0", snap.AvgExecDuration)
	}
}
