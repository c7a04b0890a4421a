// Package metrics exposes worker activity as Prometheus metrics and serves
// the admin HTTP endpoints.
package metrics

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/petrijr/taskhub/pkg/api"
)

const namespace = "taskhub"

// Observer is an api.Observer that records Prometheus metrics.
type Observer struct {
	received     *prometheus.CounterVec
	executions   *prometheus.HistogramVec
	deliveries   *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	streamClosed *prometheus.CounterVec
}

var _ api.Observer = (*Observer)(nil)

// NewObserver creates the worker metrics and registers them with reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_items_received_total",
			Help:      "Work items pulled from the sidecar stream.",
		}, []string{"kind"}),
		executions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Time spent in the orchestration and activity executors.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "outcome"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Handled work items by completion outcome.",
		}, []string{"kind", "outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "Completion calls made to the sidecar, including retries.",
		}, []string{"kind"}),
		streamClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_closed_total",
			Help:      "Work-item streams that stopped delivering, by reason.",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{o.received, o.executions, o.deliveries, o.attempts, o.streamClosed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (o *Observer) OnWorkItemReceived(_ context.Context, kind api.WorkItemKind) {
	o.received.WithLabelValues(string(kind)).Inc()
}

func (o *Observer) OnOrchestrationExecuted(_ context.Context, _ string, err error, d time.Duration) {
	o.executions.WithLabelValues(string(api.WorkItemOrchestrator), outcome(err)).Observe(d.Seconds())
}

func (o *Observer) OnActivityExecuted(_ context.Context, _ string, _ int32, err error, d time.Duration) {
	o.executions.WithLabelValues(string(api.WorkItemActivity), outcome(err)).Observe(d.Seconds())
}

func (o *Observer) OnDelivered(_ context.Context, result api.DeliveryResult) {
	kind := string(result.Kind)
	o.attempts.WithLabelValues(kind).Add(float64(result.Attempts))

	switch {
	case result.Delivered():
		o.deliveries.WithLabelValues(kind, "delivered").Inc()
	case errors.Is(result.Err, api.ErrMalformedRequest):
		o.deliveries.WithLabelValues(kind, "malformed").Inc()
	default:
		o.deliveries.WithLabelValues(kind, "failed").Inc()
	}
}

func (o *Observer) OnStreamClosed(_ context.Context, err error) {
	reason := "error"
	switch {
	case errors.Is(err, io.EOF):
		reason = "eof"
	case errors.Is(err, context.Canceled):
		reason = "canceled"
	}
	o.streamClosed.WithLabelValues(reason).Inc()
}
