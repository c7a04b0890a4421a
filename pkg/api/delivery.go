package api

import (
	"context"
	"time"
)

// DeliveryResult is the outcome of reporting one work item back to the
// sidecar. Err is nil when the completion call succeeded.
type DeliveryResult struct {
	Kind       WorkItemKind
	InstanceID string
	TaskID     int32
	Name       string
	Attempts   int
	Err        error
}

// Delivered reports whether the sidecar acknowledged the completion.
func (r DeliveryResult) Delivered() bool {
	return r.Err == nil && r.Attempts > 0
}

// DeliveryFailure carries a completion that could not be delivered, along
// with the response the sidecar never received.
type DeliveryFailure struct {
	DeliveryResult

	OrchestratorResponse *OrchestratorResponse
	ActivityResponse     *ActivityResponse
	At                   time.Time
}

// DeliveryFailureHandler decides what happens to undeliverable completions.
// It runs on the handler goroutine and should not block for long.
type DeliveryFailureHandler func(ctx context.Context, failure DeliveryFailure)

// DeadLetter is a persisted, undeliverable completion. Payload holds the
// protocol encoding of the response so it can be redelivered later.
type DeadLetter struct {
	ID         string
	Kind       WorkItemKind
	InstanceID string
	TaskID     int32
	Name       string
	Attempts   int
	Error      string
	Payload    []byte
	At         time.Time
}

// RetryPolicy controls how completion delivery is retried.
// MaxAttempts includes the first attempt; values <= 1 mean a single try.
//
// InitialBackoff is the delay before the first retry. BackoffMultiplier
// grows it on each attempt (1.0 keeps it constant) and MaxBackoff caps it
// when positive.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}
