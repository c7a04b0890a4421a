package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/petrijr/taskhub/internal/wire"
	"github.com/petrijr/taskhub/pkg/api"
)

// deliver calls send until it succeeds, fails permanently, or the retry
// policy is exhausted. The outcome is recorded in result.
func (w *Worker) deliver(ctx context.Context, result api.DeliveryResult, send func(context.Context) error) api.DeliveryResult {
	policy := w.cfg.DeliveryRetry
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempts := 0
	op := func() (struct{}, error) {
		attempts++
		err := send(ctx)
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(newBackOff(policy)),
		backoff.WithMaxTries(uint(maxAttempts)),
	)
	result.Attempts = attempts
	result.Err = err
	return result
}

func newBackOff(p api.RetryPolicy) backoff.BackOff {
	if p.InitialBackoff <= 0 {
		return &backoff.ZeroBackOff{}
	}
	if p.BackoffMultiplier <= 1 {
		return backoff.NewConstantBackOff(p.InitialBackoff)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.Multiplier = p.BackoffMultiplier
	b.RandomizationFactor = 0.2
	b.MaxInterval = p.MaxBackoff
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Minute
	}
	return b
}

// marshalFailure prefixes the Internal status gRPC reports when a request
// cannot be encoded on the client.
const marshalFailure = "grpc: error while marshaling"

// retryable reports whether a completion call may succeed if repeated.
// Errors without a gRPC status are transport failures and are retried.
// Encoding failures are deterministic and never retried.
func retryable(err error) bool {
	if errors.Is(err, wire.ErrInvalidUTF8) {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return true
	}
	if s.Code() == codes.Internal && strings.HasPrefix(s.Message(), marshalFailure) {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.DeadlineExceeded, codes.Internal:
		return true
	default:
		return false
	}
}
