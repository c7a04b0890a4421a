package deadletter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/taskhub/internal/wire"
	"github.com/petrijr/taskhub/pkg/api"
)

// Recorder persists undeliverable completions. Its Handle method is an
// api.DeliveryFailureHandler.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder returns a Recorder writing to store. A nil logger means
// slog.Default().
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, now: time.Now}
}

var _ api.DeliveryFailureHandler = (*Recorder)(nil).Handle

// Handle stores the failed completion. Store errors are logged; the
// completion is lost in that case.
func (r *Recorder) Handle(ctx context.Context, f api.DeliveryFailure) {
	dl, err := FromFailure(f)
	if err == nil {
		if dl.At.IsZero() {
			dl.At = r.now()
		}
		err = r.store.Put(ctx, dl)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to record dead letter, dropping completion",
			slog.String("kind", string(f.Kind)),
			slog.String("instance_id", f.InstanceID),
			slog.Int("task_id", int(f.TaskID)),
			slog.Any("error", err),
		)
		return
	}
	r.logger.WarnContext(ctx, "completion recorded as dead letter",
		slog.String("dead_letter_id", dl.ID),
		slog.String("kind", string(dl.Kind)),
		slog.String("instance_id", dl.InstanceID),
		slog.Int("attempts", dl.Attempts),
	)
}

// FromFailure converts a delivery failure into a dead letter with a fresh id
// and the wire encoding of the undelivered response.
func FromFailure(f api.DeliveryFailure) (*api.DeadLetter, error) {
	var (
		payload []byte
		err     error
	)
	switch {
	case f.OrchestratorResponse != nil:
		payload, err = wire.Marshal(f.OrchestratorResponse)
	case f.ActivityResponse != nil:
		payload, err = wire.Marshal(f.ActivityResponse)
	default:
		return nil, errors.New("delivery failure carries no response")
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s response: %w", f.Kind, err)
	}

	dl := &api.DeadLetter{
		ID:         uuid.NewString(),
		Kind:       f.Kind,
		InstanceID: f.InstanceID,
		TaskID:     f.TaskID,
		Name:       f.Name,
		Attempts:   f.Attempts,
		Payload:    payload,
		At:         f.At,
	}
	if f.Err != nil {
		dl.Error = f.Err.Error()
	}
	return dl, nil
}
