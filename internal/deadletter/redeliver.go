package deadletter

import (
	"context"
	"errors"
	"fmt"

	"github.com/petrijr/taskhub/internal/sidecar"
	"github.com/petrijr/taskhub/internal/wire"
	"github.com/petrijr/taskhub/pkg/api"
)

// Redeliver sends the stored completion to the sidecar again and removes it
// from the store once the sidecar accepts it.
func Redeliver(ctx context.Context, store Store, client sidecar.Client, id string) error {
	dl, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := send(ctx, client, dl); err != nil {
		return fmt.Errorf("redeliver %s: %w", id, err)
	}
	return store.Delete(ctx, id)
}

// RedeliverAll redelivers every dead letter matching filter, oldest first.
// It keeps going past failures and returns how many were delivered along
// with the joined errors.
func RedeliverAll(ctx context.Context, store Store, client sidecar.Client, filter Filter) (int, error) {
	dls, err := store.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	delivered := 0
	var errs []error
	for _, dl := range dls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := Redeliver(ctx, store, client, dl.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

func send(ctx context.Context, client sidecar.Client, dl *api.DeadLetter) error {
	switch dl.Kind {
	case api.WorkItemOrchestrator:
		var res api.OrchestratorResponse
		if err := wire.Unmarshal(dl.Payload, &res); err != nil {
			return err
		}
		return client.CompleteOrchestratorTask(ctx, &res)
	case api.WorkItemActivity:
		var res api.ActivityResponse
		if err := wire.Unmarshal(dl.Payload, &res); err != nil {
			return err
		}
		return client.CompleteActivityTask(ctx, &res)
	default:
		return fmt.Errorf("unsupported dead letter kind %q", dl.Kind)
	}
}
