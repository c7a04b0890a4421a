// Package deadletter keeps completions the sidecar never acknowledged so
// they can be inspected and redelivered later.
package deadletter

import (
	"context"
	"errors"
	"sort"

	"github.com/petrijr/taskhub/pkg/api"
)

// ErrNotFound is returned when a dead letter id is not present in a store.
var ErrNotFound = errors.New("dead letter not found")

// Filter selects dead letters from a store.
// Empty fields mean "no filter" for that field.
type Filter struct {
	Kind       api.WorkItemKind
	InstanceID string
}

func (f Filter) match(dl *api.DeadLetter) bool {
	if f.Kind != "" && dl.Kind != f.Kind {
		return false
	}
	if f.InstanceID != "" && dl.InstanceID != f.InstanceID {
		return false
	}
	return true
}

// Store persists dead letters. List returns records oldest first.
type Store interface {
	Put(ctx context.Context, dl *api.DeadLetter) error
	Get(ctx context.Context, id string) (*api.DeadLetter, error)
	List(ctx context.Context, filter Filter) ([]*api.DeadLetter, error)
	// Delete removes a dead letter. Deleting an unknown id returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

func sortByTime(dls []*api.DeadLetter) {
	sort.SliceStable(dls, func(i, j int) bool {
		return dls[i].At.Before(dls[j].At)
	})
}
