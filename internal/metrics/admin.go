package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petrijr/taskhub/internal/deadletter"
	"github.com/petrijr/taskhub/pkg/api"
)

// RunningReporter reports whether the worker is connected and pulling work.
type RunningReporter interface {
	Running() bool
}

// AdminOptions configures the admin router. Nil fields disable the
// endpoints that need them.
type AdminOptions struct {
	Worker      RunningReporter
	Gatherer    prometheus.Gatherer
	DeadLetters deadletter.Store
	// Redeliver sends a stored dead letter to the sidecar again.
	Redeliver func(ctx context.Context, id string) error
}

// NewAdminRouter returns the admin HTTP handler:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /dead-letters?kind=&instance_id=
//	GET  /dead-letters/{id}
//	POST /dead-letters/{id}/redeliver
func NewAdminRouter(opts AdminOptions) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", healthHandler(opts.Worker)).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if opts.DeadLetters != nil {
		h := &deadLetterHandlers{store: opts.DeadLetters, redeliver: opts.Redeliver}
		router.HandleFunc("/dead-letters", h.list).Methods(http.MethodGet)
		router.HandleFunc("/dead-letters/{id}", h.get).Methods(http.MethodGet)
		if opts.Redeliver != nil {
			router.HandleFunc("/dead-letters/{id}/redeliver", h.redeliverOne).Methods(http.MethodPost)
		}
	}
	return router
}

// streamWatcher is implemented by workers whose Done channel closes when
// the work-item stream ends. Such a worker stays Running until Stop but
// no longer receives work.
type streamWatcher interface {
	Done() <-chan struct{}
}

func healthHandler(worker RunningReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if worker == nil || !worker.Running() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stopped"})
			return
		}
		if sw, ok := worker.(streamWatcher); ok {
			select {
			case <-sw.Done():
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stream_closed"})
				return
			default:
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
	}
}

type deadLetterView struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	InstanceID string    `json:"instance_id"`
	TaskID     int32     `json:"task_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Attempts   int       `json:"attempts"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

func toView(dl *api.DeadLetter) deadLetterView {
	return deadLetterView{
		ID:         dl.ID,
		Kind:       string(dl.Kind),
		InstanceID: dl.InstanceID,
		TaskID:     dl.TaskID,
		Name:       dl.Name,
		Attempts:   dl.Attempts,
		Error:      dl.Error,
		At:         dl.At.UTC(),
	}
}

type deadLetterHandlers struct {
	store     deadletter.Store
	redeliver func(ctx context.Context, id string) error
}

func (h *deadLetterHandlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := deadletter.Filter{
		Kind:       api.WorkItemKind(q.Get("kind")),
		InstanceID: q.Get("instance_id"),
	}
	dls, err := h.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]deadLetterView, 0, len(dls))
	for _, dl := range dls {
		views = append(views, toView(dl))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *deadLetterHandlers) get(w http.ResponseWriter, r *http.Request) {
	dl, err := h.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(dl))
}

func (h *deadLetterHandlers) redeliverOne(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.redeliver(r.Context(), id); err != nil {
		if errors.Is(err, deadletter.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, deadletter.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
