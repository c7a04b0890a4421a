// Package worker parses worker command flags and runs a sidecar worker
// process with its telemetry, dead-letter store and admin server.
package worker

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/petrijr/taskhub/internal/config"
	"github.com/petrijr/taskhub/internal/deadletter"
	"github.com/petrijr/taskhub/internal/metrics"
	"github.com/petrijr/taskhub/internal/otel"
	"github.com/petrijr/taskhub/internal/sidecar"
	"github.com/petrijr/taskhub/pkg/api"
	"github.com/petrijr/taskhub/pkg/worker"
)

// ServiceName identifies the process in traces.
const ServiceName = "taskhub-worker"

const shutdownTimeout = 5 * time.Second

// ErrStreamClosed is returned by Run when the sidecar ends the work-item
// stream. The worker does not reconnect; the process supervisor restarts it.
var ErrStreamClosed = errors.New("work-item stream closed by sidecar")

// ParseConfig parses environment and flags into a config.Config.
func ParseConfig(fs *flag.FlagSet, args []string) (config.Config, error) {
	return config.ParseConfig(fs, args)
}

// Register adds orchestrators and activities to a worker before it starts.
type Register func(w *worker.Worker) error

// Run connects to the sidecar and processes work items until ctx is
// cancelled or the stream ends.
func Run(ctx context.Context, cfg config.Config, register Register) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	shutdownTracing, err := otel.Setup(ctx, ServiceName, otel.Options{Endpoint: cfg.OTelEndpoint, Enabled: cfg.OTelEnabled})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	conn, err := sidecar.Dial(cfg.SidecarAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	client := sidecar.NewClient(conn)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promObserver, err := metrics.NewObserver(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var (
		letters   deadletter.Store
		onFailure api.DeliveryFailureHandler
	)
	if cfg.DeadLetterDSN != "" {
		store, closeStore, err := deadletter.Open(ctx, cfg.DeadLetterDSN)
		if err != nil {
			return fmt.Errorf("open dead letter store: %w", err)
		}
		defer func() {
			if err := closeStore(); err != nil {
				log.Printf("close dead letter store: %v", err)
			}
		}()
		letters = store
		onFailure = deadletter.NewRecorder(store, logger).Handle
	}

	w := worker.NewWithConfig(client, worker.Config{
		Address:                cfg.SidecarAddr,
		Logger:                 logger,
		Observer:               api.NewCompositeObserver(api.NewLoggingObserver(logger), promObserver),
		MaxConcurrentWorkItems: cfg.MaxConcurrentWorkItems,
		DeliveryRetry:          cfg.DeliveryRetry(),
		OnDeliveryFailure:      onFailure,
	})
	if register != nil {
		if err := register(w); err != nil {
			return fmt.Errorf("register functions: %w", err)
		}
	}

	if cfg.AdminAddr != "" {
		adminOpts := metrics.AdminOptions{Worker: w, Gatherer: reg, DeadLetters: letters}
		if letters != nil {
			adminOpts.Redeliver = func(ctx context.Context, id string) error {
				return deadletter.Redeliver(ctx, letters, client, id)
			}
		}
		stopAdmin, err := serveAdmin(cfg.AdminAddr, metrics.NewAdminRouter(adminOpts))
		if err != nil {
			return err
		}
		defer stopAdmin()
	}

	if err := w.Start(ctx); err != nil {
		return err
	}
	log.Printf("worker connected to %s", cfg.SidecarAddr)

	select {
	case <-ctx.Done():
		if err := w.Stop(); err != nil {
			return err
		}
		return nil
	case <-w.Done():
		_ = w.Stop()
		return ErrStreamClosed
	}
}

// serveAdmin starts the admin HTTP server and returns a function that shuts
// it down.
func serveAdmin(addr string, handler http.Handler) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen admin on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("admin server: %v", err)
		}
	}()
	log.Printf("admin server listening on %s", lis.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
