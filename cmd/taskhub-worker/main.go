// Package main starts a sidecar worker that serves the built-in Echo
// orchestrator and activity. It is useful for checking a sidecar
// deployment end to end.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	workercmd "github.com/petrijr/taskhub/internal/cmd/worker"
	"github.com/petrijr/taskhub/pkg/api"
	"github.com/petrijr/taskhub/pkg/worker"
)

func main() {
	cfg, err := workercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[TASKHUB-WORKER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := workercmd.Run(ctx, cfg, register); err != nil {
		if errors.Is(err, workercmd.ErrStreamClosed) {
			log.Printf("%v, exiting", err)
			os.Exit(2)
		}
		log.Fatalf("failed to run worker: %v", err)
	}
}

func register(w *worker.Worker) error {
	if _, err := w.AddNamedActivity("Echo", echoActivity); err != nil {
		return err
	}
	_, err := w.AddNamedOrchestrator("Echo", echoOrchestrator)
	return err
}

func echoActivity(_ context.Context, actx *api.ActivityContext) (any, error) {
	var in any
	if err := actx.GetInput(&in); err != nil {
		return nil, err
	}
	return in, nil
}

func echoOrchestrator(_ context.Context, octx *api.OrchestrationContext) (any, error) {
	var in any
	if err := octx.GetInput(&in); err != nil {
		return nil, err
	}
	return in, nil
}
