// Package taskhub lets Go programs act as workers for a durable-task
// sidecar.
//
// The sidecar owns orchestration state, history and scheduling. A taskhub
// worker connects to it over gRPC, pulls orchestrator and activity work
// items from a single stream, runs the matching Go functions, and reports
// each result back with a completion call. The application only supplies
// the functions.
//
// # Core Concepts
//
//  1. Client
//  2. Worker
//  3. Orchestrators and activities
//  4. Delivery retry and dead letters
//
// # Client
//
// Dial opens a gRPC connection to the sidecar (localhost:4001 by default)
// and NewClient wraps it in the TaskHubSidecarService protocol. The client
// is what a Worker talks to; tests can substitute their own implementation.
//
// # Worker
//
// A Worker owns one work-item stream at a time:
//
//	conn, err := taskhub.Dial("localhost:4001")
//	...
//	w := taskhub.NewWorker(taskhub.NewClient(conn))
//	w.AddActivity(SayHello)
//	if err := w.Start(ctx); err != nil { ... }
//	defer w.Stop()
//
// Start checks the sidecar with Hello, opens the stream and returns. Work
// items are then handled concurrently in the background. Stop closes the
// stream; handlers already running still finish and report.
//
// Functions must be registered before the first Start. Registering after
// that fails with ErrIllegalState, as do starting twice and stopping a
// worker that is not running.
//
// # Orchestrators and activities
//
// An Activity receives its JSON input through ActivityContext and returns a
// value that is JSON encoded for the sidecar. An Orchestrator is run once
// per orchestration turn by the default executor, which completes the
// orchestration with the function's result. Programs that need full
// durable replay plug in their own OrchestrationExecutor through
// WorkerConfig.
//
// Errors are reported to the sidecar as FailureDetails. Use
// NewApplicationError to choose the error type name the sidecar sees.
//
// # Delivery retry and dead letters
//
// Completion calls are attempted once by default. WorkerConfig.DeliveryRetry
// (see Retry) allows more attempts with backoff for transient gRPC errors.
// Completions that still cannot be delivered go to
// WorkerConfig.OnDeliveryFailure. NewDeadLetterRecorder saves them in a
// DeadLetterStore (memory, SQLite, Postgres, Redis or MongoDB) so they can
// be inspected and sent again with RedeliverDeadLetter.
//
// The taskhub-worker command wires all of this together with environment
// configuration, Prometheus metrics and OpenTelemetry tracing.
package taskhub
