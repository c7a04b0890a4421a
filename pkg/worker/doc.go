// Package worker connects to a durable-task sidecar and executes the
// orchestrator and activity work items it streams.
//
// A Worker owns one gRPC stream at a time. Start performs a Hello round
// trip, opens GetWorkItems and starts a dispatch loop; Stop cancels the
// stream. Orchestrators and activities are registered before the first
// Start and cannot be added afterwards.
//
// # Dispatch
//
// Each work item is handled on its own goroutine, so a slow activity never
// delays the receipt of the next item. Two controls shape how many run:
//
//   - Config.MaxConcurrentWorkItems caps the number of handlers in flight.
//     When the cap is reached the dispatch loop stops reading the stream
//     until a handler finishes.
//   - Orchestrator requests for the same instance run one at a time, in
//     the order they arrived. Config.DisableInstanceSerialization turns
//     this off.
//
// Stop does not cancel handlers that are already running; they finish and
// report their completions on their own.
//
// # Failures
//
// Errors from the orchestration executor are reported to the sidecar as a
// FAILED CompleteOrchestration action with id -1. Activity errors are
// reported as FailureDetails on the ActivityResponse. Panics in either are
// recovered and reported the same way.
//
// Completion calls that fail are retried according to Config.DeliveryRetry
// (one attempt by default). What remains undelivered is passed to
// Config.OnDeliveryFailure, for example a dead-letter recorder, or logged.
//
// # Observability
//
// Every received item, execution and delivery outcome is reported to the
// configured api.Observer. Handlers run inside OpenTelemetry spans named
// "taskhub.orchestrator" and "taskhub.activity".
package worker
