// Package api contains the types shared by the taskhub worker, its
// executors and its observers.
//
// Most users interact with the higher-level taskhub package, which
// re-exports selected types and helpers from this package. The api package
// is intended for custom executors, observers and integrations.
//
// # Protocol
//
// WorkItem, OrchestratorRequest, ActivityRequest and their responses mirror
// the messages of the durable-task sidecar protocol. Optional protocol
// strings are *string so that "absent" and "empty" stay distinct;
// OptionalString builds one. History events and orchestrator actions are
// structs with one non-nil variant field, the way a protobuf oneof is laid
// out. History variants the worker does not model are kept as RawEvent so
// executors still see the whole history in order.
//
// # Functions and executors
//
// Activity and Orchestrator are the function types users register.
// ActivityExecutor and OrchestrationExecutor turn a work item into a result
// or a list of actions; the worker ships default implementations of both.
//
// # Failures
//
// Executor errors become FailureDetails. ApplicationError sets the error
// type explicitly and can mark a failure as non-retriable. PanicError wraps
// a recovered panic with its stack trace.
//
// # Delivery
//
// Every handled work item produces a DeliveryResult. Completions that could
// not be delivered after RetryPolicy is exhausted are passed to a
// DeliveryFailureHandler as a DeliveryFailure, and can be persisted as a
// DeadLetter.
//
// # Observability
//
// Observer receives a callback for each received item, execution, delivery
// and stream closure. LoggingObserver writes them with log/slog,
// BasicMetrics counts them, and CompositeObserver fans out to several.
package api
