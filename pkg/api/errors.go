package api

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalState is returned for lifecycle violations: registering after
	// start, starting twice, or stopping a worker that is not running.
	ErrIllegalState = errors.New("illegal worker state")

	// ErrMalformedRequest is returned when a work item lacks a field the
	// protocol requires, such as an activity request without an instance id.
	ErrMalformedRequest = errors.New("malformed work item")

	ErrInvalidName         = errors.New("invalid function name")
	ErrDuplicateName       = errors.New("function already registered")
	ErrUnknownOrchestrator = errors.New("orchestrator not registered")
	ErrUnknownActivity     = errors.New("activity not registered")
)

// ConnectionStage describes where connecting to the sidecar failed.
type ConnectionStage string

const (
	ConnectionStageHello  ConnectionStage = "hello"
	ConnectionStageStream ConnectionStage = "stream"
)

// ConnectionError wraps a failure to reach the sidecar during Start.
type ConnectionError struct {
	Stage ConnectionStage
	Addr  string
	Err   error
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "sidecar connection error"
	}
	if e.Addr == "" {
		return fmt.Sprintf("sidecar %s error: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("sidecar %s error (%s): %v", e.Stage, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PanicError is produced when an orchestrator or activity panics.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// StackTrace returns the goroutine stack captured at the panic site.
func (e *PanicError) StackTrace() string {
	return e.Stack
}

// ApplicationError lets orchestrators and activities choose how their
// failure is classified on the wire.
type ApplicationError struct {
	Type         string
	Message      string
	NonRetriable bool
	Cause        error
}

// NewApplicationError returns an ApplicationError with the given type and message.
func NewApplicationError(errorType, message string) *ApplicationError {
	return &ApplicationError{Type: errorType, Message: message}
}

func (e *ApplicationError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ApplicationError) Unwrap() error {
	return e.Cause
}

// IsNonRetriable reports whether err is marked as not worth retrying.
func IsNonRetriable(err error) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr) && appErr.NonRetriable
}
