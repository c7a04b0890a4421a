// Package failure turns Go errors into wire-transmissible failure details.
package failure

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/status"

	"github.com/petrijr/taskhub/pkg/api"
)

// UnknownErrorType is reported when an error cannot be characterized.
const UnknownErrorType = "UnknownError"

// maxDepth bounds how many wrapped causes are turned into inner failures.
const maxDepth = 8

type stackTracer interface {
	StackTrace() string
}

// FromError describes err as FailureDetails. It never panics: errors whose
// methods panic are reported as UnknownErrorType with whatever message
// could be recovered. A nil error yields nil.
func FromError(err error) *api.FailureDetails {
	if err == nil {
		return nil
	}
	return fromError(err, 0)
}

func fromError(err error, depth int) (details *api.FailureDetails) {
	defer func() {
		if r := recover(); r != nil {
			details = &api.FailureDetails{
				ErrorType:    UnknownErrorType,
				ErrorMessage: validUTF8(safeMessage(err, r)),
			}
		}
	}()

	details = &api.FailureDetails{
		ErrorType:      validUTF8(errorType(err)),
		ErrorMessage:   validUTF8(err.Error()),
		IsNonRetriable: api.IsNonRetriable(err),
	}
	if st, ok := err.(stackTracer); ok {
		if s := validUTF8(st.StackTrace()); s != "" {
			details.StackTrace = &s
		}
	}
	if inner := unwrap(err); inner != nil && depth+1 < maxDepth {
		details.InnerFailure = fromError(inner, depth+1)
	}
	return details
}

// unwrap returns the wrapped cause of err. For errors joining several
// causes it returns the first non-nil one.
func unwrap(err error) error {
	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			if inner != nil {
				return inner
			}
		}
	}
	return nil
}

// validUTF8 replaces invalid byte sequences, which proto3 string fields
// cannot carry.
func validUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

func errorType(err error) string {
	if appErr, ok := err.(*api.ApplicationError); ok && appErr.Type != "" {
		return appErr.Type
	}
	if se, ok := err.(interface{ GRPCStatus() *status.Status }); ok {
		return "grpc." + se.GRPCStatus().Code().String()
	}
	return strings.TrimLeft(fmt.Sprintf("%T", err), "*")
}

// safeMessage recovers some text from an error whose Error method panicked.
func safeMessage(err error, recovered any) string {
	msg := fmt.Sprintf("%v", recovered)
	func() {
		defer func() { _ = recover() }()
		msg = err.Error()
	}()
	return msg
}
