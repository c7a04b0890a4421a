package failure

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/petrijr/taskhub/internal/wire"
	"github.com/petrijr/taskhub/pkg/api"
)

type panickyError struct{}

func (*panickyError) Error() string { panic("no message for you") }

func TestFromError_Nil(t *testing.T) {
	require.Nil(t, FromError(nil))
}

func TestFromError_PlainError(t *testing.T) {
	d := FromError(errors.New("boom"))
	require.Equal(t, "errors.errorString", d.ErrorType)
	require.Equal(t, "boom", d.ErrorMessage)
	require.Nil(t, d.StackTrace)
	require.Nil(t, d.InnerFailure)
	require.False(t, d.IsNonRetriable)
}

func TestFromError_WrappedErrorsBecomeInnerFailures(t *testing.T) {
	root := errors.New("disk full")
	err := fmt.Errorf("save order: %w", root)

	d := FromError(err)
	require.Equal(t, "fmt.wrapError", d.ErrorType)
	require.Equal(t, "save order: disk full", d.ErrorMessage)
	require.NotNil(t, d.InnerFailure)
	require.Equal(t, "disk full", d.InnerFailure.ErrorMessage)
	require.Nil(t, d.InnerFailure.InnerFailure)
}

func TestFromError_InnerFailureDepthIsBounded(t *testing.T) {
	err := errors.New("root")
	for i := 0; i < 20; i++ {
		err = fmt.Errorf("layer %d: %w", i, err)
	}

	depth := 0
	for d := FromError(err); d != nil; d = d.InnerFailure {
		depth++
	}
	require.Equal(t, maxDepth, depth)
}

func TestFromError_ApplicationError(t *testing.T) {
	appErr := api.NewApplicationError("Validation", "quantity must be positive")
	appErr.NonRetriable = true

	d := FromError(fmt.Errorf("activity failed: %w", appErr))
	require.True(t, d.IsNonRetriable)
	require.Equal(t, "Validation", d.InnerFailure.ErrorType)
	require.Equal(t, "quantity must be positive", d.InnerFailure.ErrorMessage)
}

func TestFromError_GRPCStatus(t *testing.T) {
	d := FromError(status.Error(codes.NotFound, "no such instance"))
	require.Equal(t, "grpc.NotFound", d.ErrorType)
	require.Contains(t, d.ErrorMessage, "no such instance")
}

func TestFromError_PanicCarriesStack(t *testing.T) {
	d := FromError(&api.PanicError{Value: "nil map", Stack: "goroutine 7 [running]:"})
	require.Equal(t, "api.PanicError", d.ErrorType)
	require.Equal(t, "panic: nil map", d.ErrorMessage)
	require.NotNil(t, d.StackTrace)
	require.True(t, strings.HasPrefix(*d.StackTrace, "goroutine 7"))
}

func TestFromError_NeverPanics(t *testing.T) {
	var d *api.FailureDetails
	require.NotPanics(t, func() { d = FromError(&panickyError{}) })
	require.Equal(t, UnknownErrorType, d.ErrorType)
	require.Contains(t, d.ErrorMessage, "no message for you")
}

func TestFromError_JoinedErrorsUseFirstCause(t *testing.T) {
	err := errors.Join(nil, errors.New("first"), errors.New("second"))

	d := FromError(err)
	require.Equal(t, "first\nsecond", d.ErrorMessage)
	require.NotNil(t, d.InnerFailure)
	require.Equal(t, "first", d.InnerFailure.ErrorMessage)
}

func TestFromError_InvalidUTF8IsReplaced(t *testing.T) {
	stack := "goroutine 1 \xc3\x28"
	err := fmt.Errorf("wrap: %w", &api.PanicError{Value: "read \xff\xfe failed", Stack: stack})

	d := FromError(err)
	require.Equal(t, "wrap: panic: read \uFFFD failed", d.ErrorMessage)
	require.Equal(t, "panic: read \uFFFD failed", d.InnerFailure.ErrorMessage)
	require.True(t, utf8.ValidString(*d.InnerFailure.StackTrace))

	_, marshalErr := wire.Marshal(d)
	require.NoError(t, marshalErr)
	_, marshalErr = wire.Marshal(api.NewCompleteOrchestrationAction(-1, api.OrchestrationStatusFailed, nil, d))
	require.NoError(t, marshalErr)
}
