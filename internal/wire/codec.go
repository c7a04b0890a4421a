// Package wire encodes the durable-task sidecar protocol messages in the
// protobuf binary format used by orchestrator_service.proto.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"

	"github.com/petrijr/taskhub/pkg/api"
)

// Codec is a gRPC codec for the protocol messages in pkg/api. Generated
// protobuf messages (emptypb.Empty and friends) go through proto.Marshal.
//
// It reports itself as "proto" so the content-subtype on the wire stays
// application/grpc+proto.
type Codec struct{}

var _ encoding.Codec = Codec{}

// ErrInvalidUTF8 is returned by Marshal for string fields that are not
// valid UTF-8.
var ErrInvalidUTF8 = errors.New("string field contains invalid UTF-8")

func (Codec) Name() string { return "proto" }

func (Codec) Marshal(v any) ([]byte, error) {
	return Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return Unmarshal(data, v)
}

// Marshal encodes a protocol message.
func Marshal(v any) ([]byte, error) {
	var e encoder
	switch m := v.(type) {
	case proto.Message:
		return proto.Marshal(m)
	case *api.WorkItem:
		encodeWorkItem(&e, m)
	case *api.GetWorkItemsRequest:
		encodeGetWorkItemsRequest(&e, m)
	case *api.OrchestratorRequest:
		encodeOrchestratorRequest(&e, m)
	case *api.OrchestratorResponse:
		encodeOrchestratorResponse(&e, m)
	case *api.ActivityRequest:
		encodeActivityRequest(&e, m)
	case *api.ActivityResponse:
		encodeActivityResponse(&e, m)
	case *api.FailureDetails:
		encodeFailureDetails(&e, m)
	case *api.HistoryEvent:
		encodeHistoryEvent(&e, m)
	case *api.OrchestratorAction:
		encodeAction(&e, m)
	default:
		return nil, fmt.Errorf("wire: cannot marshal %T", v)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.b, nil
}

// Unmarshal decodes data into v, which must be a pointer to one of the
// protocol message types or a generated proto.Message.
func Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case proto.Message:
		return proto.Unmarshal(data, m)
	case *api.WorkItem:
		return decodeInto(data, m, decodeWorkItem)
	case *api.GetWorkItemsRequest:
		return decodeInto(data, m, decodeGetWorkItemsRequest)
	case *api.OrchestratorRequest:
		return decodeInto(data, m, decodeOrchestratorRequest)
	case *api.OrchestratorResponse:
		return decodeInto(data, m, decodeOrchestratorResponse)
	case *api.ActivityRequest:
		return decodeInto(data, m, decodeActivityRequest)
	case *api.ActivityResponse:
		return decodeInto(data, m, decodeActivityResponse)
	case *api.FailureDetails:
		return decodeInto(data, m, decodeFailureDetails)
	case *api.HistoryEvent:
		return decodeInto(data, m, decodeHistoryEvent)
	case *api.OrchestratorAction:
		return decodeInto(data, m, decodeAction)
	default:
		return fmt.Errorf("wire: cannot unmarshal into %T", v)
	}
}

func decodeInto[T any](data []byte, dst *T, decode func([]byte) (*T, error)) error {
	v, err := decode(data)
	if err != nil {
		return err
	}
	*dst = *v
	return nil
}
