package wire

import (
	"fmt"
	"time"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// field is one decoded tag/value pair of a protobuf message.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// forEachField walks the top-level fields of an encoded message.
func forEachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			f.varint = v
			n = m
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			f.bytes = v
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) expect(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("wire: field %d has wire type %d, want %d", f.num, f.typ, typ)
	}
	return nil
}

func (f field) str() (string, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return "", err
	}
	return string(f.bytes), nil
}

func (f field) int32() (int32, error) {
	if err := f.expect(protowire.VarintType); err != nil {
		return 0, err
	}
	return int32(f.varint), nil
}

func (f field) bool() (bool, error) {
	if err := f.expect(protowire.VarintType); err != nil {
		return false, err
	}
	return protowire.DecodeBool(f.varint), nil
}

func (f field) message() ([]byte, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return nil, err
	}
	return f.bytes, nil
}

func (f field) stringValue() (*string, error) {
	b, err := f.message()
	if err != nil {
		return nil, err
	}
	var v wrapperspb.StringValue
	if err := proto.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("wire: field %d: %w", f.num, err)
	}
	s := v.GetValue()
	return &s, nil
}

func (f field) timestamp() (time.Time, error) {
	b, err := f.message()
	if err != nil {
		return time.Time{}, err
	}
	var ts timestamppb.Timestamp
	if err := proto.Unmarshal(b, &ts); err != nil {
		return time.Time{}, fmt.Errorf("wire: field %d: %w", f.num, err)
	}
	return ts.AsTime(), nil
}

// encoder appends protobuf fields to a buffer and keeps the first error.
type encoder struct {
	b   []byte
	err error
}

func (e *encoder) string(num protowire.Number, s string) {
	if s == "" || e.err != nil {
		return
	}
	if !utf8.ValidString(s) {
		e.err = fmt.Errorf("wire: field %d: %w", num, ErrInvalidUTF8)
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, s)
}

func (e *encoder) int32(num protowire.Number, v int32) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	// Negative values are sign-extended to ten bytes, as protoc does.
	e.b = protowire.AppendVarint(e.b, uint64(int64(v)))
}

func (e *encoder) bool(num protowire.Number, v bool) {
	if !v {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, protowire.EncodeBool(v))
}

func (e *encoder) bytes(num protowire.Number, msg []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, msg)
}

// message encodes a nested message produced by fn. It is always emitted,
// even when empty, so that oneof members without fields survive a round trip.
func (e *encoder) message(num protowire.Number, fn func(*encoder)) {
	if e.err != nil {
		return
	}
	var sub encoder
	fn(&sub)
	if sub.err != nil {
		e.err = sub.err
		return
	}
	e.bytes(num, sub.b)
}

func (e *encoder) proto(num protowire.Number, m proto.Message) {
	if e.err != nil {
		return
	}
	msg, err := proto.Marshal(m)
	if err != nil {
		e.err = fmt.Errorf("wire: field %d: %w", num, err)
		return
	}
	e.bytes(num, msg)
}

func (e *encoder) stringValue(num protowire.Number, s *string) {
	if s == nil {
		return
	}
	e.proto(num, wrapperspb.String(*s))
}

func (e *encoder) timestamp(num protowire.Number, t time.Time) {
	if t.IsZero() {
		return
	}
	e.proto(num, timestamppb.New(t))
}
