package bridge

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
	"github.com/drblury/rxflow/internal/runtime/jsoncodec"
)

const (
	ContentTypeJSON  = "application/json"
	ContentTypeProto = "application/protojson"
)

// Codec converts stream messages to message payloads and back.
type Codec interface {
	ContentType() string
	Encode(v any) ([]byte, error)
	Decode(payload []byte) (any, error)
}

// JSONCodec encodes any value as JSON and decodes payloads into a fresh T.
// JSONCodec[any] yields the generic map, slice and float64 shapes.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) ContentType() string { return ContentTypeJSON }

func (JSONCodec[T]) Encode(v any) ([]byte, error) {
	payload, err := jsoncodec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
	}
	return payload, nil
}

func (JSONCodec[T]) Decode(payload []byte) (any, error) {
	var v T
	if err := jsoncodec.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON payload: %w", err)
	}
	return v, nil
}

var protoJSONMarshalOptions = protojson.MarshalOptions{
	EmitUnpopulated: true,
}

// ProtoCodec carries proto messages as protojson. Decode builds a new T, so
// T must be a generated message pointer type.
type ProtoCodec[T proto.Message] struct{}

func (ProtoCodec[T]) ContentType() string { return ContentTypeProto }

func (ProtoCodec[T]) Encode(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok || msg == nil {
		return nil, fmt.Errorf("%w: %T is not a proto message", errspkg.ErrCodecValue, v)
	}
	payload, err := protoJSONMarshalOptions.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return payload, nil
}

func (ProtoCodec[T]) Decode(payload []byte) (any, error) {
	var zero T
	msg := zero.ProtoReflect().Type().New().Interface()
	if err := protojson.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", proto.MessageName(msg), err)
	}
	return msg.(T), nil
}
