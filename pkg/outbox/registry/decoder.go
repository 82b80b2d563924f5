package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
)

// ErrNoDecoder means the consumer does not understand this event type or
// payload version.
var ErrNoDecoder = errors.New("no decoder registered")

// Decoder turns an envelope's data field into a typed payload.
type Decoder func(data json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, payload version) to a Decoder. It is
// filled once at startup and read-only afterwards.
type DecoderRegistry struct {
	decoders map[decoderKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]Decoder{}}
}

// Register panics on a duplicate key; that is a wiring bug.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode Decoder) *DecoderRegistry {
	key := decoderKey{eventType: eventType, version: version}
	if _, dup := r.decoders[key]; dup {
		panic(fmt.Sprintf("decoder for %s@v%d registered twice", eventType, version))
	}
	r.decoders[key] = decode
	return r
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	decode, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	if !ok {
		return nil, fmt.Errorf("%w: %s@v%d", ErrNoDecoder, eventType, version)
	}
	return decode(data)
}

// JSON decodes into a fresh *T.
func JSON[T any]() Decoder {
	return func(data json.RawMessage) (any, error) {
		target := new(T)
		if err := json.Unmarshal(data, target); err != nil {
			return nil, err
		}
		return target, nil
	}
}
