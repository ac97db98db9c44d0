package xevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Codec is the Strategy for converting payloads between shapes: decoding
// loosely typed payloads into topic types, reading fields for schemas, and
// serialising history for external recorders.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// JSONCodec is the default JSON implementation.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
func (JSONCodec) Name() string                    { return "json" }

// CodecFactory constructs codecs via Factory pattern.
type CodecFactory func() Codec

var (
	codecRegistryMu sync.RWMutex
	codecRegistry   = map[string]CodecFactory{
		"json": func() Codec { return JSONCodec{} },
	}
)

// RegisterCodec registers a codec factory by name.
func RegisterCodec(name string, factory CodecFactory) error {
	if name == "" {
		return errors.New("codec name must not be empty")
	}
	if factory == nil {
		return errors.New("codec factory must not be nil")
	}
	codecRegistryMu.Lock()
	codecRegistry[name] = factory
	codecRegistryMu.Unlock()
	return nil
}

// NewCodec constructs a codec by name or returns an error.
func NewCodec(name string) (Codec, error) {
	codecRegistryMu.RLock()
	f, ok := codecRegistry[name]
	codecRegistryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("codec %q not registered", name)
	}
	return f(), nil
}

// Convert re-shapes v into T through the codec. A v that already is a T is
// returned as is; a nil v yields the zero T.
func Convert[T any](c Codec, v any) (T, error) {
	var out T
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	if v == nil {
		return out, nil
	}
	data, err := c.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("%w: encode %T: %v", ErrPayloadType, v, err)
	}
	if err := c.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: decode %T into %T: %v", ErrPayloadType, v, out, err)
	}
	return out, nil
}

// DecodePayload converts a handler payload into T using the Codec found in
// ctx. Falls back to the default "json" codec if none was injected.
func DecodePayload[T any](ctx context.Context, payload any) (T, error) {
	if c, ok := CodecFromContext(ctx); ok {
		return Convert[T](c, payload)
	}
	return Convert[T](JSONCodec{}, payload)
}
