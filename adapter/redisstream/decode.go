package redisstream

import (
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trickstertwo/xevents"
)

// Entry is one emission read back from the history stream.
type Entry struct {
	// StreamID is the Redis-assigned entry id.
	StreamID    string
	EventName   string
	Payload     any
	Raw         []byte
	EmittedAt   time.Time
	Subscribers int
}

// encodeEntry flattens an emission into stream values.
func encodeEntry(c xevents.Codec, e xevents.BusEvent) (map[string]any, error) {
	data, err := c.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload of %q: %w", e.EventName, err)
	}
	return map[string]any{
		fieldName:        e.EventName,
		fieldPayload:     data, // raw bytes, binary-safe
		fieldEmittedAt:   e.Timestamp.UnixNano(),
		fieldSubscribers: e.Subscribers,
		fieldCodec:       c.Name(),
	}, nil
}

// decodeEntry reconstructs an Entry from a stream message. A payload the
// codec cannot read is left nil with Raw still populated.
func decodeEntry(c xevents.Codec, msg redis.XMessage) Entry {
	e := Entry{StreamID: msg.ID}

	if v, ok := msg.Values[fieldName]; ok {
		e.EventName = asString(v)
	}

	if v, ok := msg.Values[fieldPayload]; ok {
		switch p := v.(type) {
		case []byte:
			e.Raw = p
		case string:
			e.Raw = []byte(p)
		}
	}
	if len(e.Raw) > 0 {
		var payload any
		if err := c.Unmarshal(e.Raw, &payload); err == nil {
			e.Payload = payload
		}
	}

	if v := msg.Values[fieldEmittedAt]; v != nil {
		if ns, ok := toInt64(v); ok && ns > 0 {
			e.EmittedAt = time.Unix(0, ns)
		}
	}
	if v := msg.Values[fieldSubscribers]; v != nil {
		if n, ok := toInt64(v); ok {
			e.Subscribers = int(n)
		}
	}

	return e
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		if n == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
		// scientific notation
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return int64(f), true
		}
	case []byte:
		return toInt64(string(n))
	}
	return 0, false
}
