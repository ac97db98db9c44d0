package xevents

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Schema checks a payload before dispatch. A non-nil error rejects the
// emission; no handler runs.
type Schema interface {
	Validate(payload any) error
}

// SchemaFunc is an Adapter that lets a plain function satisfy Schema.
type SchemaFunc func(payload any) error

func (f SchemaFunc) Validate(payload any) error { return f(payload) }

// Permissive accepts every payload. Catalog entries without a concrete check
// use it so that the event is known to the bus but never rejected.
func Permissive() Schema {
	return SchemaFunc(func(any) error { return nil })
}

// lifecycleActions are the suffixes of the entity lifecycle event family.
var lifecycleActions = []string{"created", "updated", "deleted", "selected"}

// IsEntityLifecycleEvent reports whether name has the form
// "<entity>:created|updated|deleted|selected".
func IsEntityLifecycleEvent(name string) bool {
	i := strings.LastIndexByte(name, ':')
	if i <= 0 {
		return false
	}
	return slices.Contains(lifecycleActions, name[i+1:])
}

// EntityLifecycleSchema is the built-in check for lifecycle events: the
// entity identity must be present.
func EntityLifecycleSchema(extra ...string) Schema {
	return RequireFields(append([]string{"id"}, extra...)...)
}

// RequireFields rejects payloads missing any of fields or carrying an empty
// value for them. Maps are inspected directly; other values are read through
// their JSON form, so struct payloads are checked by json tag.
func RequireFields(fields ...string) Schema {
	return requiredFields(slices.Clone(fields))
}

type requiredFields []string

func (r requiredFields) Validate(payload any) error {
	obj, err := payloadFields(payload)
	if err != nil {
		return &ValidationError{Reason: err.Error(), Err: err}
	}
	for _, f := range r {
		v, ok := obj[f]
		if !ok || v == nil {
			return &ValidationError{Field: f, Reason: "required field missing"}
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return &ValidationError{Field: f, Reason: "required field empty"}
		}
	}
	return nil
}

var errNotAnObject = errors.New("payload is not an object")

func payloadFields(payload any) (map[string]any, error) {
	switch p := payload.(type) {
	case nil:
		return nil, errors.New("payload is nil")
	case map[string]any:
		return p, nil
	case map[string]string:
		out := make(map[string]any, len(p))
		for k, v := range p {
			out[k] = v
		}
		return out, nil
	}
	obj, err := Convert[map[string]any](JSONCodec{}, payload)
	if err != nil || obj == nil {
		return nil, fmt.Errorf("%w (%T)", errNotAnObject, payload)
	}
	return obj, nil
}
