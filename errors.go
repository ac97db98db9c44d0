package xevents

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidationRejected matches every *ValidationError.
	ErrValidationRejected = errors.New("xevents: payload rejected by schema")
	// ErrHandlerPanic matches every *PanicError.
	ErrHandlerPanic = errors.New("xevents: handler panicked")
	// ErrWaitTimeout matches every *WaitTimeoutError.
	ErrWaitTimeout = errors.New("xevents: wait timed out")
	// ErrBusDestroyed is returned by blocking calls made after Destroy.
	ErrBusDestroyed = errors.New("xevents: bus destroyed")
	// ErrPayloadType is returned when a payload cannot be converted to a topic's type.
	ErrPayloadType = errors.New("xevents: payload type mismatch")

	ErrObserverPoolShutdownTimeout = errors.New("xevents: observer pool shutdown timeout")
)

// ValidationError reports a payload that failed the schema registered for its event.
type ValidationError struct {
	EventName string
	Field     string
	Reason    string
	Err       error
}

func (e *ValidationError) Error() string {
	msg := "xevents: invalid payload"
	if e.EventName != "" {
		msg += " for " + e.EventName
	}
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidationRejected }

// HandlerError wraps an error returned by a subscribed handler.
type HandlerError struct {
	EventName      string
	SubscriptionID string
	Err            error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("xevents: handler %s for %s failed: %v", e.SubscriptionID, e.EventName, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// PanicError carries the value a handler panicked with.
type PanicError struct {
	EventName      string
	SubscriptionID string
	Value          any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("xevents: handler %s for %s panicked: %v", e.SubscriptionID, e.EventName, e.Value)
}

func (e *PanicError) Is(target error) bool { return target == ErrHandlerPanic }

// WaitTimeoutError is returned by WaitFor when no event arrives in time.
type WaitTimeoutError struct {
	EventName string
	Timeout   time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("xevents: timed out after %s waiting for %q", e.Timeout, e.EventName)
}

func (e *WaitTimeoutError) Is(target error) bool { return target == ErrWaitTimeout }
