// Package apperror defines the error kinds surfaced by the reservation
// service.  Each kind is a sentinel matched with errors.Is, so that the
// HTTP layer can map outcomes to status codes without inspecting
// messages.  Errors built by this package carry a human-readable message
// and, optionally, the underlying cause.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or illegal input such as inverted or
	// past dates.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing reservation, room or customer.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a date-range overlap with an active reservation.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState marks an illegal lifecycle transition.
	ErrInvalidState = errors.New("invalid state")
	// ErrServiceUnavailable marks a downstream dependency whose circuit is
	// open or whose call failed.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Error is a classified failure.  Kind is one of the sentinels above.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches the error's kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Cause }

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation returns an ErrValidation error.
func Validation(format string, args ...any) error { return newf(ErrValidation, format, args...) }

// NotFound returns an ErrNotFound error.
func NotFound(format string, args ...any) error { return newf(ErrNotFound, format, args...) }

// Conflict returns an ErrConflict error.
func Conflict(format string, args ...any) error { return newf(ErrConflict, format, args...) }

// InvalidState returns an ErrInvalidState error.
func InvalidState(format string, args ...any) error { return newf(ErrInvalidState, format, args...) }

// Unavailable returns an ErrServiceUnavailable error naming the dependency.
func Unavailable(service string, cause error) error {
	return &Error{
		Kind:    ErrServiceUnavailable,
		Message: service + " is not available, try again later",
		Cause:   cause,
	}
}

// Message returns the human-readable part of a classified error, or the
// full error text for anything else.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
