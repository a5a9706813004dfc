package repository

import (
	"errors"
	"fmt"
)

// ErrorKind tags engine errors so handlers can map them to HTTP statuses
// without parsing message text. User-facing wording stays in the handlers.
type ErrorKind string

const (
	KindUnauthorized           ErrorKind = "unauthorized"
	KindValidation             ErrorKind = "validation"
	KindNotFound               ErrorKind = "not_found"
	KindInvalidStateTransition ErrorKind = "invalid_state_transition"
	KindEmptyResultSet         ErrorKind = "empty_result_set"
)

// EngineError is the error type returned by the pricing engine core.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func NewEngineError(kind ErrorKind, message string) *EngineError {
	return &EngineError{Kind: kind, Message: message}
}

func WrapEngineError(kind ErrorKind, message string, err error) *EngineError {
	return &EngineError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the ErrorKind of err if it is (or wraps) an EngineError,
// and "" otherwise.
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// IsKind reports whether err carries the given ErrorKind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
