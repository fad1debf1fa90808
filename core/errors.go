package core

import (
	"context"
	"net"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// IsRetryable reports whether err looks like a transient network/store failure
// that may succeed on retry. Validation and constraint errors are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	cause := errors.Cause(err)
	if cause == context.DeadlineExceeded {
		return true
	}
	var netErr net.Error
	if errors.As(cause, &netErr) {
		return true
	}
	return false
}
