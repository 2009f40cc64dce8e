package core

import "github.com/pkg/errors"

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

// NotFoundError is returned when a looked up resource does not exist.
// Packages declare their own sentinel: `ErrNotFound = core.NewNotFoundError("user")`.
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

// TransientError wraps a failed I/O call to an external collaborator that may succeed if retried.
type TransientError struct {
	Op  string
	Err error
}

func NewTransientError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

func (err TransientError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err TransientError) Unwrap() error { return err.Err }

// MalformedError reports data that could not be parsed, e.g. a bad score code or spreadsheet row.
type MalformedError struct {
	Input string
	Err   error
}

func NewMalformedError(input string, err error) error {
	return &MalformedError{Input: input, Err: err}
}

func (err MalformedError) Error() string {
	if err.Input == "" {
		return err.Err.Error()
	}
	return err.Err.Error() + ": " + err.Input
}

func (err MalformedError) Unwrap() error { return err.Err }

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}

func IsMalformed(err error) bool {
	var target *MalformedError
	return errors.As(err, &target)
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
