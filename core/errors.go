package core

import "github.com/pkg/errors"

// FieldError ties a validation message to one struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is rendered as a 400 by the API error handler, either as
// a plain message or as a per-field breakdown.
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

// NewShutdownError signals the server should stop taking traffic; the API
// error handler triggers a graceful shutdown when it sees one.
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
