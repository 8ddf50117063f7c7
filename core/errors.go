package core

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrorKind classifies domain errors so that the API layer can translate them.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindForbidden       ErrorKind = "forbidden"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindConflict        ErrorKind = "conflict"
	KindCapacity        ErrorKind = "capacity"
	KindInternal        ErrorKind = "internal"
)

// Error is a domain error of a known kind. Packages declare them as sentinels.
type Error struct {
	Kind    ErrorKind
	Message string
}

func NewError(kind ErrorKind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func (err *Error) Error() string {
	return err.Message
}

// KindOf returns the kind of err, looking through wrapped errors.
// Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch e := errors.Cause(err).(type) {
	case *Error:
		return e.Kind
	case *ValidationError, validator.ValidationErrors:
		return KindValidation
	}
	return KindInternal
}

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
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "invalid input"
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
