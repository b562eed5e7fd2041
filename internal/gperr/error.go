package gperr

import (
	"errors"
	"fmt"
)

// Error is an error with a subject and optional nested errors.
//
// The zero value of Error (nil) means no error.
type Error interface {
	error
	Unwrap() []error
	Is(other error) bool
	Subject(subject string) Error
	With(extra error) Error
	Withf(format string, args ...any) Error
}

type errStr string

func (err errStr) Error() string {
	return string(err)
}

func newError(message string) error {
	return errStr(message)
}

// New returns a new Error with the given message and no extras.
func New(message string) Error {
	return &nestedError{Err: newError(message)}
}

// Wrap converts err to an Error, returning nil for a nil err.
func Wrap(err error, message ...string) Error {
	if err == nil {
		return nil
	}
	if len(message) == 0 || message[0] == "" {
		return wrap(err)
	}
	return &nestedError{Err: fmt.Errorf("%s: %w", message[0], err)}
}

func wrap(err error) Error {
	if err == nil {
		return nil
	}
	var gpErr Error
	if errors.As(err, &gpErr) {
		return gpErr
	}
	return &nestedError{Err: err}
}

type withSubject struct {
	subject string
	err     error
}

func (err *withSubject) Error() string {
	return err.subject + ": " + err.err.Error()
}

func (err *withSubject) Unwrap() error {
	return err.err
}

// PrependSubject prefixes err with subject, "subject: err".
func PrependSubject(subject string, err error) error {
	if err == nil {
		return nil
	}
	if subject == "" {
		return err
	}
	return &withSubject{subject: subject, err: err}
}
