package gperr

import (
	"errors"
	"fmt"
	"strings"
)

//nolint:recvcheck
type nestedError struct {
	Err    error   `json:"err"`
	Extras []error `json:"extras"`
}

func (err nestedError) Subject(subject string) Error {
	if err.Err == nil {
		err.Err = newError(subject)
	} else {
		err.Err = PrependSubject(subject, err.Err)
	}
	return &err
}

func (err nestedError) With(extra error) Error {
	if extra != nil {
		err.Extras = append(err.Extras[:len(err.Extras):len(err.Extras)], extra)
	}
	return &err
}

func (err nestedError) Withf(format string, args ...any) Error {
	extras := err.Extras[:len(err.Extras):len(err.Extras)]
	if len(args) > 0 {
		err.Extras = append(extras, fmt.Errorf(format, args...))
	} else {
		err.Extras = append(extras, newError(format))
	}
	return &err
}

func (err *nestedError) Unwrap() []error {
	if err.Err == nil {
		if len(err.Extras) == 0 {
			return nil
		}
		return err.Extras
	}
	return append([]error{err.Err}, err.Extras...)
}

func (err *nestedError) Is(other error) bool {
	// sentinels created by New match on their message
	if o, ok := other.(*nestedError); ok && o.Err != nil && len(o.Extras) == 0 {
		other = o.Err
	}
	if err.Err != nil && errors.Is(err.Err, other) {
		return true
	}
	for _, e := range err.Extras {
		if errors.Is(e, other) {
			return true
		}
	}
	return false
}

var (
	nilError     = newError("<nil>")
	bulletPrefix = []byte("- ")
	spaces       = []byte("                                ")
)

func (err *nestedError) Error() string {
	var buf []byte
	switch {
	case err.Err != nil:
		buf = append(buf, err.Err.Error()...)
		if len(err.Extras) > 0 {
			buf = append(buf, '\n')
			buf = appendLines(buf, err.Extras, 1)
		}
	case len(err.Extras) > 0:
		buf = appendLines(buf, err.Extras, 0)
	default:
		return nilError.Error()
	}
	return strings.TrimSuffix(string(buf), "\n")
}

func appendLine(buf []byte, err error, level int) []byte {
	if level == 0 {
		return append(buf, err.Error()...)
	}
	buf = append(buf, spaces[:min(2*level, len(spaces))]...)
	buf = append(buf, bulletPrefix...)
	buf = append(buf, err.Error()...)
	return buf
}

func appendLines(buf []byte, errs []error, level int) []byte {
	for _, err := range errs {
		switch err := err.(type) {
		case *nestedError:
			if err.Err != nil {
				buf = appendLine(buf, err.Err, level)
				buf = append(buf, '\n')
				buf = appendLines(buf, err.Extras, level+1)
			} else {
				buf = appendLines(buf, err.Extras, level)
			}
		default:
			buf = appendLine(buf, err, level)
			buf = append(buf, '\n')
		}
	}
	return buf
}
