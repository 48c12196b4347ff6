// Package errors augments the standard errors
// provided by fmt (https://golang.org/src/fmt/errors.go)
// with a Wrap() method to wrap errors without resorting
// to fmt.Errorf("%w", err).
//
// Sentinel errors declared with New may be wrapped around a cause
// without mutating the sentinel: Wrap returns a new value and
// errors.Is matches sentinels by identity of their message.
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// New Error
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error augments the standard error interface with a Wrap method.
//
// The main difference with github.com/pkg/errors is that we are wrapping
// errors from errors, not from text.
type Error struct {
	msg string
	err error
}

// Error message, including the wrapped cause if any
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a cause under this error. The receiver is left untouched,
// so package-level sentinels remain safe for concurrent use.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err}
}

// WrapMessage wraps a cause built from a format string
func (e *Error) WrapMessage(format string, args ...interface{}) *Error {
	return &Error{msg: e.msg, err: fmt.Errorf(format, args...)}
}

// Is reports whether target is this error or a wrapped copy of it
func (e *Error) Is(target error) bool {
	if e == target {
		return true
	}
	if o, ok := target.(*Error); ok {
		return e.msg == o.msg
	}
	return false
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
