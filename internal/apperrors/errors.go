// Package apperrors carries the error taxonomy shared by the draft runtimes.
// Validation, Conflict and NotFound are caller errors and surface verbatim;
// Server marks invariant violations that should be treated as bug signals.
package apperrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation Code = "VALIDATION"
	CodeConflict   Code = "CONFLICT"
	CodeNotFound   Code = "NOT_FOUND"
	CodeServer     Code = "SERVER"
)

// Error is a coded domain error. It wraps an optional cause.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match any error of the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Msg == "" || t.Msg == e.Msg)
}

func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Serverf(format string, args ...any) *Error {
	return &Error{Code: CodeServer, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an underlying error.
func Wrap(code Code, err error, msg string) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf extracts the code from err, defaulting to CodeServer for errors
// that carry no code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeServer
}

func IsValidation(err error) bool { return hasCode(err, CodeValidation) }
func IsConflict(err error) bool   { return hasCode(err, CodeConflict) }
func IsNotFound(err error) bool   { return hasCode(err, CodeNotFound) }
func IsServer(err error) bool     { return hasCode(err, CodeServer) }

func hasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
