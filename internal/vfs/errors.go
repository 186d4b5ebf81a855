// Package vfs holds the error taxonomy, settings and clock shared by the
// virtual file system components.
package vfs

import (
	"fmt"

	errors "github.com/Laisky/errors/v2"
)

// Code identifies a machine-stable error category.
type Code string

const (
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	CodeDataLoss           Code = "DATA_LOSS"
	CodeInternal           Code = "INTERNAL"
)

// Error is a categorized error surfaced to callers.
type Error struct {
	Code    Code
	Message string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "vfs error: <nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("vfs error: %s", e.Code)
	}
	return e.Message
}

// NewError constructs a typed error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf constructs a typed error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a typed error from the error chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsCode reports whether the error chain contains the given code.
func IsCode(err error, code Code) bool {
	if typed, ok := AsError(err); ok {
		return typed.Code == code
	}
	return false
}

// CodeOf returns the category of err. Untyped errors are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if typed, ok := AsError(err); ok {
		return typed.Code
	}
	return CodeInternal
}

// PublicMessage returns the message that may be shown to a remote caller.
// Internal details stay in the server log.
func PublicMessage(err error) string {
	typed, ok := AsError(err)
	if !ok || typed.Code == CodeInternal {
		return "internal error"
	}
	return typed.Message
}
