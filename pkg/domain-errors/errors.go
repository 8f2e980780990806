// Package domainerrors defines the coded errors services return to callers.
//
// Stores return infrastructure sentinels (pkg/platform/sentinel); services
// translate them into coded errors here so transports can map a code to a
// response without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeInternal           Code = "internal_error"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeAccessDenied       Code = "access_denied"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeImmutable          Code = "immutability_violation"
	CodeConfigLocked       Code = "config_locked"
	CodeSignatureRequired  Code = "signature_required"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeRateLimited        Code = "rate_limited"
)

// Error is a coded domain error. Reason carries a machine-readable denial
// reason (for example STATUS_LOCKED) on access-denied errors.
type Error struct {
	Code    Code
	Message string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Deny creates an access-denied error carrying a denial reason.
func Deny(reason, msg string) error {
	return &Error{Code: CodeAccessDenied, Message: msg, Reason: reason}
}

// Immutable reports an attempted mutation of append-only data.
func Immutable(entity string) error {
	return &Error{Code: CodeImmutable, Message: entity + " is append-only"}
}

// As extracts the outermost coded error from a chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether any error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// ReasonOf returns the denial reason of the first coded error that has one.
func ReasonOf(err error) string {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return ""
		}
		if de.Reason != "" {
			return de.Reason
		}
		err = de.Err
	}
	return ""
}

// Is reports whether err matches target. Re-exported so callers need a
// single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
