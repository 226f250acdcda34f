// Package errors provides structured error types for Chroma Scribe.
//
// Every failure that crosses a package boundary carries a [Code] so the CLI,
// the viewer and the evolve proxy can decide how to react without string
// matching:
//
//   - DEVICE_ACCESS: camera or microphone denied or busy. Recoverable; the
//     toggle that requested the device reverts.
//   - MODEL_INIT: the hand tracker could not be created. The gesture source is
//     disabled for the rest of the session.
//   - DETECTION: a single frame failed to analyze. Swallowed by the source.
//   - EXTERNAL_SERVICE: the evolve call failed or returned non-success.
//     Surfaced to the user, never retried.
//   - DISPOSAL: releasing a render resource failed. Logged, the operation
//     continues.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidBrush, "unknown brush %q", name)
//	if errors.Is(err, errors.ErrCodeInvalidBrush) {
//	    // show the list of brushes
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeExternalService, origErr, "evolve %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	// Device and model errors
	ErrCodeDeviceAccess Code = "DEVICE_ACCESS"
	ErrCodeModelInit    Code = "MODEL_INIT"
	ErrCodeDetection    Code = "DETECTION"

	// Remote service errors
	ErrCodeExternalService Code = "EXTERNAL_SERVICE"
	ErrCodeTimeout         Code = "TIMEOUT"

	// Resource lifecycle errors
	ErrCodeDisposal Code = "DISPOSAL"
	ErrCodeSnapshot Code = "SNAPSHOT"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidBrush  Code = "INVALID_BRUSH"
	ErrCodeNotFound      Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a coded failure. Message is shown to users as is; Cause, when
// set, is kept for errors.Is and errors.As.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap returns an Error with cause attached.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error without its code,
// or err.Error() for uncoded errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Recoverable reports whether the session can keep running after err.
// Only a failed tracker model permanently removes a capability.
func Recoverable(err error) bool {
	switch GetCode(err) {
	case ErrCodeModelInit, ErrCodeInternal:
		return false
	}
	return true
}

// StatusError carries the HTTP status of a failed evolve call.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// Code is always EXTERNAL_SERVICE.
func (e *StatusError) Code() Code {
	return ErrCodeExternalService
}
