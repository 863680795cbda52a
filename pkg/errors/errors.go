// Package errors provides structured error types for leafshift.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - Localized user messages (codes plus ordered details feed [i18n])
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Plan errors describe why a treatment plan cannot be converted:
//   - NOT_A_RT_PLAN: the record modality is not RTPLAN
//   - UNIDENTIFIABLE_COLLIMATOR_FAMILY: the first leaf boundary matches no known MLC
//   - FIELD_EXCEEDS_TARGET_RANGE: an outer leaf pair cannot be reproduced on the target MLC
//   - MISSING_APERTURE_DATA: a control point carries no MLC positions (warning only)
//   - MISSING_COLLIMATOR_DEVICE: a beam declares no MLC device (warning only)
//
// The remaining codes cover input validation, configuration and internal failures.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotRTPlan, "modality is %q", modality)
//	if errors.Is(err, errors.ErrCodeNotRTPlan) {
//	    // Handle rejected plan
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidRecord, origErr, "read %s", path)
//
// [i18n]: github.com/matzehuels/leafshift/pkg/i18n
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Plan errors
	ErrCodeNotRTPlan            Code = "NOT_A_RT_PLAN"
	ErrCodeUnidentifiableFamily Code = "UNIDENTIFIABLE_COLLIMATOR_FAMILY"
	ErrCodeFieldExceedsRange    Code = "FIELD_EXCEEDS_TARGET_RANGE"
	ErrCodeMissingAperture      Code = "MISSING_APERTURE_DATA"
	ErrCodeMissingCollimator    Code = "MISSING_COLLIMATOR_DEVICE"
	ErrCodeUnknownFamily        Code = "UNKNOWN_COLLIMATOR_FAMILY"
	ErrCodeInvalidAperture      Code = "INVALID_APERTURE"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidRecord Code = "INVALID_RECORD"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeTooLarge     Code = "TOO_LARGE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)

	// Details holds the message arguments in a fixed, code-specific order
	// so that translated catalogs can reformat the message.
	Details []any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
// The format arguments are recorded as Details.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: args,
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
		Details: args,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsPlanError reports whether err rejects the plan itself (as opposed to
// I/O, configuration or internal failures).
func IsPlanError(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotRTPlan, ErrCodeUnidentifiableFamily, ErrCodeFieldExceedsRange,
		ErrCodeInvalidAperture, ErrCodeInvalidRecord:
		return true
	}
	return false
}

// Warning is a non-fatal condition reported alongside a successful result.
type Warning struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
}

// NewWarning creates a Warning with the given code and formatted message.
func NewWarning(code Code, format string, args ...any) Warning {
	return Warning{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: args,
	}
}

// String returns the warning message.
func (w Warning) String() string { return w.Message }
