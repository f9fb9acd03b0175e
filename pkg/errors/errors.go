// Package errors provides structured error types for the mindmap module.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the TUI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The tree and layout core reports NOT_FOUND, CYCLE_DETECTED,
// CANNOT_REMOVE_ROOT, CANNOT_REPARENT_ROOT and ALREADY_INITIALIZED. Loading a
// document reports PARSE_FAILURE for malformed JSON and INVALID_DOCUMENT for
// well-formed JSON that does not describe a single rooted tree. Exports report
// EXPORT_FAILURE with the underlying I/O error as cause.
//
// None of these errors are fatal: the operation that returned them left the
// document exactly as it was.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "node %s not found", id)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // Handle missing node
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeExportFailure, ioErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Tree structure errors
	ErrCodeNotFound           Code = "NOT_FOUND"
	ErrCodeCycleDetected      Code = "CYCLE_DETECTED"
	ErrCodeCannotRemoveRoot   Code = "CANNOT_REMOVE_ROOT"
	ErrCodeCannotReparentRoot Code = "CANNOT_REPARENT_ROOT"
	ErrCodeAlreadyInitialized Code = "ALREADY_INITIALIZED"

	// Document file errors
	ErrCodeParseFailure    Code = "PARSE_FAILURE"
	ErrCodeInvalidDocument Code = "INVALID_DOCUMENT"

	// Export errors
	ErrCodeExportFailure Code = "EXPORT_FAILURE"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Storage errors
	ErrCodeStorage Code = "STORAGE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
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
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// The outermost *Error wins, so a wrapped NOT_FOUND inside an
// INVALID_DOCUMENT reports INVALID_DOCUMENT.
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
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
