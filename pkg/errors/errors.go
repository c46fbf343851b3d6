// Package errors provides structured error types for composer-link.
//
// Every failure surfaced by the manifest, package, resolver, installer and
// link packages is an [*Error] carrying a machine-readable [Code]. Failures
// that originate from the repository index additionally carry the HTTP status
// and map onto a stable numeric code (see [Error.Number]); failures of the
// external package manager carry its exit status.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidArgument, "package name is required")
//	if errors.Is(err, errors.ErrCodeInvalidArgument) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeWriteFailed, origErr, "failed to write %s", path)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the link workflow.
const (
	// Input validation errors
	ErrCodeInvalidConfiguration Code = "INVALID_CONFIGURATION"
	ErrCodeInvalidArgument      Code = "INVALID_ARGUMENT"

	// Local filesystem and manifest errors
	ErrCodeNotFound             Code = "NOT_FOUND"
	ErrCodeMissingKey           Code = "MISSING_KEY"
	ErrCodeParse                Code = "PARSE_ERROR"
	ErrCodePathResolutionFailed Code = "PATH_RESOLUTION_FAILED"
	ErrCodeWriteFailed          Code = "WRITE_FAILED"

	// Repository index errors
	ErrCodeAuthFailed           Code = "AUTH_FAILED"
	ErrCodeIndexNotFound        Code = "INDEX_NOT_FOUND"
	ErrCodeRemoteRetrieveFailed Code = "REMOTE_RETRIEVE_FAILED"
	ErrCodeNetwork              Code = "NETWORK_ERROR"

	// External tool and version errors
	ErrCodeExternalToolFailed Code = "EXTERNAL_TOOL_FAILED"
	ErrCodeVersionParse       Code = "VERSION_PARSE_ERROR"
)

// Numeric codes for failures retrieving the repository index.
const (
	NumberRemoteRetrieveBase = 10000
	NumberAuthFailed         = 10401
	NumberIndexNotFound      = 10402
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code       Code   // Machine-readable error code
	Message    string // Human-readable message
	Cause      error  // Underlying error (optional)
	Status     int    // HTTP status for index failures (0 otherwise)
	ExitStatus int    // Exit status for external tool failures (0 otherwise)
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

// Number returns the numeric code of a repository index failure:
// [NumberAuthFailed] for 401, [NumberIndexNotFound] for 404 and
// [NumberRemoteRetrieveBase] plus the HTTP status for any other status.
// It returns 0 for errors that did not come from an HTTP response.
func (e *Error) Number() int {
	switch e.Code {
	case ErrCodeAuthFailed:
		return NumberAuthFailed
	case ErrCodeIndexNotFound:
		return NumberIndexNotFound
	case ErrCodeRemoteRetrieveFailed:
		return NumberRemoteRetrieveBase + e.Status
	default:
		return 0
	}
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

// HTTPStatus creates the error for a non-200 repository index response.
func HTTPStatus(status int, url string) *Error {
	switch status {
	case 401:
		return &Error{Code: ErrCodeAuthFailed, Message: fmt.Sprintf("auth failed for %s", url), Status: status}
	case 404:
		return &Error{Code: ErrCodeIndexNotFound, Message: fmt.Sprintf("repository index %s not found", url), Status: status}
	default:
		return &Error{
			Code:    ErrCodeRemoteRetrieveFailed,
			Message: fmt.Sprintf("failed to retrieve %s: status %d", url, status),
			Status:  status,
		}
	}
}

// ExternalTool creates the error for a failed external tool invocation.
func ExternalTool(exitStatus int, cause error, format string, args ...any) *Error {
	return &Error{
		Code:       ErrCodeExternalToolFailed,
		Message:    fmt.Sprintf(format, args...),
		Cause:      cause,
		ExitStatus: exitStatus,
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

// Number extracts the numeric index failure code from an error chain.
// Returns 0 if err carries none.
func Number(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Number()
	}
	return 0
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// Joined errors are rendered one message per line, in order.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, inner := range joined.Unwrap() {
			msgs = append(msgs, UserMessage(inner))
		}
		return strings.Join(msgs, "\n")
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}
