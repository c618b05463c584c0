package tools

import (
	"fmt"
	"log/slog"

	"github.com/usestring/baselib/pkg/errors"
)

// Error codes for MCP tool responses that do not come from the library.
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code       string
	Message    string
	Violations []string
	Cause      error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapError converts a library error to a coded error, keeping the code of
// the outermost StructuredError in its chain.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	code := string(errors.CodeOf(err))
	if code == "" {
		code = string(errors.ErrCodeDriver)
	}
	coded := &CodedError{
		Code:       code,
		Message:    err.Error(),
		Violations: errors.Violations(err),
		Cause:      err,
	}

	slog.Warn("tool call failed",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)

	return coded
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
