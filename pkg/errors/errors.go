// Package errors provides the structured error taxonomy shared by the
// validation gate, the validator engines and the drivers.
//
// Every failure surfaced by this module carries an ErrorCode so callers can
// branch on the class of fault without string matching:
//
//	if errors.HasCode(err, errors.ErrCodeValidation) {
//	    // parameters did not conform to the operation schema
//	}
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates an unresolved default validator or an
	// unknown validator identifier.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	// ErrCodeResource indicates a schema file that is missing or unreadable.
	ErrCodeResource ErrorCode = "RESOURCE"
	// ErrCodeSchemaMalformed indicates a schema document that fails the
	// meta-schema check or is not a JSON object.
	ErrCodeSchemaMalformed ErrorCode = "SCHEMA_MALFORMED"
	// ErrCodeContract indicates a naming or signature mismatch detected while
	// registering an operation, or a caller request that cannot address
	// parameters, such as an invalid query.
	ErrCodeContract ErrorCode = "CONTRACT"
	// ErrCodeValidation indicates parameters that do not conform to a schema.
	ErrCodeValidation ErrorCode = "VALIDATION"
	// ErrCodeUnsupported indicates an unknown driver identifier.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"
	// ErrCodeNotImplemented indicates a driver operation with no implementation.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	// ErrCodeInvalidState indicates an operation called outside the Ready
	// state of a driver lifecycle.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeDriver indicates a runtime failure reported by a concrete driver.
	ErrCodeDriver ErrorCode = "DRIVER"
)

// ContextKeyViolations is the Context key holding the []string of schema
// violations attached to an ErrCodeValidation error.
const ContextKeyViolations = "violations"

// StructuredError provides structured error information.
// It includes an error code for programmatic handling, a human-readable message,
// the underlying cause, and optional context for debugging.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new StructuredError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *StructuredError {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf returns the code of the outermost StructuredError in err's chain,
// or the empty code when there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HasCode reports whether any StructuredError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var se *StructuredError
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}

// Violations returns the schema violations attached to a validation error.
func Violations(err error) []string {
	var se *StructuredError
	if !stderrors.As(err, &se) || se.Context == nil {
		return nil
	}
	v, _ := se.Context[ContextKeyViolations].([]string)
	return v
}
