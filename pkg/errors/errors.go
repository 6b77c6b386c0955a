// Package errors provides the coded error type used across campaignqa.
package errors

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeNotFound          = "NOT_FOUND"
	CodeGenerationFailed  = "GENERATION_FAILED"
	CodeExecutionFailed   = "EXECUTION_FAILED"
	CodeDatasetLoadFailed = "DATASET_LOAD_FAILED"
	CodeDatasetSchema     = "DATASET_SCHEMA"
	CodeConnectionFailed  = "CONNECTION_FAILED"
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeInternal          = "INTERNAL_ERROR"
	CodeUnavailable       = "UNAVAILABLE"
	CodeDeadlineExceeded  = "DEADLINE_EXCEEDED"
)

// Error carries a code, a message, optional details and an optional cause.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a single detail to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrEmptyQuestion    = &Error{Code: CodeInvalidRequest, Message: "question cannot be empty"}
	ErrEmptySubject     = &Error{Code: CodeInvalidRequest, Message: "subject line cannot be empty"}
	ErrEmptyCompletion  = &Error{Code: CodeGenerationFailed, Message: "text generation returned no content"}
	ErrDatasetNotLoaded = &Error{Code: CodeUnavailable, Message: "dataset has not been loaded"}
	ErrPoolClosed       = &Error{Code: CodeUnavailable, Message: "connection pool is closed"}
)

// New creates a new Error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps err with a code and message. It returns nil for a nil err.
func Wrap(err error, code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsGenerationFailure checks if an error came from the text-generation service.
func IsGenerationFailure(err error) bool {
	return hasCode(err, CodeGenerationFailed)
}

// IsInvalidRequest checks if an error is an invalid request error.
func IsInvalidRequest(err error) bool {
	return hasCode(err, CodeInvalidRequest)
}

// IsInternal checks if an error is an internal error.
func IsInternal(err error) bool {
	return hasCode(err, CodeInternal)
}

func hasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
