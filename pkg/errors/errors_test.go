package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Code:    CodeInvalidRequest,
				Message: "invalid input",
			},
			expected: "INVALID_REQUEST: invalid input",
		},
		{
			name: "error with cause",
			err: &Error{
				Code:    CodeGenerationFailed,
				Message: "completion request failed",
				Cause:   fmt.Errorf("connection reset"),
			},
			expected: "GENERATION_FAILED: completion request failed (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := &Error{
		Code:    CodeExecutionFailed,
		Message: "statement failed",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, &Error{Code: CodeExecutionFailed}))
	assert.True(t, errors.Is(err, cause))
}

func TestError_Is(t *testing.T) {
	err1 := &Error{Code: CodeDatasetSchema, Message: "missing column"}
	err2 := &Error{Code: CodeDatasetSchema, Message: "different message"}
	err3 := &Error{Code: CodeInvalidRequest, Message: "invalid"}
	stdErr := fmt.Errorf("standard error")

	assert.True(t, err1.Is(err2), "errors with same code should match")
	assert.False(t, err1.Is(err3), "errors with different codes should not match")
	assert.False(t, err1.Is(stdErr), "coded error should not match standard error")
}

func TestError_WithDetail(t *testing.T) {
	err := New(CodeDatasetSchema, "dataset is missing required columns").
		WithDetail("missing", []string{"emails_sent"}).
		WithDetail("path", "campaigns.csv")

	assert.Equal(t, []string{"emails_sent"}, err.Details["missing"])
	assert.Equal(t, "campaigns.csv", err.Details["path"])
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(cause, CodeConnectionFailed, "wrapped message")

	assert.Equal(t, CodeConnectionFailed, err.Code)
	assert.Equal(t, "wrapped message", err.Message)
	assert.Equal(t, cause, err.Cause)

	assert.Nil(t, Wrap(nil, CodeConnectionFailed, "message"))
}

func TestWrapf(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrapf(cause, CodeDatasetLoadFailed, "failed to load %s", "campaigns.csv")

	assert.Equal(t, CodeDatasetLoadFailed, err.Code)
	assert.Equal(t, "failed to load campaigns.csv", err.Message)
	assert.Equal(t, cause, err.Cause)

	assert.Nil(t, Wrapf(nil, CodeDatasetLoadFailed, "message %d", 42))
}

func TestCodeHelpers(t *testing.T) {
	wrappedGeneration := fmt.Errorf("ask: %w", Wrap(fmt.Errorf("timeout"), CodeGenerationFailed, "completion failed"))

	tests := []struct {
		name       string
		err        error
		generation bool
		invalid    bool
		internal   bool
		code       string
	}{
		{"generation failure", ErrEmptyCompletion, true, false, false, CodeGenerationFailed},
		{"wrapped generation failure", wrappedGeneration, true, false, false, CodeGenerationFailed},
		{"invalid request", ErrEmptyQuestion, false, true, false, CodeInvalidRequest},
		{"internal", New(CodeInternal, "boom"), false, false, true, CodeInternal},
		{"standard error", fmt.Errorf("standard error"), false, false, false, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.generation, IsGenerationFailure(tt.err))
			assert.Equal(t, tt.invalid, IsInvalidRequest(tt.err))
			assert.Equal(t, tt.internal, IsInternal(tt.err))
			assert.Equal(t, tt.code, GetCode(tt.err))
		})
	}
}

func TestGetMessage(t *testing.T) {
	assert.Equal(t, "dataset has not been loaded", GetMessage(ErrDatasetNotLoaded))
	assert.Equal(t, "standard error", GetMessage(fmt.Errorf("standard error")))
}

func TestSentinels(t *testing.T) {
	assert.Equal(t, CodeInvalidRequest, ErrEmptyQuestion.Code)
	assert.Equal(t, CodeInvalidRequest, ErrEmptySubject.Code)
	assert.Equal(t, CodeGenerationFailed, ErrEmptyCompletion.Code)
	assert.Equal(t, CodeUnavailable, ErrDatasetNotLoaded.Code)
	assert.Equal(t, CodeUnavailable, ErrPoolClosed.Code)
}
