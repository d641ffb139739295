package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDerivesFromCode(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeFileNotFound, CategoryIO, SeverityError, false},
		{ErrCodeCorruptIndex, CategoryIO, SeverityFatal, false},
		{ErrCodeExtractFailed, CategoryIO, SeverityError, false},
		{ErrCodeInvalidQuery, CategoryValidation, SeverityError, false},
		{ErrCodeInternal, CategoryInternal, SeverityError, false},
		{ErrCodeIndexWrite, CategoryInternal, SeverityWarning, true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestErrorFormatAndUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := IndexWriteError("write failed", cause)

	assert.Equal(t, "[ERR_502_INDEX_WRITE] write failed", err.Error())
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, New(ErrCodeIndexWrite, "other message", nil)))
	assert.False(t, stderrors.Is(err, New(ErrCodeInternal, "other", nil)))
}

func TestWithDetail(t *testing.T) {
	err := ValidationError("bad input", nil).
		WithDetail("field", "query").
		WithDetail("value", "")

	assert.Equal(t, "query", err.Details["field"])
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsRetryable(IndexWriteError("x", nil)))
	assert.False(t, IsRetryable(ExtractionError("x", nil)))
	assert.False(t, IsRetryable(stderrors.New("plain")))
	assert.False(t, IsRetryable(nil))

	assert.Equal(t, ErrCodeExtractFailed, GetCode(ExtractionError("x", nil)))
	assert.Equal(t, "", GetCode(stderrors.New("plain")))
	assert.True(t, HasCode(ExtractionError("x", nil), ErrCodeExtractFailed))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}
