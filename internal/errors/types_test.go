package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPersistenceError("failed to store document", cause)

	assert.Equal(t, "failed to store document: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	// 包装后仍可还原为AppError
	wrapped := fmt.Errorf("pipeline step failed: %w", err)
	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeDatabaseError, appErr.Code)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewValidationError(ErrCodeEmptyText, "text is empty")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NewNotFoundError(ErrCodeDocumentNotFound, "not found")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(NewModelError(ErrCodeModelNotLoaded, "model not loaded")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain error")))
}

func TestWithDetails(t *testing.T) {
	err := NewValidationError(ErrCodeBatchTooLarge, "batch too large").
		WithDetails(map[string]int{"max": 32, "got": 50})

	require.NotNil(t, err.Details)
	assert.Equal(t, ErrorTypeValidation, err.Type)
}
