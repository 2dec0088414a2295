package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/auditguard/embedding-go/internal/errors"
	beecontext "github.com/beego/beego/v2/server/web/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBase(t *testing.T) (*BaseController, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/embed", nil)
	ctx := beecontext.NewContext()
	ctx.Reset(w, r)
	c := &BaseController{}
	c.Init(ctx, "", "", nil)
	return c, w
}

// TestJSONAppErrorValidation 验证错误返回400并携带错误码与详情
func TestJSONAppErrorValidation(t *testing.T) {
	c, w := newTestBase(t)

	c.JSONAppError(apperrors.NewValidationError(apperrors.ErrCodeBatchTooLarge,
		"batch size exceeds maximum of 32").
		WithDetails(map[string]int{"max_batch_size": 32, "received": 50}))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, string(apperrors.ErrCodeBatchTooLarge), body["code"])

	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(32), details["max_batch_size"])
	assert.Equal(t, float64(50), details["received"])
}

// TestJSONAppErrorNotFound 资源不存在错误返回404
func TestJSONAppErrorNotFound(t *testing.T) {
	c, w := newTestBase(t)

	c.JSONAppError(apperrors.NewNotFoundError(apperrors.ErrCodeDocumentNotFound, "document not found"))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(apperrors.ErrCodeDocumentNotFound), body["code"])
	assert.NotContains(t, body, "details")
}

// TestJSONAppErrorPlainError 非AppError回落500
func TestJSONAppErrorPlainError(t *testing.T) {
	c, w := newTestBase(t)

	c.JSONAppError(errors.New("connection reset"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "connection reset", body["error"])
}
