package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer  ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"

	// 验证错误
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeEmptyText        ErrorCode = "EMPTY_TEXT"
	ErrCodeTextTooLong      ErrorCode = "TEXT_TOO_LONG"
	ErrCodeBatchTooLarge    ErrorCode = "BATCH_TOO_LARGE"
	ErrCodeNoChunks         ErrorCode = "NO_CHUNKS_CREATED"

	// 模型/生成错误
	ErrCodeModelNotLoaded    ErrorCode = "MODEL_NOT_LOADED"
	ErrCodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"
	ErrCodeGenerationFailed  ErrorCode = "GENERATION_FAILED"

	// 持久化错误
	ErrCodeDatabaseError    ErrorCode = "DATABASE_ERROR"
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"

	// 资源错误
	ErrCodeDocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeValidation
	ErrorTypeModel
	ErrorTypePersistence
	ErrorTypeNotFound
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Type     ErrorType   `json:"type"`
	HTTPCode int         `json:"-"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewValidationError 创建验证错误（400，不自动重试）
func NewValidationError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewModelError 创建模型/生成错误（500，需要运维介入）
func NewModelError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeModel,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewPersistenceError 创建持久化错误（500，事务已回滚）
func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeDatabaseError,
		Message:  message,
		Type:     ErrorTypePersistence,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewNotFoundError 创建资源不存在错误（404）
func NewNotFoundError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeNotFound,
		HTTPCode: http.StatusNotFound,
	}
}

// NewSystemError 创建系统错误（500）
func NewSystemError(message string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeInternalServer,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// AsAppError 尝试将error转换为AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus 返回错误对应的HTTP状态码，非AppError默认500
func HTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPCode
	}
	return http.StatusInternalServerError
}
