package controllers

import (
	"net/http"

	apperrors "github.com/auditguard/embedding-go/internal/errors"
	"github.com/beego/beego/v2/server/web"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a 200 response.
func (c *BaseController) JSONSuccess(payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 将AppError映射为对应状态码的错误响应
// 验证错误400、资源不存在404、模型/持久化/系统错误500
func (c *BaseController) JSONAppError(err error) {
	status := apperrors.HTTPStatus(err)
	if appErr, ok := apperrors.AsAppError(err); ok {
		payload := map[string]interface{}{
			"success": false,
			"code":    appErr.Code,
			"error":   appErr.Message,
		}
		if appErr.Details != nil {
			payload["details"] = appErr.Details
		}
		c.JSON(status, payload)
		return
	}
	c.JSONError(status, err.Error())
}

// validateRequest 校验请求结构体的validate标签
func (c *BaseController) validateRequest(req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		c.JSONError(http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}
