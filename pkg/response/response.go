// Package response 提供统一的 HTTP 响应格式
// 所有 API 都使用相同的响应结构，便于前端处理
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
// code: 业务状态码（0 表示成功）
// message: 提示信息
// data: 响应数据
type Response struct {
	Code    int         `json:"code"`           // 业务状态码
	Message string      `json:"message"`        // 提示信息
	Data    interface{} `json:"data,omitempty"` // 响应数据，可选
}

// 业务状态码定义
const (
	CodeSuccess         = 0    // 成功
	CodeBadRequest      = 1000 // 请求参数错误
	CodeUnauthorized    = 1001 // 未授权
	CodeForbidden       = 1002 // 禁止访问
	CodeNotFound        = 1003 // 资源不存在
	CodeInternalError   = 1004 // 服务器内部错误
	CodeTooManyRequests = 1005 // 请求过于频繁
	CodeInvalidMessage  = 2001 // 消息不合法
	CodeRateLimited     = 2002 // 超过每小时消息上限
	CodeAIError         = 2003 // AI 服务出错
	CodeClearFailed     = 2004 // 清空历史失败
	CodeInvalidRole     = 2005 // 无权使用该角色
	CodeChatbotDisabled = 2006 // 聊天功能已关闭
)

// ErrorData 错误响应中的附加数据
// Error 是机器可读的错误码，例如 rate_limit_exceeded
type ErrorData struct {
	Error     string `json:"error"`
	Remaining *int   `json:"remaining,omitempty"`
}

// Success 返回成功响应
// 参数:
//   - c: Gin 上下文
//   - data: 响应数据，可以是任意类型
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// ErrorWithData 返回带机器可读错误码的错误响应
// 参数:
//   - c: Gin 上下文
//   - httpCode: HTTP 状态码
//   - bizCode: 业务状态码
//   - message: 给用户看的错误信息
//   - data: 附加数据
func ErrorWithData(c *gin.Context, httpCode, bizCode int, message string, data ErrorData) {
	c.JSON(httpCode, Response{
		Code:    bizCode,
		Message: message,
		Data:    data,
	})
}

// BadRequest 返回 400 错误（请求参数错误）
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    CodeBadRequest,
		Message: message,
	})
}

// Unauthorized 返回 401 错误（未授权）
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeUnauthorized,
		Message: message,
	})
}

// TooManyRequests 返回 429 错误（接口级限流）
func TooManyRequests(c *gin.Context, message string) {
	c.JSON(http.StatusTooManyRequests, Response{
		Code:    CodeTooManyRequests,
		Message: message,
	})
}

// InternalError 返回 500 错误（服务器内部错误）
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Code:    CodeInternalError,
		Message: message,
	})
}

// InvalidMessage 返回消息不合法错误
func InvalidMessage(c *gin.Context, message string) {
	ErrorWithData(c, http.StatusBadRequest, CodeInvalidMessage, message, ErrorData{Error: "invalid_message"})
}

// RateLimited 返回超过消息上限错误，remaining 固定为 0
func RateLimited(c *gin.Context, message string) {
	remaining := 0
	ErrorWithData(c, http.StatusTooManyRequests, CodeRateLimited, message, ErrorData{Error: "rate_limit_exceeded", Remaining: &remaining})
}

// AIError 返回 AI 服务错误
func AIError(c *gin.Context, message string) {
	ErrorWithData(c, http.StatusInternalServerError, CodeAIError, message, ErrorData{Error: "ai_error"})
}

// ClearFailed 返回清空历史失败错误
func ClearFailed(c *gin.Context, message string) {
	ErrorWithData(c, http.StatusInternalServerError, CodeClearFailed, message, ErrorData{Error: "clear_failed"})
}

// InvalidRole 返回无权使用角色错误
func InvalidRole(c *gin.Context, message string) {
	ErrorWithData(c, http.StatusForbidden, CodeInvalidRole, message, ErrorData{Error: "invalid_role"})
}

// ChatbotDisabled 返回聊天功能关闭错误
func ChatbotDisabled(c *gin.Context, message string) {
	ErrorWithData(c, http.StatusForbidden, CodeChatbotDisabled, message, ErrorData{Error: "chatbot_disabled"})
}
