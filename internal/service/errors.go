package service

import "errors"

// 输入校验错误，统一映射为 invalid_message
var (
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = errors.New("message is too long, maximum 1000 characters allowed")
	ErrInvalidUser    = errors.New("invalid user id")
	ErrInvalidRole    = errors.New("invalid role specified")
	ErrSpamMessage    = errors.New("message was rejected by the content filter")
)

// 流程错误
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded, please wait before sending another message")
	ErrEmptyAIResponse   = errors.New("AI service returned an empty response")
	ErrAIUnavailable     = errors.New("AI service is unavailable")
	ErrClearFailed       = errors.New("failed to clear chat history")
	ErrRoleNotPermitted  = errors.New("you do not have permission to use this role")
	ErrChatbotDisabled   = errors.New("chatbot is disabled")
)

// 机器可读的错误码
const (
	CodeInvalidMessage  = "invalid_message"
	CodeRateLimited     = "rate_limit_exceeded"
	CodeAIError         = "ai_error"
	CodeClearFailed     = "clear_failed"
	CodeInvalidRole     = "invalid_role"
	CodeChatbotDisabled = "chatbot_disabled"
)

// IsValidationError 判断是否为输入校验错误
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrMessageTooLong) ||
		errors.Is(err, ErrInvalidUser) ||
		errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrSpamMessage)
}

// ErrorCode 返回错误对应的机器可读错误码
// 未知错误返回空字符串
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidationError(err):
		return CodeInvalidMessage
	case errors.Is(err, ErrRateLimitExceeded):
		return CodeRateLimited
	case errors.Is(err, ErrEmptyAIResponse), errors.Is(err, ErrAIUnavailable):
		return CodeAIError
	case errors.Is(err, ErrClearFailed):
		return CodeClearFailed
	case errors.Is(err, ErrRoleNotPermitted):
		return CodeInvalidRole
	case errors.Is(err, ErrChatbotDisabled):
		return CodeChatbotDisabled
	default:
		return ""
	}
}
