package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"marketplace-chatbot-server/pkg/util"
)

// RequestIDHeader 请求 ID 的请求头和响应头
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware 为每个请求分配请求 ID
// 客户端传了就沿用，否则生成新的
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = util.GenerateRequestID()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware 创建请求日志中间件
// 记录每个请求的请求 ID、方法、路径、状态码和耗时
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		statusCode := c.Writer.Status()
		logLine := formatLogLine(
			c.GetString("request_id"),
			statusCode,
			time.Since(start),
			c.ClientIP(),
			c.Request.Method,
			path,
			c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)

		switch {
		case statusCode >= 500:
			log.Printf("[ERROR] %s", logLine)
		case statusCode >= 400:
			log.Printf("[WARN] %s", logLine)
		default:
			log.Printf("[INFO] %s", logLine)
		}
	}
}

// formatLogLine 格式化日志行
func formatLogLine(requestID string, statusCode int, latency time.Duration, clientIP, method, path, errorMessage string) string {
	// 小于 1ms 显示微秒，小于 1s 显示毫秒，否则显示秒
	switch {
	case latency < time.Millisecond:
	case latency < time.Second:
		latency = latency.Truncate(time.Microsecond)
	default:
		latency = latency.Truncate(time.Millisecond)
	}

	logLine := fmt.Sprintf("%s | %s | %-12s | %-15s | %-7s | %s",
		requestID, statusLabel(statusCode), latency, clientIP, method, path)
	if errorMessage != "" {
		logLine += " | " + errorMessage
	}
	return logLine
}

// statusLabel 状态码加分类标记
func statusLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return fmt.Sprintf("[%d OK]", code)
	case code >= 300 && code < 400:
		return fmt.Sprintf("[%d REDIRECT]", code)
	case code >= 400 && code < 500:
		return fmt.Sprintf("[%d CLIENT_ERR]", code)
	default:
		return fmt.Sprintf("[%d SERVER_ERR]", code)
	}
}

// RecoveryMiddleware 创建 panic 恢复中间件
// 捕获处理器中的 panic，防止程序崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] request_id=%s %v", c.GetString("request_id"), err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
