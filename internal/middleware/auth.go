// Package middleware 提供 HTTP 请求的中间件
// 包括 JWT 认证、CORS 跨域、日志记录、接口限流等
package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"
	"marketplace-chatbot-server/pkg/jwt"
	"marketplace-chatbot-server/pkg/response"
)

// TokenBlacklist Token 黑名单
// 由 cache.RedisCache 实现
type TokenBlacklist interface {
	IsTokenBlacklisted(ctx context.Context, tokenHash string) bool
}

// AuthMiddleware 创建 JWT 认证中间件
// 验证请求头中的 Bearer Token，并将用户信息存入上下文
// 参数:
//   - jwtService: JWT 服务实例，用于解析和验证 Token
//   - blacklist: Token 黑名单，可以为 nil
//
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func AuthMiddleware(jwtService *jwt.JWTService, blacklist TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 格式: "Bearer <token>"
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Please log in first.")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "Malformed Authorization header.")
			c.Abort()
			return
		}
		tokenString := parts[1]

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Token is invalid or expired.")
			c.Abort()
			return
		}

		// 黑名单中存的是 Token 的哈希
		if blacklist != nil && blacklist.IsTokenBlacklisted(c.Request.Context(), HashToken(tokenString)) {
			response.Unauthorized(c, "Token has been revoked.")
			c.Abort()
			return
		}

		// 后续的 Handler 可以通过 c.Get("user_id") 获取
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("token_exp", claims.ExpiresAt)

		c.Next()
	}
}

// HashToken 计算 Token 的 SHA256 哈希值
// 用于黑名单存储，避免存储原始 Token
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// GetUserID 从上下文获取用户 ID
// 未认证返回 0
func GetUserID(c *gin.Context) int64 {
	userID, exists := c.Get("user_id")
	if !exists {
		return 0
	}
	id, _ := userID.(int64)
	return id
}
