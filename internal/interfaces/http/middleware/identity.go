// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-code-generate-api/pkg/logger"
)

const (
	// UserIDHeader 调用方身份头，认证由外部网关完成
	UserIDHeader = "X-User-ID"
)

// Identity 从请求头提取调用方身份并注入上下文。
// required 为 true 时缺失身份直接拒绝。
func Identity(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"code":     401,
					"message":  "missing " + UserIDHeader + " header",
					"trace_id": c.GetString("trace_id"),
				})
				return
			}
			c.Next()
			return
		}

		c.Set("user_id", userID)

		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, userID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
