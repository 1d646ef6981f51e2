// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"ai-code-generate-api/internal/interfaces/http/handler"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	appHandler *handler.AppHandler,
	generateHandler *handler.GenerateHandler,
	chatHistoryHandler *handler.ChatHistoryHandler,
	generateRateLimit gin.HandlerFunc,
) {
	// 应用管理
	apps := v1.Group("/apps")
	{
		apps.GET("", appHandler.ListApps)
		apps.POST("", appHandler.CreateApp)
		apps.GET("/:id", appHandler.GetApp)
		apps.DELETE("/:id", appHandler.DeleteApp)

		// 代码生成（SSE），按用户限流
		apps.POST("/:id/generate", generateRateLimit, generateHandler.Generate)

		// 对话历史
		apps.GET("/:id/chat", chatHistoryHandler.ListChatHistory)
	}
}
