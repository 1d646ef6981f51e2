// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"ai-code-generate-api/internal/application/codegen"
	"ai-code-generate-api/internal/interfaces/http/dto"
	"ai-code-generate-api/pkg/logger"

	wfmodel "ai-code-generate-api/internal/workflow/model"
)

// SSE 心跳间隔，防止代理层断开空闲连接
const heartbeatInterval = 15 * time.Second

// GenerateHandler 代码生成处理器，通过 SSE 推送生成帧
type GenerateHandler struct {
	appService *codegen.AppService
	generation *codegen.GenerationService
}

// NewGenerateHandler 创建代码生成处理器
func NewGenerateHandler(appService *codegen.AppService, generation *codegen.GenerationService) *GenerateHandler {
	return &GenerateHandler{
		appService: appService,
		generation: generation,
	}
}

// Generate 触发一次代码生成并流式返回进度
// @Summary 触发代码生成
// @Description 启动工作流并通过 SSE 推送生成帧，客户端断开不会中断生成
// @Tags Apps
// @Accept json
// @Produce text/event-stream
// @Param id path string true "应用 ID"
// @Param body body dto.GenerateRequest false "用户消息"
// @Success 200 "SSE stream"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/apps/{id}/generate [post]
func (h *GenerateHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()
	appID := dto.BindAppID(c)
	userID := currentUserID(c)

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	app, err := h.appService.GetApp(ctx, appID)
	if err != nil {
		respondError(c, err, "failed to get app")
		return
	}
	if app == nil {
		dto.NotFound(c, "app not found")
		return
	}
	if app.OwnerID != userID {
		dto.Forbidden(c, "not the app owner")
		return
	}

	frames, err := h.generation.Run(ctx, appID, userID, req.Message)
	if err != nil {
		respondError(c, err, "failed to start generation")
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case frame, ok := <-frames:
			if !ok {
				// 生成结束
				c.SSEvent("done", gin.H{"app_id": appID})
				return false
			}
			data, err := wfmodel.MarshalFrame(frame)
			if err != nil {
				logger.Warn(ctx, "failed to marshal frame", "app_id", appID, "error", err.Error())
				return true
			}
			c.SSEvent("message", string(data))
			return true

		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true

		case <-ctx.Done():
			// 客户端断开，生成在后台继续
			return false
		}
	})
}
