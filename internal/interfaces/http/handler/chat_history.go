// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"ai-code-generate-api/internal/application/codegen"
	"ai-code-generate-api/internal/interfaces/http/dto"
	"ai-code-generate-api/pkg/logger"
)

// ChatHistoryHandler 对话历史处理器
type ChatHistoryHandler struct {
	appService *codegen.AppService
	history    *codegen.HistoryService
}

// NewChatHistoryHandler 创建对话历史处理器
func NewChatHistoryHandler(appService *codegen.AppService, history *codegen.HistoryService) *ChatHistoryHandler {
	return &ChatHistoryHandler{
		appService: appService,
		history:    history,
	}
}

// ListChatHistory 获取应用的对话历史
// @Summary 获取应用的对话历史
// @Tags Apps
// @Produce json
// @Param id path string true "应用 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ChatHistoryResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/apps/{id}/chat [get]
func (h *ChatHistoryHandler) ListChatHistory(c *gin.Context) {
	ctx := c.Request.Context()
	appID := dto.BindAppID(c)

	app, err := h.appService.GetApp(ctx, appID)
	if err != nil {
		respondError(c, err, "failed to get app")
		return
	}
	if app == nil {
		dto.NotFound(c, "app not found")
		return
	}
	if app.OwnerID != currentUserID(c) {
		dto.Forbidden(c, "not the app owner")
		return
	}

	pageReq := dto.BindPage(c)
	result, err := h.history.ListByApp(ctx, appID, newPagination(pageReq))
	if err != nil {
		logger.Error(ctx, "failed to list chat history", err, "app_id", appID)
		dto.InternalError(c, "failed to list chat history")
		return
	}

	resp := dto.ToChatHistoryResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}
