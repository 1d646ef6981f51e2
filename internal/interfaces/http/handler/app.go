// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"ai-code-generate-api/internal/application/codegen"
	"ai-code-generate-api/internal/interfaces/http/dto"
	"ai-code-generate-api/pkg/logger"
)

// AppHandler 应用处理器
type AppHandler struct {
	appService *codegen.AppService
}

// NewAppHandler 创建应用处理器
func NewAppHandler(appService *codegen.AppService) *AppHandler {
	return &AppHandler{
		appService: appService,
	}
}

// CreateApp 创建应用
// @Summary 创建应用
// @Description 根据需求描述创建应用并预判生成类型
// @Tags Apps
// @Accept json
// @Produce json
// @Param body body dto.CreateAppRequest true "应用信息"
// @Success 201 {object} dto.Response[dto.AppResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/apps [post]
func (h *AppHandler) CreateApp(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	var req dto.CreateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	app, err := h.appService.CreateApp(ctx, userID, req.InitPrompt)
	if err != nil {
		respondError(c, err, "failed to create app")
		return
	}

	dto.Created(c, dto.ToAppResponse(app))
}

// GetApp 获取应用详情
// @Summary 获取应用详情
// @Tags Apps
// @Produce json
// @Param id path string true "应用 ID"
// @Success 200 {object} dto.Response[dto.AppResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/apps/{id} [get]
func (h *AppHandler) GetApp(c *gin.Context) {
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

	dto.Success(c, dto.ToAppResponse(app))
}

// ListApps 获取应用列表
// @Summary 获取当前用户的应用列表
// @Tags Apps
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.AppListResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/apps [get]
func (h *AppHandler) ListApps(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)
	pageReq := dto.BindPage(c)

	result, err := h.appService.ListApps(ctx, userID, newPagination(pageReq))
	if err != nil {
		logger.Error(ctx, "failed to list apps", err)
		dto.InternalError(c, "failed to list apps")
		return
	}

	resp := dto.ToAppListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// DeleteApp 删除应用
// @Summary 删除应用及其生成产物
// @Tags Apps
// @Produce json
// @Param id path string true "应用 ID"
// @Success 204
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/apps/{id} [delete]
func (h *AppHandler) DeleteApp(c *gin.Context) {
	ctx := c.Request.Context()
	appID := dto.BindAppID(c)
	userID := currentUserID(c)

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

	if err := h.appService.DeleteApp(ctx, appID, userID); err != nil {
		respondError(c, err, "failed to delete app")
		return
	}

	dto.NoContent(c)
}
