package handler

import (
	"github.com/gin-gonic/gin"

	"ai-code-generate-api/internal/domain/repository"
	"ai-code-generate-api/internal/interfaces/http/dto"
	"ai-code-generate-api/pkg/errors"
	"ai-code-generate-api/pkg/logger"
)

// currentUserID 读取身份中间件注入的用户 ID
func currentUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// newPagination 把分页请求参数转换为仓储层分页
func newPagination(req dto.PageRequest) repository.Pagination {
	return repository.NewPagination(req.Page, req.PageSize)
}

// respondError 按 AppError 映射 HTTP 状态码，其余错误按 500 处理
func respondError(c *gin.Context, err error, fallback string) {
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
			Code:    appErr.HTTPStatus,
			Message: appErr.Message,
			Error: &dto.ErrorDetail{
				ErrorCode: string(appErr.Code),
				Details:   appErr.Detail,
			},
			TraceID: c.GetString("trace_id"),
		})
		return
	}
	logger.Error(c.Request.Context(), fallback, err)
	dto.InternalError(c, fallback)
}
