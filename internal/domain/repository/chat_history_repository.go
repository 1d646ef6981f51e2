package repository

import (
	"context"

	"ai-code-generate-api/internal/domain/entity"
)

// ChatHistoryRepository 对话历史仓储接口
type ChatHistoryRepository interface {
	Create(ctx context.Context, msg *entity.ChatHistory) error
	ListByApp(ctx context.Context, appID string, pagination Pagination) (*PagedResult[*entity.ChatHistory], error)
}
