package repository

import (
	"context"

	"ai-code-generate-api/internal/domain/entity"
)

// AppRepository 应用仓储接口
type AppRepository interface {
	Create(ctx context.Context, app *entity.App) error
	GetByID(ctx context.Context, id string) (*entity.App, error)
	GetByDeployKey(ctx context.Context, deployKey string) (*entity.App, error)
	Update(ctx context.Context, app *entity.App) error
	ListByOwner(ctx context.Context, ownerID string, pagination Pagination) (*PagedResult[*entity.App], error)
	Delete(ctx context.Context, id string) error
}
