package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"ai-code-generate-api/internal/domain/entity"
	"ai-code-generate-api/internal/domain/repository"
	apperrors "ai-code-generate-api/pkg/errors"
)

// uniqueViolation PostgreSQL 唯一约束冲突错误码
const uniqueViolation = "23505"

// isUniqueViolation 判断是否为唯一约束冲突（如 deploy_key 撞键）
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

type AppRepository struct {
	client *Client
}

func NewAppRepository(client *Client) *AppRepository {
	return &AppRepository{client: client}
}

func (r *AppRepository) Create(ctx context.Context, app *entity.App) error {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(app).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(err, apperrors.CodeConflict, "app conflicts with existing record")
		}
		span.RecordError(err)
		return fmt.Errorf("failed to create app: %w", err)
	}
	return nil
}

func (r *AppRepository) GetByID(ctx context.Context, id string) (*entity.App, error) {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var app entity.App
	if err := db.Where("id = ?", id).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAppNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	return &app, nil
}

func (r *AppRepository) GetByDeployKey(ctx context.Context, deployKey string) (*entity.App, error) {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.GetByDeployKey")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var app entity.App
	if err := db.Where("deploy_key = ?", deployKey).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAppNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get app by deploy key: %w", err)
	}
	return &app, nil
}

func (r *AppRepository) Update(ctx context.Context, app *entity.App) error {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(app).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(err, apperrors.CodeConflict, "app conflicts with existing record")
		}
		span.RecordError(err)
		return fmt.Errorf("failed to update app: %w", err)
	}
	return nil
}

func (r *AppRepository) ListByOwner(ctx context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.App], error) {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.ListByOwner")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.App{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count apps: %w", err)
	}

	var apps []*entity.App
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&apps).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	return repository.NewPagedResult(apps, total, pagination), nil
}

func (r *AppRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("id = ?", id).Delete(&entity.App{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete app: %w", err)
	}
	return nil
}
