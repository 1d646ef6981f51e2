package postgres

import (
	"context"
	"fmt"

	"ai-code-generate-api/internal/domain/entity"
	"ai-code-generate-api/internal/domain/repository"
)

type ChatHistoryRepository struct {
	client *Client
}

func NewChatHistoryRepository(client *Client) *ChatHistoryRepository {
	return &ChatHistoryRepository{client: client}
}

func (r *ChatHistoryRepository) Create(ctx context.Context, msg *entity.ChatHistory) error {
	ctx, span := tracer.Start(ctx, "postgres.ChatHistoryRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(msg).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chat history: %w", err)
	}
	return nil
}

func (r *ChatHistoryRepository) ListByApp(ctx context.Context, appID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ChatHistory], error) {
	ctx, span := tracer.Start(ctx, "postgres.ChatHistoryRepository.ListByApp")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.ChatHistory{}).Where("app_id = ?", appID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count chat histories: %w", err)
	}

	var msgs []*entity.ChatHistory
	if err := query.Order("created_at ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&msgs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chat histories: %w", err)
	}

	return repository.NewPagedResult(msgs, total, pagination), nil
}
