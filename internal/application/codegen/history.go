package codegen

import (
	"context"

	"ai-code-generate-api/internal/domain/entity"
	"ai-code-generate-api/internal/domain/repository"
)

// HistoryService 对话历史落库，实现 stream.HistoryRecorder
type HistoryService struct {
	repo repository.ChatHistoryRepository
}

// NewHistoryService 创建对话历史服务
func NewHistoryService(repo repository.ChatHistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

// RecordUserMessage 记录用户消息
func (s *HistoryService) RecordUserMessage(ctx context.Context, appID, userID, message string) error {
	return s.repo.Create(ctx, entity.NewChatHistory(appID, userID, entity.ChatMessageUser, message))
}

// RecordAiMessage 记录 AI 回复，thinking 为留痕的思考步骤 JSON，可为空
func (s *HistoryService) RecordAiMessage(ctx context.Context, appID, userID, message, thinking string) error {
	h := entity.NewChatHistory(appID, userID, entity.ChatMessageAi, message)
	h.Thinking = thinking
	return s.repo.Create(ctx, h)
}

// RecordErrorMessage 记录错误消息
func (s *HistoryService) RecordErrorMessage(ctx context.Context, appID, userID, message string) error {
	return s.repo.Create(ctx, entity.NewChatHistory(appID, userID, entity.ChatMessageError, message))
}

// ListByApp 分页查询应用的对话历史
func (s *HistoryService) ListByApp(ctx context.Context, appID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ChatHistory], error) {
	return s.repo.ListByApp(ctx, appID, pagination)
}
