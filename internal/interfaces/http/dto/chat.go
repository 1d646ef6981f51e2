// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"ai-code-generate-api/internal/domain/entity"
)

// ChatMessageResponse 对话消息响应
type ChatMessageResponse struct {
	ID          string    `json:"id"`
	AppID       string    `json:"app_id"`
	MessageType string    `json:"message_type"`
	Content     string    `json:"content"`
	Thinking    string    `json:"thinking,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatHistoryResponse 对话历史列表响应
type ChatHistoryResponse struct {
	Messages []*ChatMessageResponse `json:"messages"`
}

// ToChatMessageResponse 将领域实体转换为响应 DTO
func ToChatMessageResponse(m *entity.ChatHistory) *ChatMessageResponse {
	if m == nil {
		return nil
	}
	return &ChatMessageResponse{
		ID:          m.ID,
		AppID:       m.AppID,
		MessageType: string(m.MessageType),
		Content:     m.Content,
		Thinking:    m.Thinking,
		CreatedAt:   m.CreatedAt,
	}
}

// ToChatHistoryResponse 将领域实体列表转换为响应 DTO
func ToChatHistoryResponse(messages []*entity.ChatHistory) *ChatHistoryResponse {
	resp := &ChatHistoryResponse{
		Messages: make([]*ChatMessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, ToChatMessageResponse(m))
	}
	return resp
}
