package entity

import (
	"time"
)

// ChatMessageType 对话消息类型
type ChatMessageType string

const (
	ChatMessageUser  ChatMessageType = "user"
	ChatMessageAi    ChatMessageType = "ai"
	ChatMessageError ChatMessageType = "error"
)

// ChatHistory 应用的对话历史记录
type ChatHistory struct {
	ID          string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AppID       string          `json:"app_id" gorm:"type:uuid;index;not null"`
	UserID      string          `json:"user_id" gorm:"type:uuid;index;not null"`
	MessageType ChatMessageType `json:"message_type" gorm:"type:varchar(16);not null"`
	Content     string          `json:"content" gorm:"type:text;not null"`
	Thinking    string          `json:"thinking,omitempty" gorm:"type:text"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (ChatHistory) TableName() string {
	return "chat_histories"
}

func NewChatHistory(appID, userID string, msgType ChatMessageType, content string) *ChatHistory {
	return &ChatHistory{
		AppID:       appID,
		UserID:      userID,
		MessageType: msgType,
		Content:     content,
		CreatedAt:   time.Now(),
	}
}
