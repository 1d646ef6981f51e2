// Package entity 定义领域实体
package entity

import (
	"time"
)

// App 用户创建的应用，一次生成对应一个应用
type App struct {
	ID             string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID        string     `json:"owner_id" gorm:"type:uuid;index;not null"`
	Name           string     `json:"name" gorm:"type:varchar(255);not null"`
	InitPrompt     string     `json:"init_prompt" gorm:"type:text;not null"`
	GenerationType string     `json:"generation_type" gorm:"type:varchar(32)"`
	CoverURL       string     `json:"cover_url" gorm:"type:varchar(1024)"`
	DeployKey      string     `json:"deploy_key" gorm:"type:varchar(64);uniqueIndex"`
	DeployedAt     *time.Time `json:"deployed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (App) TableName() string {
	return "apps"
}

func NewApp(ownerID, name, initPrompt string) *App {
	now := time.Now()
	return &App{
		OwnerID:    ownerID,
		Name:       name,
		InitPrompt: initPrompt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
