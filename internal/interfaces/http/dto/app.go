// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"ai-code-generate-api/internal/domain/entity"
)

// CreateAppRequest 创建应用请求
type CreateAppRequest struct {
	InitPrompt string `json:"init_prompt" binding:"required,max=10000"`
}

// GenerateRequest 触发一次代码生成的请求。
// Message 为空时使用应用的初始需求描述。
type GenerateRequest struct {
	Message string `json:"message" binding:"max=10000"`
}

// AppResponse 应用响应
type AppResponse struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id,omitempty"`
	Name           string     `json:"name"`
	InitPrompt     string     `json:"init_prompt,omitempty"`
	GenerationType string     `json:"generation_type,omitempty"`
	CoverURL       string     `json:"cover_url,omitempty"`
	DeployKey      string     `json:"deploy_key,omitempty"`
	DeployedAt     *time.Time `json:"deployed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AppListResponse 应用列表响应
type AppListResponse struct {
	Apps []*AppResponse `json:"apps"`
}

// ToAppResponse 将领域实体转换为响应 DTO
func ToAppResponse(a *entity.App) *AppResponse {
	if a == nil {
		return nil
	}
	return &AppResponse{
		ID:             a.ID,
		OwnerID:        a.OwnerID,
		Name:           a.Name,
		InitPrompt:     a.InitPrompt,
		GenerationType: a.GenerationType,
		CoverURL:       a.CoverURL,
		DeployKey:      a.DeployKey,
		DeployedAt:     a.DeployedAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// ToAppListResponse 将领域实体列表转换为响应 DTO
func ToAppListResponse(apps []*entity.App) *AppListResponse {
	resp := &AppListResponse{
		Apps: make([]*AppResponse, 0, len(apps)),
	}
	for _, a := range apps {
		resp.Apps = append(resp.Apps, ToAppResponse(a))
	}
	return resp
}
