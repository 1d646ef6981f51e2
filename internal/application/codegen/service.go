package codegen

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"ai-code-generate-api/internal/domain/entity"
	"ai-code-generate-api/internal/domain/repository"
	"ai-code-generate-api/internal/infrastructure/codefile"
	"ai-code-generate-api/internal/infrastructure/persistence/redis"
	"ai-code-generate-api/internal/workflow/port"
	"ai-code-generate-api/pkg/logger"

	wfmodel "ai-code-generate-api/internal/workflow/model"
)

// 应用名称取自需求描述的前若干字符
const appNameMaxLen = 30

// 应用元数据缓存 TTL
const appCacheTTL = 10 * time.Minute

// AppService 应用的创建与查询
type AppService struct {
	apps      repository.AppRepository
	cache     *redis.Cache
	router    port.TypeRouter
	workspace *codefile.Workspace
}

// NewAppService 创建应用服务
func NewAppService(
	apps repository.AppRepository,
	cache *redis.Cache,
	router port.TypeRouter,
	workspace *codefile.Workspace,
) *AppService {
	return &AppService{
		apps:      apps,
		cache:     cache,
		router:    router,
		workspace: workspace,
	}
}

// CreateApp 创建应用。生成类型在创建时由路由链预判，
// 后续工作流的路由节点仍可能修正它。
func (s *AppService) CreateApp(ctx context.Context, ownerID, initPrompt string) (*entity.App, error) {
	app := entity.NewApp(ownerID, deriveAppName(initPrompt), initPrompt)

	genType, err := s.router.RouteType(ctx, initPrompt)
	if err != nil {
		logger.Warn(ctx, "type routing failed at creation, default to HTML", "error", err.Error())
		genType = wfmodel.GenTypeHTML
	}
	app.GenerationType = string(genType)

	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// GetApp 查询应用，走缓存（singleflight 防击穿）
func (s *AppService) GetApp(ctx context.Context, id string) (*entity.App, error) {
	if s.cache == nil {
		return s.apps.GetByID(ctx, id)
	}

	data, err := s.cache.GetOrLoadSafe(ctx, redis.BuildAppKey(id), appCacheTTL, func() (interface{}, error) {
		return s.apps.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	var app entity.App
	if err := json.Unmarshal(data, &app); err != nil {
		// 缓存内容损坏时回源
		logger.Warn(ctx, "corrupted app cache, falling back to db", "app_id", id, "error", err.Error())
		return s.apps.GetByID(ctx, id)
	}
	return &app, nil
}

// ListApps 分页查询用户的应用
func (s *AppService) ListApps(ctx context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.App], error) {
	return s.apps.ListByOwner(ctx, ownerID, pagination)
}

// DeleteApp 删除应用及其生成目录，并使缓存失效
func (s *AppService) DeleteApp(ctx context.Context, id, ownerID string) error {
	if err := s.apps.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateApp(ctx, id, ownerID); err != nil {
			logger.Warn(ctx, "failed to invalidate app cache", "app_id", id, "error", err.Error())
		}
	}
	if err := os.RemoveAll(s.workspace.AppDir(id)); err != nil {
		logger.Warn(ctx, "failed to remove app output dir", "app_id", id, "error", err.Error())
	}
	return nil
}

// InvalidateCache 使单个应用的缓存失效
func (s *AppService) InvalidateCache(ctx context.Context, id, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateApp(ctx, id, ownerID); err != nil {
		logger.Warn(ctx, "failed to invalidate app cache", "app_id", id, "error", err.Error())
	}
}

// deriveAppName 从需求描述截取应用名
func deriveAppName(prompt string) string {
	name := strings.TrimSpace(prompt)
	runes := []rune(name)
	if len(runes) > appNameMaxLen {
		return string(runes[:appNameMaxLen])
	}
	if name == "" {
		return "未命名应用"
	}
	return name
}
