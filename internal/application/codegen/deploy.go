package codegen

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-code-generate-api/internal/config"
	"ai-code-generate-api/internal/domain/repository"
	"ai-code-generate-api/internal/infrastructure/codefile"
	"ai-code-generate-api/internal/infrastructure/messaging"
	"ai-code-generate-api/internal/workflow/port"
	"ai-code-generate-api/pkg/logger"

	wfmodel "ai-code-generate-api/internal/workflow/model"
)

// 异步部署的总超时
const deployTimeout = 10 * time.Minute

// DeployService 构建并部署生成的应用，实现 stream.BuildTrigger。
// 部署完成后发布截图任务，由截图 worker 更新应用封面。
type DeployService struct {
	apps       repository.AppRepository
	builder    port.ProjectBuilder
	workspace  *codefile.Workspace
	producer   *messaging.Producer
	deployRoot string
	publicURL  string
}

// NewDeployService 创建部署服务
func NewDeployService(
	apps repository.AppRepository,
	builder port.ProjectBuilder,
	workspace *codefile.Workspace,
	producer *messaging.Producer,
	cfg *config.StorageConfig,
) *DeployService {
	deployRoot := cfg.DeployRoot
	if deployRoot == "" {
		deployRoot = "tmp/deploy"
	}
	return &DeployService{
		apps:       apps,
		builder:    builder,
		workspace:  workspace,
		producer:   producer,
		deployRoot: deployRoot,
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
	}
}

// TriggerAsync 在后台执行构建与部署，不阻塞调用方
func (s *DeployService) TriggerAsync(appID string, genType wfmodel.GenerationType) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deployTimeout)
		defer cancel()

		ctx = logger.WithContext(ctx, logger.AppIDKey, appID)
		if err := s.deploy(ctx, appID, genType); err != nil {
			logger.Error(ctx, "async deploy failed", err, "app_id", appID, "generation_type", string(genType))
		}
	}()
}

// deploy 构建（仅 Vue 工程）、拷贝产物到部署目录、更新应用并发布截图任务
func (s *DeployService) deploy(ctx context.Context, appID string, genType wfmodel.GenerationType) error {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return err
	}

	source := s.workspace.AppDir(appID)
	if genType.IsBuildable() {
		// 工作流的构建节点可能已经产出 dist，存在则直接复用
		distDir := filepath.Join(source, "dist")
		if info, statErr := os.Stat(distDir); statErr == nil && info.IsDir() {
			source = distDir
		} else {
			source, err = s.builder.Build(ctx, source)
			if err != nil {
				return err
			}
		}
	}

	deployKey := app.DeployKey
	if deployKey == "" {
		deployKey = strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}

	target := filepath.Join(s.deployRoot, deployKey)
	if err := copyDir(source, target); err != nil {
		return fmt.Errorf("failed to copy deploy artifacts: %w", err)
	}

	now := time.Now()
	app.DeployKey = deployKey
	app.DeployedAt = &now
	if err := s.apps.Update(ctx, app); err != nil {
		return err
	}

	appURL := fmt.Sprintf("%s/static/%s/", s.publicURL, deployKey)
	if s.producer != nil {
		if _, err := s.producer.PublishScreenshotJob(ctx, &messaging.ScreenshotJobMessage{
			AppID:       app.ID,
			OwnerID:     app.OwnerID,
			DeployKey:   deployKey,
			AppURL:      appURL,
			RequestedAt: now,
		}); err != nil {
			// 截图失败不影响部署结果
			logger.Warn(ctx, "failed to publish screenshot job", "app_id", appID, "error", err.Error())
		}
	}

	logger.Info(ctx, "app deployed", "app_id", appID, "deploy_key", deployKey, "app_url", appURL)
	return nil
}

// copyDir 递归拷贝目录内容，目标目录已存在时覆盖同名文件
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()

		if _, err := io.Copy(out, in); err != nil {
			return err
		}
		return out.Close()
	})
}
