package codegen

import (
	"context"
	"fmt"

	"ai-code-generate-api/internal/domain/repository"
	"ai-code-generate-api/internal/infrastructure/messaging"
	"ai-code-generate-api/internal/workflow/port"
	apperrors "ai-code-generate-api/pkg/errors"
	"ai-code-generate-api/pkg/logger"
)

// CoverService 消费截图任务：截图、上传、回写应用封面
type CoverService struct {
	apps       repository.AppRepository
	appService *AppService
	capturer   port.ScreenshotCapturer
	store      port.AssetStore
}

// NewCoverService 创建封面服务
func NewCoverService(
	apps repository.AppRepository,
	appService *AppService,
	capturer port.ScreenshotCapturer,
	store port.AssetStore,
) *CoverService {
	return &CoverService{
		apps:       apps,
		appService: appService,
		capturer:   capturer,
		store:      store,
	}
}

// HandleScreenshotJob 处理一条截图任务消息，注册到 messaging.Consumer
func (s *CoverService) HandleScreenshotJob(ctx context.Context, msg *messaging.Message) error {
	var job messaging.ScreenshotJobMessage
	if err := msg.UnmarshalPayload(&job); err != nil {
		return fmt.Errorf("failed to unmarshal screenshot job: %w", err)
	}

	data, err := s.capturer.Capture(ctx, job.AppURL)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeScreenshotFailed, "failed to capture screenshot")
	}

	coverURL, err := s.store.Upload(ctx, "covers/"+job.AppID+".png", data, "image/png")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "failed to upload cover")
	}

	app, err := s.apps.GetByID(ctx, job.AppID)
	if err != nil {
		return err
	}
	app.CoverURL = coverURL
	if err := s.apps.Update(ctx, app); err != nil {
		return err
	}
	s.appService.InvalidateCache(ctx, job.AppID, app.OwnerID)

	logger.Info(ctx, "app cover updated", "app_id", job.AppID, "cover_url", coverURL)
	return nil
}
