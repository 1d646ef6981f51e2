// Package storage 提供本地文件素材存储实现
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-code-generate-api/internal/config"
)

var tracer = otel.Tracer("storage")

// LocalAssetStore 将素材保存到本地目录，通过静态路由对外提供访问
type LocalAssetStore struct {
	assetDir  string
	publicURL string
}

// NewLocalAssetStore 创建本地素材存储
func NewLocalAssetStore(cfg *config.StorageConfig) (*LocalAssetStore, error) {
	assetDir := cfg.AssetDir
	if assetDir == "" {
		assetDir = "tmp/assets"
	}
	if err := os.MkdirAll(assetDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset dir: %w", err)
	}
	return &LocalAssetStore{
		assetDir:  assetDir,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Upload 保存素材内容并返回可访问 URL。
// key 只允许相对路径，拒绝目录穿越。
func (s *LocalAssetStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, span := tracer.Start(ctx, "storage.Upload",
		trace.WithAttributes(
			attribute.String("asset.key", key),
			attribute.Int("asset.size", len(data)),
		))
	defer span.End()

	cleaned := filepath.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid asset key: %s", key)
	}

	target := filepath.Join(s.assetDir, cleaned)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to create asset subdir: %w", err)
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to write asset: %w", err)
	}

	return s.publicURL + "/assets/" + filepath.ToSlash(cleaned), nil
}
