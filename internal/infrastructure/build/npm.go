// Package build 提供前端项目构建实现
package build

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-code-generate-api/internal/config"
	"ai-code-generate-api/pkg/logger"
	"ai-code-generate-api/pkg/metrics"
)

var tracer = otel.Tracer("build")

// NpmBuilder 通过 npm 构建 Vue 项目
type NpmBuilder struct {
	npmPath string
	timeout time.Duration
}

// NewNpmBuilder 创建 npm 构建器
func NewNpmBuilder(cfg *config.BuilderConfig) *NpmBuilder {
	npmPath := cfg.NpmPath
	if npmPath == "" {
		npmPath = "npm"
	}
	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &NpmBuilder{
		npmPath: npmPath,
		timeout: timeout,
	}
}

// Build 执行 npm install + npm run build，返回 dist 产物目录
func (b *NpmBuilder) Build(ctx context.Context, projectDir string) (string, error) {
	ctx, span := tracer.Start(ctx, "build.Build",
		trace.WithAttributes(attribute.String("project_dir", projectDir)))
	defer span.End()

	if _, err := os.Stat(filepath.Join(projectDir, "package.json")); err != nil {
		return "", fmt.Errorf("package.json not found in %s: %w", projectDir, err)
	}

	if err := b.runCommand(ctx, projectDir, "install", "install"); err != nil {
		span.RecordError(err)
		metrics.BuildTotal.WithLabelValues("error").Inc()
		return "", err
	}

	if err := b.runCommand(ctx, projectDir, "build", "run", "build"); err != nil {
		span.RecordError(err)
		metrics.BuildTotal.WithLabelValues("error").Inc()
		return "", err
	}

	distDir := filepath.Join(projectDir, "dist")
	info, err := os.Stat(distDir)
	if err != nil || !info.IsDir() {
		metrics.BuildTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("build produced no dist directory in %s", projectDir)
	}

	metrics.BuildTotal.WithLabelValues("success").Inc()
	logger.Info(ctx, "project built", "project_dir", projectDir, "dist_dir", distDir)
	return distDir, nil
}

// runCommand 在项目目录下执行 npm 子命令
func (b *NpmBuilder) runCommand(ctx context.Context, dir, phase string, args ...string) error {
	cmdCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(cmdCtx, b.npmPath, args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	metrics.BuildDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("npm %s failed: %w, output: %s", phase, err, truncateOutput(output))
	}
	return nil
}

// truncateOutput 限制命令输出长度，避免错误信息过大
func truncateOutput(output []byte) string {
	const maxLen = 2048
	if len(output) <= maxLen {
		return string(output)
	}
	return string(output[len(output)-maxLen:])
}
