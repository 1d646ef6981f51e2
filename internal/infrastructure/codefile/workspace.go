package codefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ai-code-generate-api/internal/config"
)

// Workspace 管理每个应用的代码输出目录。
// 所有写入都被限制在 outputRoot 之下，拒绝目录穿越。
type Workspace struct {
	root string
}

// NewWorkspace 创建代码输出工作区
func NewWorkspace(cfg *config.StorageConfig) (*Workspace, error) {
	root := cfg.OutputRoot
	if root == "" {
		root = "tmp/code_output"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output root: %w", err)
	}
	return &Workspace{root: abs}, nil
}

// AppDir 返回应用的代码目录路径（不保证已创建）
func (w *Workspace) AppDir(appID string) string {
	return filepath.Join(w.root, appID)
}

// EnsureAppDir 创建并返回应用代码目录
func (w *Workspace) EnsureAppDir(appID string) (string, error) {
	dir := w.AppDir(appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create app dir: %w", err)
	}
	return dir, nil
}

// WriteFile 在应用目录下写入相对路径文件，返回绝对路径
func (w *Workspace) WriteFile(appID, relPath, content string) (string, error) {
	dir, err := w.EnsureAppDir(appID)
	if err != nil {
		return "", err
	}

	cleaned := filepath.Clean(relPath)
	if cleaned == "." || filepath.IsAbs(cleaned) ||
		cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file path: %s", relPath)
	}

	target := filepath.Join(dir, cleaned)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent dir: %w", err)
	}

	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return target, nil
}
