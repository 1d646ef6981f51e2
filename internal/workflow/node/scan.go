package node

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// 单个文件纳入质检内容的大小上限
const maxScanFileSize = 64 * 1024

// 跳过的目录
var skippedDirs = map[string]struct{}{
	"node_modules": {},
	"dist":         {},
	"target":       {},
	".git":         {},
}

// 纳入质检的文件扩展名
var scannedExts = map[string]struct{}{
	".html": {}, ".htm": {}, ".css": {}, ".js": {},
	".json": {}, ".vue": {}, ".ts": {}, ".jsx": {}, ".tsx": {},
}

// BuildCodeContent 遍历生成目录，把可检查的源码文件拼装为质检输入。
// 跳过依赖目录、构建产物、隐藏文件，仅收录前端源码类扩展名。
func BuildCodeContent(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("generated code dir is empty")
	}

	var b strings.Builder
	b.WriteString("# 项目文件结构和代码内容\n")

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skippedDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if _, ok := scannedExts[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxScanFileSize {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		b.WriteString(fmt.Sprintf("\n## 文件: %s\n```\n%s\n```\n", filepath.ToSlash(rel), string(content)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk generated code dir: %w", err)
	}
	return b.String(), nil
}
