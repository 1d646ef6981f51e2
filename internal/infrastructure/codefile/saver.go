package codefile

import (
	"fmt"
)

// SaveHTML 将单页 HTML 结果写入应用目录，返回目录路径
func (w *Workspace) SaveHTML(appID string, result HTMLResult) (string, error) {
	if result.HTMLCode == "" {
		return "", fmt.Errorf("html result is empty")
	}
	if _, err := w.WriteFile(appID, "index.html", result.HTMLCode); err != nil {
		return "", err
	}
	return w.AppDir(appID), nil
}

// SaveMultiFile 将多文件结果写入应用目录，空的部分跳过，返回目录路径
func (w *Workspace) SaveMultiFile(appID string, result MultiFileResult) (string, error) {
	if result.HTMLCode == "" && result.CSSCode == "" && result.JSCode == "" {
		return "", fmt.Errorf("multi-file result is empty")
	}

	files := map[string]string{
		"index.html": result.HTMLCode,
		"style.css":  result.CSSCode,
		"script.js":  result.JSCode,
	}
	for name, content := range files {
		if content == "" {
			continue
		}
		if _, err := w.WriteFile(appID, name, content); err != nil {
			return "", err
		}
	}
	return w.AppDir(appID), nil
}
