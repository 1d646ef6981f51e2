// Package codefile 负责生成代码的解析与落盘
package codefile

import (
	"regexp"
	"strings"
)

var (
	htmlBlockRe = regexp.MustCompile("(?s)```html\\s*\n(.*?)```")
	cssBlockRe  = regexp.MustCompile("(?s)```css\\s*\n(.*?)```")
	jsBlockRe   = regexp.MustCompile("(?s)```(?:js|javascript)\\s*\n(.*?)```")
)

// HTMLResult 单页 HTML 解析结果
type HTMLResult struct {
	HTMLCode string
}

// MultiFileResult 多文件（HTML/CSS/JS）解析结果
type MultiFileResult struct {
	HTMLCode string
	CSSCode  string
	JSCode   string
}

// ParseHTML 从模型输出中提取 HTML 代码块。
// 没有代码块时将整段输出视为 HTML（模型偶尔直接返回裸代码）。
func ParseHTML(text string) HTMLResult {
	if m := htmlBlockRe.FindStringSubmatch(text); m != nil {
		return HTMLResult{HTMLCode: strings.TrimSpace(m[1])}
	}
	return HTMLResult{HTMLCode: strings.TrimSpace(text)}
}

// ParseMultiFile 从模型输出中提取 HTML/CSS/JS 三个代码块，缺失的为空
func ParseMultiFile(text string) MultiFileResult {
	result := MultiFileResult{}
	if m := htmlBlockRe.FindStringSubmatch(text); m != nil {
		result.HTMLCode = strings.TrimSpace(m[1])
	}
	if m := cssBlockRe.FindStringSubmatch(text); m != nil {
		result.CSSCode = strings.TrimSpace(m[1])
	}
	if m := jsBlockRe.FindStringSubmatch(text); m != nil {
		result.JSCode = strings.TrimSpace(m[1])
	}
	if result.HTMLCode == "" && result.CSSCode == "" && result.JSCode == "" {
		result.HTMLCode = strings.TrimSpace(text)
	}
	return result
}
