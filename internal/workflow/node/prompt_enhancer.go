package node

import (
	"context"
	"fmt"
	"strings"

	"ai-code-generate-api/internal/workflow/graph"
	"ai-code-generate-api/internal/workflow/model"
)

// NewPromptEnhancer 提示词增强节点：把已收集的素材以 Markdown
// 清单附加到原始提示词后。没有素材时增强结果等于原始提示词。
func NewPromptEnhancer() graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		enhanced := EnhancePrompt(wc.OriginalPrompt, wc.AllImages())
		return model.Delta{EnhancedPrompt: model.StrPtr(enhanced)}, nil
	}
}

// EnhancePrompt 组装带素材清单的提示词
func EnhancePrompt(prompt string, images []model.ImageResource) string {
	if len(images) == 0 {
		return prompt
	}

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\n## 可用素材\n")
	b.WriteString("生成页面时请优先使用以下素材：\n")
	for _, img := range images {
		desc := img.Description
		if desc == "" {
			desc = img.Category.Label()
		}
		b.WriteString(fmt.Sprintf("- [%s] %s: %s\n", img.Category.Label(), desc, img.URL))
	}
	return b.String()
}
