package node

import (
	"context"

	"ai-code-generate-api/internal/workflow/graph"
	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/internal/workflow/port"
	"ai-code-generate-api/pkg/logger"
)

// NewTypeRoute 路由节点：由 LLM 根据用户的原始需求判断生成类型。
// 路由失败降级为 HTML，保证流程继续。
func NewTypeRoute(router port.TypeRouter) graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		genType, err := router.RouteType(ctx, wc.OriginalPrompt)
		if err != nil {
			logger.Warn(ctx, "type routing failed, defaulting to HTML", "error", err.Error())
			genType = model.GenTypeHTML
		}
		logger.Info(ctx, "generation type selected", "type", string(genType))
		return model.Delta{GenerationType: &genType}, nil
	}
}
