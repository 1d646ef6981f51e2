package node

import (
	"context"
	"encoding/json"

	"ai-code-generate-api/internal/workflow/graph"
	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/pkg/logger"
)

// NewImageAggregator 汇总节点：把四类素材按固定顺序拼成 JSON 列表，
// 同时清空已消费完的收集计划。
func NewImageAggregator() graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		all := wc.AllImages()
		listStr := "[]"
		if len(all) > 0 {
			b, err := json.Marshal(all)
			if err != nil {
				logger.Warn(ctx, "failed to marshal image list", "error", err.Error())
			} else {
				listStr = string(b)
			}
		}
		logger.Info(ctx, "images aggregated", "count", len(all))
		return model.Delta{
			ImageListStr:   model.StrPtr(listStr),
			ClearImagePlan: true,
		}, nil
	}
}
