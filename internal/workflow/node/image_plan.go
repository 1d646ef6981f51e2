// Package node 实现代码生成工作流的各个步骤节点。
// 节点通过构造函数注入依赖，执行时只读上下文、返回 Delta。
package node

import (
	"context"

	"ai-code-generate-api/internal/workflow/graph"
	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/internal/workflow/port"
	"ai-code-generate-api/pkg/logger"
)

// NewImagePlan 图片规划节点：产出四类素材的收集计划。
// 规划失败不阻断流程，降级为空计划。
func NewImagePlan(planner port.ImagePlanner) graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		plan, err := planner.PlanImages(ctx, wc.OriginalPrompt)
		if err != nil {
			logger.Warn(ctx, "image plan failed, falling back to empty plan", "error", err.Error())
			plan = model.ImageCollectionPlan{}
		}
		logger.Info(ctx, "image plan ready",
			"content_tasks", len(plan.ContentImageTasks),
			"illustration_tasks", len(plan.IllustrationTasks),
			"diagram_tasks", len(plan.DiagramTasks),
			"logo_tasks", len(plan.LogoTasks))
		return model.Delta{ImagePlan: &plan}, nil
	}
}
