package node

import (
	"context"

	"ai-code-generate-api/internal/workflow/graph"
	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/internal/workflow/port"
	"ai-code-generate-api/pkg/logger"
)

// NewProjectBuilder 构建节点：对工程类产物执行前端构建。
// 构建失败降级为使用源码目录，不中止工作流。
func NewProjectBuilder(builder port.ProjectBuilder) graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		resultDir, err := builder.Build(ctx, wc.GeneratedCodeDir)
		if err != nil {
			logger.Warn(ctx, "project build failed, falling back to source dir",
				"dir", wc.GeneratedCodeDir, "error", err.Error())
			return model.Delta{
				BuildResultDir: model.StrPtr(wc.GeneratedCodeDir),
				ErrorMessage:   model.StrPtr("项目构建失败: " + err.Error()),
			}, nil
		}
		return model.Delta{BuildResultDir: model.StrPtr(resultDir)}, nil
	}
}
