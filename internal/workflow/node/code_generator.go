package node

import (
	"context"

	"ai-code-generate-api/internal/workflow/graph"
	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/internal/workflow/port"
)

// NewCodeGenerator 代码生成节点：调用生成门面产出代码并写盘。
// 生成期间的模型/工具帧通过 sink 实时流出。
func NewCodeGenerator(gen port.CodeGenerator, sink model.FrameSink) graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		dir, err := gen.Generate(ctx, wc.AppID, wc.EnhancedPrompt, wc.GenerationType, sink)
		if err != nil {
			return model.Delta{}, err
		}
		return model.Delta{GeneratedCodeDir: model.StrPtr(dir)}, nil
	}
}
