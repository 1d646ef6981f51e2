package codegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"ai-code-generate-api/internal/infrastructure/codefile"
	einoobs "ai-code-generate-api/internal/observability/eino"
	apperrors "ai-code-generate-api/pkg/errors"
	"ai-code-generate-api/pkg/logger"

	wfmodel "ai-code-generate-api/internal/workflow/model"
	workflowprompt "ai-code-generate-api/internal/workflow/prompt"
)

// writeFile 工具调用轮次上限，防止模型循环不出
const maxToolTurns = 40

// Generator 按生成类型调度具体的生成策略，实现 port.CodeGenerator
type Generator struct {
	provider  ModelProvider
	workspace *codefile.Workspace
}

// NewGenerator 创建生成门面
func NewGenerator(provider ModelProvider, workspace *codefile.Workspace) *Generator {
	return &Generator{provider: provider, workspace: workspace}
}

// Generate 生成代码并写入应用目录，返回生成目录。
// 生成过程中的模型输出与工具事件实时写入 sink。
func (g *Generator) Generate(ctx context.Context, appID, prompt string, genType wfmodel.GenerationType, sink wfmodel.FrameSink) (string, error) {
	switch genType {
	case wfmodel.GenTypeHTML:
		return g.generateHTML(ctx, appID, prompt, sink)
	case wfmodel.GenTypeMultiFile:
		return g.generateMultiFile(ctx, appID, prompt, sink)
	case wfmodel.GenTypeVueProject:
		return g.generateVueProject(ctx, appID, prompt, sink)
	default:
		return "", apperrors.New(apperrors.CodeGenerationFailed, fmt.Sprintf("unsupported generation type: %s", genType))
	}
}

// generateHTML 流式生成单页 HTML
func (g *Generator) generateHTML(ctx context.Context, appID, prompt string, sink wfmodel.FrameSink) (string, error) {
	text, err := g.streamCompletion(ctx, workflowprompt.PromptGenHTMLV1, prompt, sink)
	if err != nil {
		return "", err
	}

	dir, err := g.workspace.SaveHTML(appID, codefile.ParseHTML(text))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeCodeParseFailed, "failed to save html result")
	}
	return dir, nil
}

// generateMultiFile 流式生成多文件静态站点
func (g *Generator) generateMultiFile(ctx context.Context, appID, prompt string, sink wfmodel.FrameSink) (string, error) {
	text, err := g.streamCompletion(ctx, workflowprompt.PromptGenMultiFileV1, prompt, sink)
	if err != nil {
		return "", err
	}

	dir, err := g.workspace.SaveMultiFile(appID, codefile.ParseMultiFile(text))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeCodeParseFailed, "failed to save multi-file result")
	}
	return dir, nil
}

// streamCompletion 执行流式对话补全，chunk 实时转发为 AiResponse 帧，
// 返回拼接后的完整文本
func (g *Generator) streamCompletion(ctx context.Context, promptID workflowprompt.PromptID, prompt string, sink wfmodel.FrameSink) (string, error) {
	msgs, err := formatGenerateMessages(ctx, promptID, prompt)
	if err != nil {
		return "", err
	}

	chatModel, err := g.provider.ForPurpose(ctx, PurposeGenerate)
	if err != nil {
		return "", err
	}
	ctx = einoobs.WithProvider(ctx, g.provider.ProviderName(PurposeGenerate))

	reader, err := chatModel.Stream(ctx, msgs)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "failed to start generation stream")
	}
	defer reader.Close()

	var full strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "generation stream failed")
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if sink != nil {
			sink.Send(wfmodel.AiResponse{Data: chunk.Content})
		}
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", apperrors.New(apperrors.CodeGenerationFailed, "generation produced empty output")
	}
	return text, nil
}

// writeFile 工具的入参
type writeFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// generateVueProject 通过 writeFile 工具循环生成 Vue 工程
func (g *Generator) generateVueProject(ctx context.Context, appID, prompt string, sink wfmodel.FrameSink) (string, error) {
	system, err := defaultPromptRegistry.SystemText(workflowprompt.PromptGenVueProjectV1)
	if err != nil {
		return "", err
	}

	chatModel, err := g.provider.ForPurpose(ctx, PurposeGenerate)
	if err != nil {
		return "", err
	}
	ctx = einoobs.WithProvider(ctx, g.provider.ProviderName(PurposeGenerate))

	msgs := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	}

	filesWritten := 0
	for turn := 0; turn < maxToolTurns; turn++ {
		out, err := chatModel.Generate(ctx, msgs, model.WithTools([]*schema.ToolInfo{writeFileToolInfo()}))
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "vue generation turn failed")
		}

		if out.Content != "" && sink != nil {
			sink.Send(wfmodel.AiResponse{Data: out.Content})
		}

		if len(out.ToolCalls) == 0 {
			if filesWritten == 0 {
				return "", apperrors.New(apperrors.CodeGenerationFailed, "vue generation wrote no files")
			}
			return g.workspace.AppDir(appID), nil
		}

		msgs = append(msgs, out)
		for _, call := range out.ToolCalls {
			if sink != nil {
				sink.Send(wfmodel.ToolRequest{
					ID:        call.ID,
					Name:      call.Function.Name,
					Arguments: call.Function.Arguments,
				})
			}

			result := g.executeWriteFile(ctx, appID, call.Function.Arguments)
			if strings.HasPrefix(result, "写入成功") {
				filesWritten++
			}

			if sink != nil {
				sink.Send(wfmodel.ToolExecuted{
					ID:     call.ID,
					Name:   call.Function.Name,
					Result: result,
				})
			}
			msgs = append(msgs, schema.ToolMessage(result, call.ID))
		}
	}

	if filesWritten == 0 {
		return "", apperrors.New(apperrors.CodeGenerationFailed, "vue generation exceeded tool turn limit without writing files")
	}
	logger.Warn(ctx, "vue generation hit tool turn limit", "app_id", appID, "files_written", filesWritten)
	return g.workspace.AppDir(appID), nil
}

// executeWriteFile 执行 writeFile 工具，失败信息作为工具结果反馈给模型
func (g *Generator) executeWriteFile(ctx context.Context, appID, arguments string) string {
	var args writeFileArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "参数解析失败: " + err.Error()
	}
	if strings.TrimSpace(args.Path) == "" {
		return "参数错误: path 不能为空"
	}

	if _, err := g.workspace.WriteFile(appID, args.Path, args.Content); err != nil {
		logger.Warn(ctx, "writeFile tool failed", "app_id", appID, "path", args.Path, "error", err.Error())
		return "写入失败: " + err.Error()
	}
	return "写入成功: " + args.Path
}

func writeFileToolInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "writeFile",
		Desc: "将文件内容写入工程目录。path 为相对于工程根目录的相对路径。",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path": {
				Type:     schema.String,
				Desc:     "相对文件路径，例如 src/App.vue",
				Required: true,
			},
			"content": {
				Type:     schema.String,
				Desc:     "完整的文件内容",
				Required: true,
			},
		}),
	}
}

func formatGenerateMessages(ctx context.Context, promptID workflowprompt.PromptID, prompt string) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(promptID)
	if err != nil {
		return nil, err
	}
	return tpl.Format(ctx, map[string]any{"prompt": prompt})
}
