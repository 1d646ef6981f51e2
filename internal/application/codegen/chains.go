// Package codegen 实现代码生成应用服务：LLM 链、生成门面与工作流编排
package codegen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	einoobs "ai-code-generate-api/internal/observability/eino"
	wfmodel "ai-code-generate-api/internal/workflow/model"
	wfnode "ai-code-generate-api/internal/workflow/node"
	workflowprompt "ai-code-generate-api/internal/workflow/prompt"
	"ai-code-generate-api/pkg/logger"
)

// LLM 用途标识，与配置 llm.purposes 对应
const (
	PurposePlan     = "plan"
	PurposeRouting  = "routing"
	PurposeQuality  = "quality"
	PurposeGenerate = "generate"
)

// ModelProvider 按用途提供 ChatModel
type ModelProvider interface {
	ForPurpose(ctx context.Context, purpose string) (model.BaseChatModel, error)
	ProviderName(purpose string) string
}

var defaultPromptRegistry = workflowprompt.NewRegistry()

// PlanningChain 图片素材规划链，实现 port.ImagePlanner
type PlanningChain struct {
	provider ModelProvider

	chainOnce sync.Once
	chain     compose.Runnable[string, *schema.Message]
	chainErr  error
}

// NewPlanningChain 创建规划链
func NewPlanningChain(provider ModelProvider) *PlanningChain {
	return &PlanningChain{provider: provider}
}

// PlanImages 规划图片收集任务
func (c *PlanningChain) PlanImages(ctx context.Context, prompt string) (wfmodel.ImageCollectionPlan, error) {
	chain, err := c.getChain()
	if err != nil {
		return wfmodel.ImageCollectionPlan{}, err
	}

	msg, err := chain.Invoke(ctx, prompt)
	if err != nil {
		return wfmodel.ImageCollectionPlan{}, err
	}

	var plan wfmodel.ImageCollectionPlan
	raw := wfnode.ExtractJSONObject(msg.Content)
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return wfmodel.ImageCollectionPlan{}, fmt.Errorf("failed to parse image plan: %w", err)
	}
	return plan, nil
}

func (c *PlanningChain) getChain() (compose.Runnable[string, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = buildJSONChain(jsonChainSpec{
			name:     "image_plan",
			promptID: workflowprompt.PromptImagePlanV1,
			purpose:  PurposePlan,
			provider: c.provider,
			varsFunc: func(prompt string) map[string]any {
				return map[string]any{"prompt": strings.TrimSpace(prompt)}
			},
			schemaFunc: imagePlanJSONSchema,
		})
	})
	return c.chain, c.chainErr
}

// RoutingChain 生成类型路由链，实现 port.TypeRouter
type RoutingChain struct {
	provider ModelProvider

	chainOnce sync.Once
	chain     compose.Runnable[string, *schema.Message]
	chainErr  error
}

// NewRoutingChain 创建路由链
func NewRoutingChain(provider ModelProvider) *RoutingChain {
	return &RoutingChain{provider: provider}
}

// RouteType 选择代码生成类型
func (c *RoutingChain) RouteType(ctx context.Context, prompt string) (wfmodel.GenerationType, error) {
	chain, err := c.getChain()
	if err != nil {
		return "", err
	}

	msg, err := chain.Invoke(ctx, prompt)
	if err != nil {
		return "", err
	}

	var out struct {
		GenerationType string `json:"generation_type"`
	}
	raw := wfnode.ExtractJSONObject(msg.Content)
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("failed to parse routing result: %w", err)
	}
	genType, ok := wfmodel.ParseGenerationType(strings.TrimSpace(out.GenerationType))
	if !ok {
		return "", fmt.Errorf("unknown generation type: %s", out.GenerationType)
	}
	return genType, nil
}

func (c *RoutingChain) getChain() (compose.Runnable[string, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = buildJSONChain(jsonChainSpec{
			name:     "routing",
			promptID: workflowprompt.PromptRoutingV1,
			purpose:  PurposeRouting,
			provider: c.provider,
			varsFunc: func(prompt string) map[string]any {
				return map[string]any{"prompt": strings.TrimSpace(prompt)}
			},
			schemaFunc: routingJSONSchema,
		})
	})
	return c.chain, c.chainErr
}

// QualityChain 代码质检链，实现 port.QualityChecker
type QualityChain struct {
	provider ModelProvider

	chainOnce sync.Once
	chain     compose.Runnable[string, *schema.Message]
	chainErr  error
}

// NewQualityChain 创建质检链
func NewQualityChain(provider ModelProvider) *QualityChain {
	return &QualityChain{provider: provider}
}

// Check 对项目代码内容做质检
func (c *QualityChain) Check(ctx context.Context, codeContent string) (wfmodel.QualityResult, error) {
	chain, err := c.getChain()
	if err != nil {
		return wfmodel.QualityResult{}, err
	}

	msg, err := chain.Invoke(ctx, codeContent)
	if err != nil {
		return wfmodel.QualityResult{}, err
	}

	var result wfmodel.QualityResult
	raw := wfnode.ExtractJSONObject(msg.Content)
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return wfmodel.QualityResult{}, fmt.Errorf("failed to parse quality result: %w", err)
	}
	return result, nil
}

func (c *QualityChain) getChain() (compose.Runnable[string, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = buildJSONChain(jsonChainSpec{
			name:     "quality_check",
			promptID: workflowprompt.PromptQualityCheckV1,
			purpose:  PurposeQuality,
			provider: c.provider,
			varsFunc: func(codeContent string) map[string]any {
				return map[string]any{"code_content": codeContent}
			},
			schemaFunc: qualityJSONSchema,
		})
	})
	return c.chain, c.chainErr
}

// jsonChainSpec 构造“模板 → LLM（JSON 输出）”链的参数
type jsonChainSpec struct {
	name       string
	promptID   workflowprompt.PromptID
	purpose    string
	provider   ModelProvider
	varsFunc   func(input string) map[string]any
	schemaFunc func() map[string]any
}

type jsonChainState struct {
	Input    string
	Messages []*schema.Message
	OutMsg   *schema.Message
}

// buildJSONChain 组装一条要求 JSON 输出的链。
// json_schema 不被 provider 支持时回退到纯提示词约束。
func buildJSONChain(spec jsonChainSpec) (compose.Runnable[string, *schema.Message], error) {
	chain := compose.NewChain[string, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, input string) (*jsonChainState, error) {
			return &jsonChainState{Input: input}, nil
		}),
		compose.WithNodeName(spec.name+".init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *jsonChainState) (*jsonChainState, error) {
			if st == nil {
				return nil, fmt.Errorf("state is nil")
			}
			tpl, err := defaultPromptRegistry.ChatTemplate(spec.promptID)
			if err != nil {
				return nil, err
			}
			msgs, err := tpl.Format(ctx, spec.varsFunc(st.Input))
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName(spec.name+".template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *jsonChainState) (*jsonChainState, error) {
			if st == nil {
				return nil, fmt.Errorf("state is nil")
			}
			if spec.provider == nil {
				return nil, fmt.Errorf("llm provider not configured")
			}

			chatModel, err := spec.provider.ForPurpose(ctx, spec.purpose)
			if err != nil {
				return nil, err
			}
			ctx = einoobs.WithProvider(ctx, spec.provider.ProviderName(spec.purpose))

			outMsg, err := chatModel.Generate(ctx, st.Messages, jsonSchemaOption(spec.name, spec.schemaFunc()))
			if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"chain", spec.name,
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName(spec.name+".llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *jsonChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName(spec.name+".finalize"),
	)

	return chain.Compile(context.Background())
}

func jsonSchemaOption(name string, jsonSchema map[string]any) model.Option {
	return openaiopts.WithExtraFields(map[string]any{
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"strict": false,
				"schema": jsonSchema,
			},
		},
	})
}

func imagePlanJSONSchema() map[string]any {
	searchTask := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"query_en", "query_zh"},
		"properties": map[string]any{
			"query_en": map[string]any{"type": "string"},
			"query_zh": map[string]any{"type": "string"},
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"content_image_tasks", "illustration_tasks", "diagram_tasks", "logo_tasks"},
		"properties": map[string]any{
			"content_image_tasks": map[string]any{"type": "array", "items": searchTask},
			"illustration_tasks":  map[string]any{"type": "array", "items": searchTask},
			"diagram_tasks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"mermaid_code", "description"},
					"properties": map[string]any{
						"mermaid_code": map[string]any{"type": "string"},
						"description":  map[string]any{"type": "string"},
					},
				},
			},
			"logo_tasks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"description"},
					"properties": map[string]any{
						"description": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

func routingJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"generation_type"},
		"properties": map[string]any{
			"generation_type": map[string]any{
				"type": "string",
				"enum": []any{"HTML", "MULTI_FILE", "VUE_PROJECT"},
			},
		},
	}
}

func qualityJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"is_valid"},
		"properties": map[string]any{
			"is_valid":    map[string]any{"type": "boolean"},
			"errors":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"suggestions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
}
