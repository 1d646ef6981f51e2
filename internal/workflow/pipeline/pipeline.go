// Package pipeline 组装代码生成工作流的固定图结构
package pipeline

import (
	"golang.org/x/sync/semaphore"

	"ai-code-generate-api/internal/workflow/graph"
	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/internal/workflow/node"
	"ai-code-generate-api/internal/workflow/port"
)

// 固定流水线的节点名
const (
	NodeImagePlan     = "image_plan"
	NodeContent       = "content_collector"
	NodeIllustration  = "illustration_collector"
	NodeDiagram       = "diagram_collector"
	NodeLogo          = "logo_collector"
	NodeAggregator    = "image_aggregator"
	NodeEnhancer      = "prompt_enhancer"
	NodeRouter        = "router"
	NodeCodeGenerator = "code_generator"
	NodeQualityCheck  = "quality_check"
	NodeBuilder       = "project_builder"
)

// Deps 流水线节点的依赖集合
type Deps struct {
	Planner              port.ImagePlanner
	ContentSearcher      port.ImageSearcher
	IllustrationSearcher port.ImageSearcher
	DiagramRenderer      port.DiagramRenderer
	LogoGenerator        port.LogoGenerator
	TypeRouter           port.TypeRouter
	CodeGenerator        port.CodeGenerator
	QualityChecker       port.QualityChecker
	ProjectBuilder       port.ProjectBuilder
}

// Options 流水线执行参数
type Options struct {
	CollectorConcurrency int
	MaxQualityRetries    int
}

// Build 组装并编译固定的代码生成工作流：
//
//	start → image_plan → {四类收集} → image_aggregator → prompt_enhancer
//	      → router → code_generator → quality_check
//	      → (retry: code_generator | build: project_builder | skip: end)
//	project_builder → end
//
// sink 接收代码生成期间的原始模型/工具帧，可为 nil。
func Build(deps Deps, opts Options, sink model.FrameSink) (*graph.Compiled, error) {
	if opts.MaxQualityRetries <= 0 {
		opts.MaxQualityRetries = 3
	}
	if opts.CollectorConcurrency <= 0 {
		opts.CollectorConcurrency = 10
	}
	// 四个收集分支的任务共用一个有界工作池，突发任务排队而不是无限扩张
	pool := semaphore.NewWeighted(int64(opts.CollectorConcurrency))

	g := graph.New("code_generation").
		WithConcurrency(opts.CollectorConcurrency).
		AddNode(NodeImagePlan, "图片素材规划", node.NewImagePlan(deps.Planner)).
		AddNode(NodeContent, "内容图片收集", node.NewContentCollector(deps.ContentSearcher, pool)).
		AddNode(NodeIllustration, "插画收集", node.NewIllustrationCollector(deps.IllustrationSearcher, pool)).
		AddNode(NodeDiagram, "架构图生成", node.NewDiagramCollector(deps.DiagramRenderer, pool)).
		AddNode(NodeLogo, "Logo生成", node.NewLogoCollector(deps.LogoGenerator, pool)).
		AddNode(NodeAggregator, "素材汇总", node.NewImageAggregator()).
		AddNode(NodeEnhancer, "提示词增强", node.NewPromptEnhancer()).
		AddNode(NodeRouter, "生成类型路由", node.NewTypeRoute(deps.TypeRouter)).
		AddNode(NodeCodeGenerator, "代码生成", node.NewCodeGenerator(deps.CodeGenerator, sink)).
		AddNode(NodeQualityCheck, "质量检查", node.NewQualityCheck(deps.QualityChecker)).
		AddNode(NodeBuilder, "项目构建", node.NewProjectBuilder(deps.ProjectBuilder)).
		AddEdge(graph.Start, NodeImagePlan).
		AddParallel(NodeImagePlan, []string{NodeContent, NodeIllustration, NodeDiagram, NodeLogo}, NodeAggregator).
		AddEdge(NodeAggregator, NodeEnhancer).
		AddEdge(NodeEnhancer, NodeRouter).
		AddEdge(NodeRouter, NodeCodeGenerator).
		AddEdge(NodeCodeGenerator, NodeQualityCheck).
		AddConditional(NodeQualityCheck, node.QualityRoute(opts.MaxQualityRetries), map[string]string{
			node.RouteRetry: NodeCodeGenerator,
			node.RouteBuild: NodeBuilder,
			node.RouteSkip:  graph.End,
		}).
		AddEdge(NodeBuilder, graph.End)

	return g.Compile()
}
