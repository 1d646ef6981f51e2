package node

import (
	"context"

	"ai-code-generate-api/internal/workflow/graph"
	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/internal/workflow/port"
	"ai-code-generate-api/pkg/logger"
	"ai-code-generate-api/pkg/metrics"
)

// 质检后的路由标签
const (
	RouteRetry = "retry"
	RouteBuild = "build"
	RouteSkip  = "skip"
)

// NewQualityCheck 质检节点：汇总生成目录的代码内容交给质检链。
// 质检链自身出错时降级为通过，避免基础设施故障阻塞交付。
// 质检通过时重试计数归零；是否重试由 QualityRoute 决定。
func NewQualityCheck(checker port.QualityChecker) graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		result := model.QualityResult{IsValid: true}
		degraded := ""

		content, err := BuildCodeContent(wc.GeneratedCodeDir)
		if err != nil {
			degraded = err.Error()
			logger.Warn(ctx, "failed to read generated code, treating as valid", "dir", wc.GeneratedCodeDir, "error", err.Error())
		} else {
			checked, err := checker.Check(ctx, content)
			if err != nil {
				degraded = err.Error()
				logger.Warn(ctx, "quality check failed, treating as valid", "error", err.Error())
			} else {
				result = checked
			}
		}

		delta := model.Delta{QualityResult: &result}
		if degraded != "" {
			delta.ErrorMessage = model.StrPtr("质量检查降级通过: " + degraded)
		}
		if result.IsValid {
			delta.RetryCount = model.IntPtr(0)
		} else {
			logger.Info(ctx, "quality check rejected code", "errors", len(result.Errors), "retry_count", wc.RetryCount)
		}
		return delta, nil
	}
}

// QualityRoute 质检后的条件路由：未通过且未达重试上限时递增计数并重试，
// 否则按生成类型进入构建或直接结束。计数在上限处冻结，不再增长。
// 路由函数运行在实时上下文上，计数递增随路由决策一并生效。
func QualityRoute(maxRetries int) graph.Router {
	return func(ctx context.Context, wc *model.WorkflowContext) string {
		if wc.QualityResult != nil && !wc.QualityResult.IsValid && wc.RetryCount < maxRetries {
			wc.RetryCount++
			metrics.WorkflowRetriesTotal.WithLabelValues(string(wc.GenerationType)).Inc()
			return RouteRetry
		}
		return RouteBuildOrSkip(wc.GenerationType)
	}
}

// RouteBuildOrSkip 按生成类型决定是否进入构建
func RouteBuildOrSkip(t model.GenerationType) string {
	if t.IsBuildable() {
		return RouteBuild
	}
	return RouteSkip
}
