package node

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"ai-code-generate-api/internal/workflow/graph"
	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/internal/workflow/port"
	"ai-code-generate-api/pkg/logger"
	"ai-code-generate-api/pkg/metrics"
)

// NewContentCollector 内容图片收集节点：并发执行计划中的内容图搜索任务。
// 单个任务失败只记录日志并跳过，不影响其余任务。
func NewContentCollector(searcher port.ImageSearcher, pool *semaphore.Weighted) graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		if wc.ImagePlan == nil {
			return model.Delta{}, nil
		}
		images := collectTasks(ctx, pool, wc.ImagePlan.ContentImageTasks, model.CategoryContent,
			func(ctx context.Context, task model.ImageSearchTask) ([]model.ImageResource, error) {
				return searcher.Search(ctx, task)
			})
		return model.Delta{ContentImages: images}, nil
	}
}

// NewIllustrationCollector 插画收集节点
func NewIllustrationCollector(searcher port.ImageSearcher, pool *semaphore.Weighted) graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		if wc.ImagePlan == nil {
			return model.Delta{}, nil
		}
		images := collectTasks(ctx, pool, wc.ImagePlan.IllustrationTasks, model.CategoryIllustration,
			func(ctx context.Context, task model.ImageSearchTask) ([]model.ImageResource, error) {
				return searcher.Search(ctx, task)
			})
		return model.Delta{Illustrations: images}, nil
	}
}

// NewDiagramCollector 架构图收集节点：渲染计划中的 Mermaid 图并上传
func NewDiagramCollector(renderer port.DiagramRenderer, pool *semaphore.Weighted) graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		if wc.ImagePlan == nil {
			return model.Delta{}, nil
		}
		images := collectTasks(ctx, pool, wc.ImagePlan.DiagramTasks, model.CategoryArchitecture,
			func(ctx context.Context, task model.DiagramTask) ([]model.ImageResource, error) {
				img, err := renderer.Render(ctx, task)
				if err != nil {
					return nil, err
				}
				return []model.ImageResource{img}, nil
			})
		return model.Delta{DiagramImages: images}, nil
	}
}

// NewLogoCollector Logo 收集节点：按描述文生图并上传
func NewLogoCollector(gen port.LogoGenerator, pool *semaphore.Weighted) graph.Node {
	return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		if wc.ImagePlan == nil {
			return model.Delta{}, nil
		}
		images := collectTasks(ctx, pool, wc.ImagePlan.LogoTasks, model.CategoryLogo,
			func(ctx context.Context, task model.LogoTask) ([]model.ImageResource, error) {
				img, err := gen.Generate(ctx, task)
				if err != nil {
					return nil, err
				}
				return []model.ImageResource{img}, nil
			})
		return model.Delta{LogoImages: images}, nil
	}
}

// collectTasks 把一个分支内的全部任务派发到共享的有界工作池并发执行。
// 结果按任务声明顺序合并，保证确定性；单个任务失败只记录日志并跳过。
func collectTasks[T any](
	ctx context.Context,
	pool *semaphore.Weighted,
	tasks []T,
	cat model.ImageCategory,
	call func(context.Context, T) ([]model.ImageResource, error),
) []model.ImageResource {
	if len(tasks) == 0 {
		return nil
	}

	results := make([][]model.ImageResource, len(tasks))
	eg, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		i, task := i, task
		eg.Go(func() error {
			if err := pool.Acquire(gctx, 1); err != nil {
				return err
			}
			defer pool.Release(1)

			found, err := call(gctx, task)
			if err != nil {
				logger.Warn(gctx, "image task failed, skipping", "category", string(cat), "error", err.Error())
				metrics.ImagesCollectedTotal.WithLabelValues(string(cat), "error").Inc()
				return nil
			}
			for j := range found {
				found[j].Category = cat
			}
			metrics.ImagesCollectedTotal.WithLabelValues(string(cat), "ok").Add(float64(len(found)))
			results[i] = found
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logger.Warn(ctx, "image collection interrupted", "category", string(cat), "error", err.Error())
	}

	var images []model.ImageResource
	for _, r := range results {
		images = append(images, r...)
	}
	return images
}
