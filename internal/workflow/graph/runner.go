package graph

import (
	"context"
	"fmt"
	"time"

	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/pkg/logger"
	"ai-code-generate-api/pkg/metrics"
	"ai-code-generate-api/pkg/tracer"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Compiled 校验通过的可执行工作流图
type Compiled struct {
	name        string
	nodes       map[string]Node
	descs       map[string]string
	edges       map[string]string
	conds       map[string]conditional
	parallel    *parallelGroup
	concurrency int
	startTarget string
	steps       map[string]int
}

// Step 返回节点的步骤编号（1 起始，按注册顺序）
func (c *Compiled) Step(name string) int {
	return c.steps[name]
}

// Run 从起点执行图直到终点。每个节点完成后其 Delta 先合并到上下文，
// 再执行后继节点；任一节点出错立即中止并返回该错误。
// sink 可为 nil，此时不发进度帧。
func (c *Compiled) Run(ctx context.Context, wc *model.WorkflowContext, sink model.FrameSink) error {
	ctx, span := tracer.Start(ctx, "graph."+c.name+".Run")
	defer span.End()

	cur := c.startTarget
	for cur != End {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.runStep(ctx, cur, wc, sink); err != nil {
			span.RecordError(err)
			return err
		}

		if p := c.parallel; p != nil && p.source == cur {
			if err := c.runBranches(ctx, wc, sink); err != nil {
				span.RecordError(err)
				return err
			}
			cur = p.join
			continue
		}

		if cond, ok := c.conds[cur]; ok {
			label := cond.router(ctx, wc)
			target, ok := cond.targets[label]
			if !ok {
				err := fmt.Errorf("graph %s: node %s routed to unmapped label %q", c.name, cur, label)
				span.RecordError(err)
				return err
			}
			logger.Debug(ctx, "workflow routed", "graph", c.name, "node", cur, "label", label, "target", target)
			cur = target
			continue
		}

		cur = c.edges[cur]
	}
	return nil
}

// runStep 执行单个节点并合并其 Delta
func (c *Compiled) runStep(ctx context.Context, name string, wc *model.WorkflowContext, sink model.FrameSink) error {
	ctx, span := tracer.Start(ctx, "graph.step."+name,
		trace.WithAttributes(attribute.String("workflow.graph", c.name)))
	defer span.End()

	start := time.Now()
	delta, err := c.nodes[name](ctx, wc)
	metrics.WorkflowStepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("workflow step %s: %w", name, err)
	}
	delta.Apply(wc)

	c.emitCompleted(name, sink)
	logger.Info(ctx, "workflow step completed", "graph", c.name, "step", name, "duration", time.Since(start).String())
	return nil
}

// runBranches 并发执行并行组的所有分支。每个分支拿到上下文快照，
// 分支 Delta 按声明顺序合并，保证结果确定性。
func (c *Compiled) runBranches(ctx context.Context, wc *model.WorkflowContext, sink model.FrameSink) error {
	p := c.parallel
	ctx, span := tracer.Start(ctx, "graph."+c.name+".fanout",
		trace.WithAttributes(attribute.Int("workflow.branches", len(p.branches))))
	defer span.End()

	sem := semaphore.NewWeighted(int64(c.concurrency))
	deltas := make([]model.Delta, len(p.branches))

	eg, gctx := errgroup.WithContext(ctx)
	for i, name := range p.branches {
		i, name := i, name
		snapshot := wc.Clone()
		eg.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			start := time.Now()
			delta, err := c.nodes[name](gctx, snapshot)
			metrics.WorkflowStepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			if err != nil {
				return fmt.Errorf("workflow step %s: %w", name, err)
			}
			deltas[i] = delta
			c.emitCompleted(name, sink)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		return err
	}

	for _, d := range deltas {
		d.Apply(wc)
	}
	return nil
}

func (c *Compiled) emitCompleted(name string, sink model.FrameSink) {
	if sink == nil {
		return
	}
	desc := c.descs[name]
	if desc == "" {
		desc = name
	}
	sink.Send(model.Progress{
		Type:    model.ProgressTypeProgress,
		Content: desc + "完成",
		Step:    c.steps[name],
	})
}
