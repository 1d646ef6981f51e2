package graph

import (
	"context"
	"sync"
	"testing"

	"ai-code-generate-api/internal/workflow/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopNode(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
	return model.Delta{}, nil
}

// collectSink 线程安全地收集帧，供断言使用
type collectSink struct {
	mu     sync.Mutex
	frames []model.Frame
}

func (s *collectSink) Send(f model.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
}

func (s *collectSink) progresses() []model.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Progress
	for _, f := range s.frames {
		if p, ok := f.(model.Progress); ok {
			out = append(out, p)
		}
	}
	return out
}

func TestCompileRejectsUnknownNode(t *testing.T) {
	g := New("t").
		AddNode("a", "A", noopNode).
		AddEdge(Start, "a").
		AddEdge("a", "missing")
	_, err := g.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node")
}

func TestCompileRejectsMissingStartEdge(t *testing.T) {
	g := New("t").AddNode("a", "A", noopNode).AddEdge("a", End)
	_, err := g.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no edge from start")
}

func TestCompileRejectsUnreachableNode(t *testing.T) {
	g := New("t").
		AddNode("a", "A", noopNode).
		AddNode("orphan", "O", noopNode).
		AddEdge(Start, "a").
		AddEdge("a", End).
		AddEdge("orphan", End)
	_, err := g.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestCompileRejectsPlainAndConditionalEdge(t *testing.T) {
	g := New("t").
		AddNode("a", "A", noopNode).
		AddNode("b", "B", noopNode).
		AddEdge(Start, "a").
		AddEdge("a", "b").
		AddConditional("a", func(ctx context.Context, wc *model.WorkflowContext) string { return "x" },
			map[string]string{"x": End}).
		AddEdge("b", End)
	_, err := g.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both a plain edge and a conditional edge")
}

func TestCompileRejectsBranchWithOwnEdge(t *testing.T) {
	g := New("t").
		AddNode("src", "S", noopNode).
		AddNode("b1", "B1", noopNode).
		AddNode("b2", "B2", noopNode).
		AddNode("join", "J", noopNode).
		AddEdge(Start, "src").
		AddParallel("src", []string{"b1", "b2"}, "join").
		AddEdge("b1", "join").
		AddEdge("join", End)
	_, err := g.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must rejoin")
}

func TestRunLinearAppliesDeltasAndEmitsProgress(t *testing.T) {
	first := func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		return model.Delta{EnhancedPrompt: model.StrPtr("enhanced")}, nil
	}
	second := func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		// 前序节点的 Delta 必须在本节点执行前可见
		assert.Equal(t, "enhanced", wc.EnhancedPrompt)
		gt := model.GenTypeHTML
		return model.Delta{GenerationType: &gt}, nil
	}

	g := New("linear").
		AddNode("enhance", "增强提示词", first).
		AddNode("route", "智能路由", second).
		AddEdge(Start, "enhance").
		AddEdge("enhance", "route").
		AddEdge("route", End)
	compiled, err := g.Compile()
	require.NoError(t, err)

	wc := &model.WorkflowContext{OriginalPrompt: "p"}
	sink := &collectSink{}
	require.NoError(t, compiled.Run(context.Background(), wc, sink))

	assert.Equal(t, "enhanced", wc.EnhancedPrompt)
	assert.Equal(t, model.GenTypeHTML, wc.GenerationType)

	ps := sink.progresses()
	require.Len(t, ps, 2)
	assert.Equal(t, 1, ps[0].Step)
	assert.Equal(t, "增强提示词完成", ps[0].Content)
	assert.Equal(t, 2, ps[1].Step)
}

func TestRunConditionalRetryLoopTerminates(t *testing.T) {
	genRuns := 0
	gen := func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		genRuns++
		return model.Delta{}, nil
	}
	check := func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		rc := wc.RetryCount + 1
		return model.Delta{RetryCount: &rc}, nil
	}
	router := func(ctx context.Context, wc *model.WorkflowContext) string {
		if wc.RetryCount < 3 {
			return "retry"
		}
		return "skip"
	}

	g := New("retry").
		AddNode("gen", "生成", gen).
		AddNode("check", "质检", check).
		AddEdge(Start, "gen").
		AddEdge("gen", "check").
		AddConditional("check", router, map[string]string{"retry": "gen", "skip": End})
	compiled, err := g.Compile()
	require.NoError(t, err)

	wc := &model.WorkflowContext{}
	require.NoError(t, compiled.Run(context.Background(), wc, nil))
	assert.Equal(t, 3, genRuns)
	assert.Equal(t, 3, wc.RetryCount)
}

func TestRunUnmappedRouteLabelFails(t *testing.T) {
	g := New("bad-route").
		AddNode("a", "A", noopNode).
		AddEdge(Start, "a").
		AddConditional("a", func(ctx context.Context, wc *model.WorkflowContext) string { return "nope" },
			map[string]string{"ok": End})
	compiled, err := g.Compile()
	require.NoError(t, err)

	err = compiled.Run(context.Background(), &model.WorkflowContext{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmapped label")
}

func TestRunParallelMergesInDeclarationOrder(t *testing.T) {
	src := noopNode
	branch := func(cat model.ImageCategory) Node {
		return func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
			// 分支拿到的是快照，对快照的修改不应泄漏
			wc.OriginalPrompt = "mutated"
			img := model.ImageResource{Category: cat, URL: string(cat)}
			switch cat {
			case model.CategoryContent:
				return model.Delta{ContentImages: []model.ImageResource{img}}, nil
			case model.CategoryIllustration:
				return model.Delta{Illustrations: []model.ImageResource{img}}, nil
			case model.CategoryArchitecture:
				return model.Delta{DiagramImages: []model.ImageResource{img}}, nil
			default:
				return model.Delta{LogoImages: []model.ImageResource{img}}, nil
			}
		}
	}
	join := noopNode

	g := New("fanout").
		AddNode("plan", "规划", src).
		AddNode("content", "内容图", branch(model.CategoryContent)).
		AddNode("illu", "插画", branch(model.CategoryIllustration)).
		AddNode("diagram", "架构图", branch(model.CategoryArchitecture)).
		AddNode("logo", "Logo", branch(model.CategoryLogo)).
		AddNode("agg", "汇总", join).
		AddEdge(Start, "plan").
		AddParallel("plan", []string{"content", "illu", "diagram", "logo"}, "agg").
		AddEdge("agg", End).
		WithConcurrency(2)
	compiled, err := g.Compile()
	require.NoError(t, err)

	wc := &model.WorkflowContext{OriginalPrompt: "keep"}
	require.NoError(t, compiled.Run(context.Background(), wc, &collectSink{}))

	assert.Equal(t, "keep", wc.OriginalPrompt)
	all := wc.AllImages()
	require.Len(t, all, 4)
	assert.Equal(t, model.CategoryContent, all[0].Category)
	assert.Equal(t, model.CategoryIllustration, all[1].Category)
	assert.Equal(t, model.CategoryArchitecture, all[2].Category)
	assert.Equal(t, model.CategoryLogo, all[3].Category)
}

func TestRunStepErrorAborts(t *testing.T) {
	boom := func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		return model.Delta{}, assert.AnError
	}
	reached := false
	after := func(ctx context.Context, wc *model.WorkflowContext) (model.Delta, error) {
		reached = true
		return model.Delta{}, nil
	}

	g := New("abort").
		AddNode("boom", "B", boom).
		AddNode("after", "A", after).
		AddEdge(Start, "boom").
		AddEdge("boom", "after").
		AddEdge("after", End)
	compiled, err := g.Compile()
	require.NoError(t, err)

	err = compiled.Run(context.Background(), &model.WorkflowContext{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow step boom")
	assert.False(t, reached)
}
