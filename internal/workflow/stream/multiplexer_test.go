package stream

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"

	"ai-code-generate-api/internal/workflow/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceStream 把帧切片适配为 FrameStream
type sliceStream struct {
	frames []model.Frame
	err    error
	pos    int
}

func (s *sliceStream) Recv() (model.Frame, error) {
	if s.pos >= len(s.frames) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

type fakeHistory struct {
	mu       sync.Mutex
	user, ai []string
	thinking []string
	errs     []string
}

func (h *fakeHistory) RecordUserMessage(ctx context.Context, appID, userID, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.user = append(h.user, msg)
	return nil
}

func (h *fakeHistory) RecordAiMessage(ctx context.Context, appID, userID, msg, thinking string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ai = append(h.ai, msg)
	h.thinking = append(h.thinking, thinking)
	return nil
}

func (h *fakeHistory) RecordErrorMessage(ctx context.Context, appID, userID, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, msg)
	return nil
}

type fakeBuilds struct {
	mu        sync.Mutex
	triggered []string
}

func (b *fakeBuilds) TriggerAsync(appID string, genType model.GenerationType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.triggered = append(b.triggered, appID)
}

type frameCollector struct {
	mu     sync.Mutex
	frames []model.Frame
}

func (c *frameCollector) Send(f model.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
}

func (c *frameCollector) text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for _, f := range c.frames {
		if r, ok := f.(model.AiResponse); ok {
			b.WriteString(r.Data)
		}
	}
	return b.String()
}

func (c *frameCollector) progressesOf(ptype string) []model.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Progress
	for _, f := range c.frames {
		if p, ok := f.(model.Progress); ok && p.Type == ptype {
			out = append(out, p)
		}
	}
	return out
}

func run(t *testing.T, req Request, frames []model.Frame, streamErr error) (*fakeHistory, *fakeBuilds, *frameCollector, error) {
	t.Helper()
	history := &fakeHistory{}
	builds := &fakeBuilds{}
	out := &frameCollector{}
	m := NewMultiplexer(history, builds)
	err := m.Process(context.Background(), req, &sliceStream{frames: frames, err: streamErr}, out)
	return history, builds, out, err
}

func TestDuplicateToolFramesEmitOnce(t *testing.T) {
	frames := []model.Frame{
		model.ToolRequest{ID: "t1", Name: "写入文件"},
		model.ToolRequest{ID: "t1", Name: "写入文件"},
		model.ToolExecuted{ID: "t1", Name: "写入文件", Result: "ok"},
		model.ToolExecuted{ID: "t1", Name: "写入文件", Result: "ok"},
	}
	_, _, out, err := run(t, Request{AppID: "a1", UserID: "u1", UserMessage: "hi"}, frames, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out.text(), "[选择工具]"))
	assert.Equal(t, 1, strings.Count(out.text(), "[执行工具]"))

	steps := out.progressesOf(model.ProgressTypeProgress)
	require.Len(t, steps, 1)
	assert.Equal(t, model.StepToolCall, steps[0].Step)
}

func TestToolResultTruncatedAtFiftyRunes(t *testing.T) {
	long := strings.Repeat("结", 60)
	frames := []model.Frame{
		model.ToolExecuted{ID: "t1", Name: "读取文件", Result: long},
	}
	_, _, out, err := run(t, Request{AppID: "a1"}, frames, nil)
	require.NoError(t, err)

	assert.Contains(t, out.text(), strings.Repeat("结", 50)+"...")
	assert.NotContains(t, out.text(), strings.Repeat("结", 51))
}

func TestThinkSpanExtractedFromTranscript(t *testing.T) {
	frames := []model.Frame{
		model.AiResponse{Data: "前文<th"},
		model.AiResponse{Data: "ink>推理过程</think"},
		model.AiResponse{Data: ">后文"},
	}
	history, _, out, err := run(t, Request{AppID: "a1", GenerationType: model.GenTypeHTML}, frames, nil)
	require.NoError(t, err)

	assert.Equal(t, "前文后文", out.text())
	thinking := out.progressesOf(model.ProgressTypeThinking)
	require.Len(t, thinking, 1)
	assert.Equal(t, "推理过程", thinking[0].Content)

	require.Len(t, history.ai, 1)
	assert.Equal(t, "前文后文", history.ai[0])
}

func TestBlankTranscriptPlaceholderWithToolSteps(t *testing.T) {
	frames := []model.Frame{
		model.ToolExecuted{ID: "t1", Name: "写入文件", Result: "ok"},
	}
	history, _, _, err := run(t, Request{AppID: "a1"}, frames, nil)
	require.NoError(t, err)
	require.Len(t, history.ai, 1)
	// 工具执行文本进了转写，不为空，所以不触发占位
	assert.Contains(t, history.ai[0], "[执行工具]")
}

func TestBlankTranscriptPlaceholders(t *testing.T) {
	history, _, _, err := run(t, Request{AppID: "a1"}, nil, nil)
	require.NoError(t, err)
	require.Len(t, history.ai, 1)
	assert.Equal(t, placeholderGeneric, history.ai[0])
}

func TestCompletionTriggersBuildForVueProject(t *testing.T) {
	frames := []model.Frame{model.AiResponse{Data: "done"}}

	_, builds, _, err := run(t, Request{AppID: "a1", GenerationType: model.GenTypeVueProject}, frames, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, builds.triggered)

	_, builds, _, err = run(t, Request{AppID: "a2", GenerationType: model.GenTypeHTML}, frames, nil)
	require.NoError(t, err)
	assert.Empty(t, builds.triggered)
}

func TestStreamErrorRecordsErrorEntryAndSkipsBuild(t *testing.T) {
	frames := []model.Frame{model.AiResponse{Data: "partial"}}
	history, builds, out, err := run(t,
		Request{AppID: "a1", UserID: "u1", UserMessage: "hi", GenerationType: model.GenTypeVueProject},
		frames, assert.AnError)
	require.Error(t, err)

	require.Len(t, history.errs, 1)
	assert.Contains(t, history.errs[0], "生成失败")
	assert.Empty(t, history.ai)
	assert.Empty(t, builds.triggered)

	errFrames := out.progressesOf(model.ProgressTypeError)
	require.Len(t, errFrames, 1)
}

func TestProgressFramesPassThrough(t *testing.T) {
	frames := []model.Frame{
		model.Progress{Type: model.ProgressTypeProgress, Content: "图片规划完成", Step: 1},
	}
	_, _, out, err := run(t, Request{AppID: "a1"}, frames, nil)
	require.NoError(t, err)

	ps := out.progressesOf(model.ProgressTypeProgress)
	require.Len(t, ps, 1)
	assert.Equal(t, "图片规划完成", ps[0].Content)
	assert.Equal(t, 1, ps[0].Step)
}

func TestToolRequestNoticeIncludesTarget(t *testing.T) {
	frames := []model.Frame{
		model.ToolRequest{ID: "t1", Name: "writeFile", Arguments: `{"path":"src/App.vue","content":"..."}`},
		model.ToolRequest{ID: "t2", Name: "writeFile", Arguments: "not json"},
	}
	_, _, out, err := run(t, Request{AppID: "a1"}, frames, nil)
	require.NoError(t, err)

	assert.Contains(t, out.text(), "[选择工具] writeFile (src/App.vue)")
	// 参数解析失败时只展示工具名
	assert.Contains(t, out.text(), "[选择工具] writeFile\n")
}

func TestCompletionCommitsThinkingSteps(t *testing.T) {
	frames := []model.Frame{
		model.AiResponse{Data: "<think>先分析布局</think>页面已生成"},
		model.ToolExecuted{ID: "t1", Name: "writeFile", Result: "ok"},
		model.Progress{Type: model.ProgressTypeProgress, Content: "代码生成完成", Step: 7},
	}
	history, _, _, err := run(t, Request{AppID: "a1", UserID: "u1", UserMessage: "做个页面"}, frames, nil)
	require.NoError(t, err)

	require.Len(t, history.ai, 1)
	assert.NotContains(t, history.ai[0], "先分析布局")

	require.Len(t, history.thinking, 1)
	var steps []ThinkingStep
	require.NoError(t, json.Unmarshal([]byte(history.thinking[0]), &steps))
	require.Len(t, steps, 3)
	assert.Equal(t, stepTypeReasoning, steps[0].Type)
	assert.Equal(t, "先分析布局", steps[0].Content)
	assert.Equal(t, model.StepToolCall, steps[1].Step)
	assert.Equal(t, "代码生成完成", steps[2].Content)
	assert.Equal(t, 7, steps[2].Step)
}

func TestNoStepsCommitsEmptyThinking(t *testing.T) {
	frames := []model.Frame{model.AiResponse{Data: "纯文本回复"}}
	history, _, _, err := run(t, Request{AppID: "a1"}, frames, nil)
	require.NoError(t, err)

	require.Len(t, history.thinking, 1)
	assert.Empty(t, history.thinking[0])
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	ch := r.Register("run-1", 4)
	r.Sink("run-1").Send(model.AiResponse{Data: "x"})

	f := <-ch
	assert.Equal(t, model.AiResponse{Data: "x"}, f)

	// 未注册的运行：丢弃不阻塞
	r.Send("missing", model.AiResponse{Data: "y"})

	r.Remove("run-1")
	_, open := <-ch
	assert.False(t, open)
}
