package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/pkg/logger"
)

// 截断工具结果的最大长度（按 rune 计）
const toolResultMaxLen = 50

// 空白回复的占位文案
const (
	placeholderWithSteps = "任务已完成，请查看上方执行步骤"
	placeholderGeneric   = "生成完成"
)

// FrameStream 原始帧流，Recv 在流结束时返回 io.EOF
type FrameStream interface {
	Recv() (model.Frame, error)
}

// HistoryRecorder 对话历史落库。
// thinking 为本次运行留痕的思考/处理步骤序列化结果，可为空。
type HistoryRecorder interface {
	RecordUserMessage(ctx context.Context, appID, userID, message string) error
	RecordAiMessage(ctx context.Context, appID, userID, message, thinking string) error
	RecordErrorMessage(ctx context.Context, appID, userID, message string) error
}

// ThinkingStep 运行期间留痕的一条思考/处理步骤，
// 流结束时整个列表序列化后随 AI 回复一并落库
type ThinkingStep struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Step    int    `json:"step,omitempty"`
}

// 从转写中剥离出的推理片段在留痕列表里的类型标记
const stepTypeReasoning = "reasoning"

// BuildTrigger 异步触发构建部署，不阻塞调用方
type BuildTrigger interface {
	TriggerAsync(appID string, genType model.GenerationType)
}

// Request 一次生成请求的元信息
type Request struct {
	AppID          string
	UserID         string
	UserMessage    string
	GenerationType model.GenerationType
}

// Multiplexer 将模型/工具的原始帧流整形为面向客户端的转写流：
// 工具帧按调用 ID 去重、结果截断、think 标记提取为思考步骤；
// 流结束时落库对话历史并按类型触发异步构建。
type Multiplexer struct {
	history HistoryRecorder
	builds  BuildTrigger
}

// NewMultiplexer 创建多路复用器
func NewMultiplexer(history HistoryRecorder, builds BuildTrigger) *Multiplexer {
	return &Multiplexer{history: history, builds: builds}
}

// Process 消费原始帧流直到结束。输出帧写入 out；
// 正常结束执行提交副作用并返回 nil，流错误执行失败副作用并返回该错误。
func (m *Multiplexer) Process(ctx context.Context, req Request, in FrameStream, out model.FrameSink) error {
	st := newRunState()

	for {
		frame, err := in.Recv()
		if errors.Is(err, io.EOF) {
			m.complete(ctx, req, st, out)
			return nil
		}
		if err != nil {
			m.fail(ctx, req, err, out)
			return err
		}
		m.handle(ctx, frame, st, out)
	}
}

// runState 单次流处理的累积状态
type runState struct {
	transcript   strings.Builder
	requestedIDs map[string]struct{}
	executedIDs  map[string]struct{}
	steps        []ThinkingStep
	think        thinkExtractor
}

func newRunState() *runState {
	return &runState{
		requestedIDs: make(map[string]struct{}),
		executedIDs:  make(map[string]struct{}),
	}
}

// record 追加一条思考/处理步骤到留痕列表
func (st *runState) record(stepType, content string, step int) {
	st.steps = append(st.steps, ThinkingStep{Type: stepType, Content: content, Step: step})
}

func (m *Multiplexer) handle(ctx context.Context, frame model.Frame, st *runState, out model.FrameSink) {
	switch f := frame.(type) {
	case model.AiResponse:
		visible, thoughts := st.think.feed(f.Data)
		for _, t := range thoughts {
			st.record(stepTypeReasoning, t, 0)
			out.Send(model.Progress{Type: model.ProgressTypeThinking, Content: t})
		}
		if visible != "" {
			st.transcript.WriteString(visible)
			out.Send(model.AiResponse{Data: visible})
		}

	case model.ToolRequest:
		if _, seen := st.requestedIDs[f.ID]; seen {
			return
		}
		st.requestedIDs[f.ID] = struct{}{}
		notice := fmt.Sprintf("\n\n[选择工具] %s\n\n", f.Name)
		if target := toolTarget(f.Arguments); target != "" {
			notice = fmt.Sprintf("\n\n[选择工具] %s (%s)\n\n", f.Name, target)
		}
		st.record(model.ProgressTypeProgress, strings.TrimSpace(notice), model.StepToolCall)
		st.transcript.WriteString(notice)
		out.Send(model.AiResponse{Data: notice})

	case model.ToolExecuted:
		if _, seen := st.executedIDs[f.ID]; seen {
			return
		}
		st.executedIDs[f.ID] = struct{}{}
		notice := fmt.Sprintf("\n\n[执行工具] %s\n结果: %s\n\n", f.Name, truncateResult(f.Result))
		st.transcript.WriteString(notice)
		out.Send(model.AiResponse{Data: notice})
		step := model.Progress{
			Type:    model.ProgressTypeProgress,
			Content: fmt.Sprintf("工具 %s 执行完成", f.Name),
			Step:    model.StepToolCall,
		}
		st.record(step.Type, step.Content, step.Step)
		out.Send(step)

	case model.Progress:
		// 引擎产生的进度帧记入留痕列表后原样透传，不进转写
		st.record(f.Type, f.Content, f.Step)
		out.Send(f)

	default:
		logger.Warn(ctx, "dropping unknown frame", "frame", fmt.Sprintf("%T", frame))
	}
}

// complete 流正常结束：补占位文案、落库对话、触发异步构建
func (m *Multiplexer) complete(ctx context.Context, req Request, st *runState, out model.FrameSink) {
	if tail, thoughts := st.think.flush(); tail != "" || len(thoughts) > 0 {
		for _, t := range thoughts {
			st.record(stepTypeReasoning, t, 0)
			out.Send(model.Progress{Type: model.ProgressTypeThinking, Content: t})
		}
		if tail != "" {
			st.transcript.WriteString(tail)
			out.Send(model.AiResponse{Data: tail})
		}
	}

	transcript := st.transcript.String()
	if strings.TrimSpace(transcript) == "" {
		if len(st.steps) > 0 {
			transcript = placeholderWithSteps
		} else {
			transcript = placeholderGeneric
		}
		out.Send(model.AiResponse{Data: transcript})
	}

	var thinking string
	if len(st.steps) > 0 {
		if b, err := json.Marshal(st.steps); err != nil {
			logger.Warn(ctx, "failed to serialize thinking steps", "app_id", req.AppID, "error", err.Error())
		} else {
			thinking = string(b)
		}
	}

	if err := m.history.RecordUserMessage(ctx, req.AppID, req.UserID, req.UserMessage); err != nil {
		logger.Error(ctx, "failed to record user message", err, "app_id", req.AppID)
	}
	if err := m.history.RecordAiMessage(ctx, req.AppID, req.UserID, transcript, thinking); err != nil {
		logger.Error(ctx, "failed to record ai message", err, "app_id", req.AppID)
	}

	if req.GenerationType.IsBuildable() {
		m.builds.TriggerAsync(req.AppID, req.GenerationType)
	}

	out.Send(model.Progress{Type: model.ProgressTypeDone, Content: "生成完成"})
}

// fail 流异常结束：落库错误记录，不触发构建
func (m *Multiplexer) fail(ctx context.Context, req Request, cause error, out model.FrameSink) {
	msg := "生成失败: " + cause.Error()
	if err := m.history.RecordUserMessage(ctx, req.AppID, req.UserID, req.UserMessage); err != nil {
		logger.Error(ctx, "failed to record user message", err, "app_id", req.AppID)
	}
	if err := m.history.RecordErrorMessage(ctx, req.AppID, req.UserID, msg); err != nil {
		logger.Error(ctx, "failed to record error message", err, "app_id", req.AppID)
	}
	out.Send(model.Progress{Type: model.ProgressTypeError, Content: msg})
}

// toolTarget 从工具调用参数中提取展示用的操作目标（如文件路径）
func toolTarget(arguments string) string {
	var args struct {
		Path         string `json:"path"`
		RelativePath string `json:"relative_path"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return ""
	}
	if args.Path != "" {
		return args.Path
	}
	return args.RelativePath
}

// truncateResult 截断工具结果，超长部分以省略号结尾
func truncateResult(s string) string {
	runes := []rune(s)
	if len(runes) <= toolResultMaxLen {
		return s
	}
	return string(runes[:toolResultMaxLen]) + "..."
}

const (
	thinkOpenTag  = "<think>"
	thinkCloseTag = "</think>"
)

// thinkExtractor 从流式文本中剥离 <think>...</think> 片段。
// 标签可能被切分在多个数据块之间，尾部保留可能的半截标签。
type thinkExtractor struct {
	pending  string
	inThink  bool
	thinkBuf strings.Builder
}

// feed 处理一个数据块，返回可见文本与完整的思考片段
func (e *thinkExtractor) feed(chunk string) (string, []string) {
	buf := e.pending + chunk
	e.pending = ""

	var visible strings.Builder
	var thoughts []string

	for buf != "" {
		if !e.inThink {
			idx := strings.Index(buf, thinkOpenTag)
			if idx >= 0 {
				visible.WriteString(buf[:idx])
				buf = buf[idx+len(thinkOpenTag):]
				e.inThink = true
				continue
			}
			hold := tagHoldback(buf, thinkOpenTag)
			visible.WriteString(buf[:len(buf)-hold])
			e.pending = buf[len(buf)-hold:]
			buf = ""
		} else {
			idx := strings.Index(buf, thinkCloseTag)
			if idx >= 0 {
				e.thinkBuf.WriteString(buf[:idx])
				buf = buf[idx+len(thinkCloseTag):]
				if t := e.thinkBuf.String(); strings.TrimSpace(t) != "" {
					thoughts = append(thoughts, t)
				}
				e.thinkBuf.Reset()
				e.inThink = false
				continue
			}
			hold := tagHoldback(buf, thinkCloseTag)
			e.thinkBuf.WriteString(buf[:len(buf)-hold])
			e.pending = buf[len(buf)-hold:]
			buf = ""
		}
	}
	return visible.String(), thoughts
}

// flush 流结束时排空残留状态。未闭合的 think 片段也作为思考输出。
func (e *thinkExtractor) flush() (string, []string) {
	var thoughts []string
	visible := e.pending
	e.pending = ""
	if e.inThink {
		e.thinkBuf.WriteString(visible)
		visible = ""
		if t := e.thinkBuf.String(); strings.TrimSpace(t) != "" {
			thoughts = append(thoughts, t)
		}
		e.thinkBuf.Reset()
		e.inThink = false
	}
	return visible, thoughts
}

// tagHoldback 返回 buf 尾部与 tag 前缀重合的最大长度
func tagHoldback(buf, tag string) int {
	max := len(tag) - 1
	if max > len(buf) {
		max = len(buf)
	}
	for n := max; n > 0; n-- {
		if strings.HasPrefix(tag, buf[len(buf)-n:]) {
			return n
		}
	}
	return 0
}
