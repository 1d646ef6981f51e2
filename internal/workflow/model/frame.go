package model

import (
	"encoding/json"
	"fmt"
)

// 帧类型标识
const (
	FrameTypeAiResponse   = "ai_response"
	FrameTypeToolRequest  = "tool_request"
	FrameTypeToolExecuted = "tool_executed"
)

// 进度帧类型
const (
	ProgressTypeProgress      = "progress"
	ProgressTypeThinking      = "thinking"
	ProgressTypeError         = "error"
	ProgressTypeStepCompleted = "step_completed"
	ProgressTypeDone          = "done"
)

// StepToolCall 多路复用器记录工具步骤时使用的哨兵步骤号
const StepToolCall = 999

// Frame 工作流事件流中的一帧，封闭联合类型
type Frame interface {
	frameType() string
}

// AiResponse 模型输出的文本片段
type AiResponse struct {
	Data string `json:"data"`
}

// ToolRequest 模型发起的工具调用请求
type ToolRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolExecuted 工具调用的执行结果
type ToolExecuted struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Result string `json:"result"`
}

// Progress 面向客户端的进度帧
type Progress struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Step    int    `json:"step"`
}

func (AiResponse) frameType() string   { return FrameTypeAiResponse }
func (ToolRequest) frameType() string  { return FrameTypeToolRequest }
func (ToolExecuted) frameType() string { return FrameTypeToolExecuted }
func (p Progress) frameType() string   { return p.Type }

// FrameSink 接收帧的下游
type FrameSink interface {
	Send(frame Frame)
}

// SinkFunc 函数适配为 FrameSink
type SinkFunc func(Frame)

// Send 实现 FrameSink
func (f SinkFunc) Send(frame Frame) { f(frame) }

type wireFrame struct {
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Result    string `json:"result,omitempty"`
	Content   string `json:"content,omitempty"`
	Step      int    `json:"step,omitempty"`
}

// MarshalFrame 将帧序列化为带 type 判别字段的 JSON
func MarshalFrame(f Frame) ([]byte, error) {
	var w wireFrame
	switch v := f.(type) {
	case AiResponse:
		w = wireFrame{Type: FrameTypeAiResponse, Data: v.Data}
	case ToolRequest:
		w = wireFrame{Type: FrameTypeToolRequest, ID: v.ID, Name: v.Name, Arguments: v.Arguments}
	case ToolExecuted:
		w = wireFrame{Type: FrameTypeToolExecuted, ID: v.ID, Name: v.Name, Result: v.Result}
	case Progress:
		w = wireFrame{Type: v.Type, Content: v.Content, Step: v.Step}
	default:
		return nil, fmt.Errorf("unknown frame type %T", f)
	}
	return json.Marshal(w)
}

// ParseFrame 解析一帧 JSON。格式错误返回 error，调用方应丢弃该帧。
func ParseFrame(data []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	switch w.Type {
	case FrameTypeAiResponse:
		return AiResponse{Data: w.Data}, nil
	case FrameTypeToolRequest:
		return ToolRequest{ID: w.ID, Name: w.Name, Arguments: w.Arguments}, nil
	case FrameTypeToolExecuted:
		return ToolExecuted{ID: w.ID, Name: w.Name, Result: w.Result}, nil
	case "":
		return nil, fmt.Errorf("frame missing type field")
	default:
		// 其余类型一律视为进度帧
		return Progress{Type: w.Type, Content: w.Content, Step: w.Step}, nil
	}
}
