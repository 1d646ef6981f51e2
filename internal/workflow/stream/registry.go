// Package stream 提供工作流事件流的进度分发与多路复用
package stream

import (
	"sync"

	"ai-code-generate-api/internal/workflow/model"
)

// Registry 按运行 ID 管理进度通道。由应用服务持有并注入，
// 工作流引擎只拿到绑定单个运行的 FrameSink。
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]chan model.Frame
}

// NewRegistry 创建进度通道注册表
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]chan model.Frame)}
}

// Register 为一次运行注册进度通道，返回供消费端读取的通道。
// 重复注册会先关闭旧通道。
func (r *Registry) Register(runID string, buffer int) <-chan model.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sinks[runID]; ok {
		close(old)
	}
	ch := make(chan model.Frame, buffer)
	r.sinks[runID] = ch
	return ch
}

// Send 向运行的通道投递一帧。通道不存在或已满时丢弃，
// 进度帧丢失不影响工作流执行。
func (r *Registry) Send(runID string, f model.Frame) {
	r.mu.RLock()
	ch, ok := r.sinks[runID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case ch <- f:
	default:
	}
}

// Sink 返回绑定到单个运行的发送句柄
func (r *Registry) Sink(runID string) model.FrameSink {
	return model.SinkFunc(func(f model.Frame) {
		r.Send(runID, f)
	})
}

// Remove 注销并关闭运行的通道
func (r *Registry) Remove(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.sinks[runID]; ok {
		close(ch)
		delete(r.sinks, runID)
	}
}
