package codegen

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-code-generate-api/internal/domain/repository"
	"ai-code-generate-api/internal/workflow/pipeline"
	"ai-code-generate-api/internal/workflow/stream"
	"ai-code-generate-api/pkg/logger"
	"ai-code-generate-api/pkg/metrics"

	wfmodel "ai-code-generate-api/internal/workflow/model"
)

// 原始帧与输出帧通道的缓冲大小
const frameBuffer = 256

// GenerationService 编排一次完整的代码生成：
// 运行工作流、把原始帧流交给多路复用器整形、输出到进度注册表。
type GenerationService struct {
	apps       repository.AppRepository
	appService *AppService
	deps       pipeline.Deps
	opts       pipeline.Options
	registry   *stream.Registry
	mux        *stream.Multiplexer
}

// NewGenerationService 创建生成编排服务
func NewGenerationService(
	apps repository.AppRepository,
	appService *AppService,
	deps pipeline.Deps,
	opts pipeline.Options,
	registry *stream.Registry,
	mux *stream.Multiplexer,
) *GenerationService {
	return &GenerationService{
		apps:       apps,
		appService: appService,
		deps:       deps,
		opts:       opts,
		registry:   registry,
		mux:        mux,
	}
}

// Run 启动一次生成，返回整形后的帧通道。
// 通道在生成结束（含失败）后关闭。客户端断开不会中断生成。
func (s *GenerationService) Run(ctx context.Context, appID, userID, message string) (<-chan wfmodel.Frame, error) {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}

	prompt := message
	if prompt == "" {
		prompt = app.InitPrompt
	}
	genType, _ := wfmodel.ParseGenerationType(app.GenerationType)

	runID := uuid.NewString()
	out := s.registry.Register(runID, frameBuffer)
	raw := make(chan wfmodel.Frame, frameBuffer)
	holder := &errHolder{}

	// 生成在后台完成并落库，与客户端连接生命周期解耦
	runCtx := context.WithoutCancel(ctx)
	runCtx = logger.WithContext(runCtx, logger.RunIDKey, runID)
	runCtx = logger.WithContext(runCtx, logger.AppIDKey, appID)
	runCtx = logger.WithContext(runCtx, logger.UserIDKey, userID)

	rawSink := wfmodel.SinkFunc(func(f wfmodel.Frame) {
		raw <- f
	})

	go s.runWorkflow(runCtx, app.ID, app.OwnerID, userID, prompt, string(genType), rawSink, raw, holder)

	go func() {
		req := stream.Request{
			AppID:          app.ID,
			UserID:         userID,
			UserMessage:    prompt,
			GenerationType: genType,
		}
		if err := s.mux.Process(runCtx, req, &runStream{ch: raw, holder: holder}, s.registry.Sink(runID)); err != nil {
			logger.Error(runCtx, "generation run failed", err, "app_id", app.ID)
		}
		s.registry.Remove(runID)
	}()

	return out, nil
}

// runWorkflow 执行工作流并在结束后关闭原始帧通道
func (s *GenerationService) runWorkflow(
	ctx context.Context,
	appID, ownerID, userID, prompt, storedType string,
	sink wfmodel.FrameSink,
	raw chan wfmodel.Frame,
	holder *errHolder,
) {
	defer close(raw)

	metrics.ActiveGenerations.Inc()
	defer metrics.ActiveGenerations.Dec()
	start := time.Now()

	compiled, err := pipeline.Build(s.deps, s.opts, sink)
	if err != nil {
		holder.set(err)
		metrics.WorkflowRunsTotal.WithLabelValues(storedType, "error").Inc()
		return
	}

	wc := &wfmodel.WorkflowContext{
		AppID:          appID,
		UserID:         userID,
		OriginalPrompt: prompt,
	}

	if err := compiled.Run(ctx, wc, sink); err != nil {
		holder.set(err)
		metrics.WorkflowRunsTotal.WithLabelValues(string(wc.GenerationType), "error").Inc()
		return
	}

	metrics.WorkflowRunsTotal.WithLabelValues(string(wc.GenerationType), "success").Inc()
	metrics.WorkflowRunDuration.WithLabelValues(string(wc.GenerationType)).Observe(time.Since(start).Seconds())

	// 路由节点可能修正了生成类型，回写应用记录
	if string(wc.GenerationType) != storedType && wc.GenerationType != "" {
		app, err := s.apps.GetByID(ctx, appID)
		if err == nil {
			app.GenerationType = string(wc.GenerationType)
			if err := s.apps.Update(ctx, app); err != nil {
				logger.Warn(ctx, "failed to update app generation type", "app_id", appID, "error", err.Error())
			}
			s.appService.InvalidateCache(ctx, appID, ownerID)
		}
	}
}

// errHolder 在工作流与多路复用 goroutine 之间传递失败原因
type errHolder struct {
	mu  sync.Mutex
	err error
}

func (h *errHolder) set(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *errHolder) get() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// runStream 把原始帧通道适配为 stream.FrameStream。
// 通道关闭时根据 holder 决定返回 io.EOF 还是工作流错误。
type runStream struct {
	ch     chan wfmodel.Frame
	holder *errHolder
}

func (r *runStream) Recv() (wfmodel.Frame, error) {
	f, ok := <-r.ch
	if !ok {
		if err := r.holder.get(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return f, nil
}
