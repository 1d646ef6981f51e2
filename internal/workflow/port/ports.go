// Package port 定义工作流层对外部能力的依赖接口
package port

import (
	"context"

	wfmodel "ai-code-generate-api/internal/workflow/model"
)

// ImagePlanner 根据需求描述产出图片收集计划
type ImagePlanner interface {
	PlanImages(ctx context.Context, prompt string) (wfmodel.ImageCollectionPlan, error)
}

// ImageSearcher 按关键词搜索图片素材
type ImageSearcher interface {
	Search(ctx context.Context, task wfmodel.ImageSearchTask) ([]wfmodel.ImageResource, error)
}

// DiagramRenderer 渲染 Mermaid 图表并上传，返回素材资源
type DiagramRenderer interface {
	Render(ctx context.Context, task wfmodel.DiagramTask) (wfmodel.ImageResource, error)
}

// LogoGenerator 文生图生成 Logo 并上传
type LogoGenerator interface {
	Generate(ctx context.Context, task wfmodel.LogoTask) (wfmodel.ImageResource, error)
}

// TypeRouter 根据需求描述选择代码生成类型
type TypeRouter interface {
	RouteType(ctx context.Context, prompt string) (wfmodel.GenerationType, error)
}

// CodeGenerator 按类型生成代码并写入应用目录，返回生成目录。
// 生成期间的模型/工具帧实时写入 sink。
type CodeGenerator interface {
	Generate(ctx context.Context, appID, prompt string, genType wfmodel.GenerationType, sink wfmodel.FrameSink) (string, error)
}

// QualityChecker 对拼装好的项目代码内容做质检
type QualityChecker interface {
	Check(ctx context.Context, codeContent string) (wfmodel.QualityResult, error)
}

// ProjectBuilder 执行前端构建，返回构建产物目录
type ProjectBuilder interface {
	Build(ctx context.Context, projectDir string) (string, error)
}

// AssetStore 保存素材内容，返回对外可访问的 URL
type AssetStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ScreenshotCapturer 对部署后的页面截图，返回图片内容
type ScreenshotCapturer interface {
	Capture(ctx context.Context, url string) ([]byte, error)
}
