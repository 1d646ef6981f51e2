// Package model 定义代码生成工作流的上下文与数据结构
package model

// GenerationType 代码生成类型
type GenerationType string

const (
	GenTypeHTML       GenerationType = "HTML"
	GenTypeMultiFile  GenerationType = "MULTI_FILE"
	GenTypeVueProject GenerationType = "VUE_PROJECT"
)

// IsBuildable 判断该类型是否需要执行前端构建
func (t GenerationType) IsBuildable() bool {
	return t == GenTypeVueProject
}

// ParseGenerationType 解析生成类型，未知值返回 false
func ParseGenerationType(s string) (GenerationType, bool) {
	switch GenerationType(s) {
	case GenTypeHTML, GenTypeMultiFile, GenTypeVueProject:
		return GenerationType(s), true
	}
	return "", false
}

// WorkflowContext 工作流运行期间的共享上下文。
// 节点不直接修改上下文，而是返回 Delta 由引擎合并。
type WorkflowContext struct {
	AppID          string
	UserID         string
	OriginalPrompt string

	// 图片收集阶段产物
	ImagePlan     *ImageCollectionPlan
	ContentImages []ImageResource
	Illustrations []ImageResource
	DiagramImages []ImageResource
	LogoImages    []ImageResource
	ImageListStr  string

	// 提示词与路由产物
	EnhancedPrompt string
	GenerationType GenerationType

	// 生成与构建产物
	GeneratedCodeDir string
	BuildResultDir   string

	// 质检状态
	RetryCount    int
	QualityResult *QualityResult

	// 最近一次降级的原因（质检读取失败、构建失败等）
	ErrorMessage string
}

// Clone 返回上下文的深拷贝，用于并行分支的快照隔离
func (wc *WorkflowContext) Clone() *WorkflowContext {
	cp := *wc
	cp.ContentImages = append([]ImageResource(nil), wc.ContentImages...)
	cp.Illustrations = append([]ImageResource(nil), wc.Illustrations...)
	cp.DiagramImages = append([]ImageResource(nil), wc.DiagramImages...)
	cp.LogoImages = append([]ImageResource(nil), wc.LogoImages...)
	if wc.ImagePlan != nil {
		plan := wc.ImagePlan.Clone()
		cp.ImagePlan = &plan
	}
	if wc.QualityResult != nil {
		qr := *wc.QualityResult
		qr.Errors = append([]string(nil), wc.QualityResult.Errors...)
		qr.Suggestions = append([]string(nil), wc.QualityResult.Suggestions...)
		cp.QualityResult = &qr
	}
	return &cp
}

// AllImages 按 内容图 -> 插画 -> 架构图 -> Logo 的固定顺序返回所有素材
func (wc *WorkflowContext) AllImages() []ImageResource {
	out := make([]ImageResource, 0,
		len(wc.ContentImages)+len(wc.Illustrations)+len(wc.DiagramImages)+len(wc.LogoImages))
	out = append(out, wc.ContentImages...)
	out = append(out, wc.Illustrations...)
	out = append(out, wc.DiagramImages...)
	out = append(out, wc.LogoImages...)
	return out
}

// Delta 节点执行的产出。只设置节点实际产生的字段，
// 切片字段表示追加，指针字段表示覆盖。
type Delta struct {
	ImagePlan      *ImageCollectionPlan
	ClearImagePlan bool

	ContentImages []ImageResource
	Illustrations []ImageResource
	DiagramImages []ImageResource
	LogoImages    []ImageResource

	ImageListStr     *string
	EnhancedPrompt   *string
	GenerationType   *GenerationType
	GeneratedCodeDir *string
	BuildResultDir   *string
	RetryCount       *int
	QualityResult    *QualityResult
	ErrorMessage     *string
}

// Apply 将 Delta 合并到上下文
func (d Delta) Apply(wc *WorkflowContext) {
	if d.ImagePlan != nil {
		wc.ImagePlan = d.ImagePlan
	}
	if d.ClearImagePlan {
		wc.ImagePlan = nil
	}
	wc.ContentImages = append(wc.ContentImages, d.ContentImages...)
	wc.Illustrations = append(wc.Illustrations, d.Illustrations...)
	wc.DiagramImages = append(wc.DiagramImages, d.DiagramImages...)
	wc.LogoImages = append(wc.LogoImages, d.LogoImages...)
	if d.ImageListStr != nil {
		wc.ImageListStr = *d.ImageListStr
	}
	if d.EnhancedPrompt != nil {
		wc.EnhancedPrompt = *d.EnhancedPrompt
	}
	if d.GenerationType != nil {
		wc.GenerationType = *d.GenerationType
	}
	if d.GeneratedCodeDir != nil {
		wc.GeneratedCodeDir = *d.GeneratedCodeDir
	}
	if d.BuildResultDir != nil {
		wc.BuildResultDir = *d.BuildResultDir
	}
	if d.RetryCount != nil {
		wc.RetryCount = *d.RetryCount
	}
	if d.QualityResult != nil {
		wc.QualityResult = d.QualityResult
	}
	if d.ErrorMessage != nil {
		wc.ErrorMessage = *d.ErrorMessage
	}
}

// StrPtr 构造字符串指针，节点组装 Delta 时使用
func StrPtr(s string) *string { return &s }

// IntPtr 构造整型指针
func IntPtr(i int) *int { return &i }
