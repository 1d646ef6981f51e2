package model

// ImageCategory 图片素材分类
type ImageCategory string

const (
	CategoryContent      ImageCategory = "CONTENT"
	CategoryIllustration ImageCategory = "ILLUSTRATION"
	CategoryArchitecture ImageCategory = "ARCHITECTURE"
	CategoryLogo         ImageCategory = "LOGO"
)

// Label 分类的中文展示名
func (c ImageCategory) Label() string {
	switch c {
	case CategoryContent:
		return "内容图片"
	case CategoryIllustration:
		return "插画"
	case CategoryArchitecture:
		return "架构图"
	case CategoryLogo:
		return "Logo"
	default:
		return string(c)
	}
}

// ImageResource 一张已收集的图片素材
type ImageResource struct {
	Category    ImageCategory `json:"category"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
}

// ImageSearchTask 图片搜索任务（中英文查询词）
type ImageSearchTask struct {
	QueryEn string `json:"query_en"`
	QueryZh string `json:"query_zh"`
}

// DiagramTask Mermaid 架构图生成任务
type DiagramTask struct {
	MermaidCode string `json:"mermaid_code"`
	Description string `json:"description"`
}

// LogoTask Logo 生成任务
type LogoTask struct {
	Description string `json:"description"`
}

// ImageCollectionPlan 图片收集计划，由规划节点产出，
// 四类收集节点各自消费对应的任务列表。
type ImageCollectionPlan struct {
	ContentImageTasks []ImageSearchTask `json:"content_image_tasks"`
	IllustrationTasks []ImageSearchTask `json:"illustration_tasks"`
	DiagramTasks      []DiagramTask     `json:"diagram_tasks"`
	LogoTasks         []LogoTask        `json:"logo_tasks"`
}

// IsEmpty 判断计划是否没有任何任务
func (p ImageCollectionPlan) IsEmpty() bool {
	return len(p.ContentImageTasks) == 0 && len(p.IllustrationTasks) == 0 &&
		len(p.DiagramTasks) == 0 && len(p.LogoTasks) == 0
}

// Clone 返回计划的深拷贝
func (p ImageCollectionPlan) Clone() ImageCollectionPlan {
	return ImageCollectionPlan{
		ContentImageTasks: append([]ImageSearchTask(nil), p.ContentImageTasks...),
		IllustrationTasks: append([]ImageSearchTask(nil), p.IllustrationTasks...),
		DiagramTasks:      append([]DiagramTask(nil), p.DiagramTasks...),
		LogoTasks:         append([]LogoTask(nil), p.LogoTasks...),
	}
}

// QualityResult 代码质检结果
type QualityResult struct {
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
