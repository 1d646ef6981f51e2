package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ai-code-generate-api/internal/workflow/model"
	"ai-code-generate-api/internal/workflow/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanner struct{ plan model.ImageCollectionPlan }

func (f *fakePlanner) PlanImages(ctx context.Context, prompt string) (model.ImageCollectionPlan, error) {
	return f.plan, nil
}

type fakeSearcher struct{ images []model.ImageResource }

func (f *fakeSearcher) Search(ctx context.Context, task model.ImageSearchTask) ([]model.ImageResource, error) {
	return f.images, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(ctx context.Context, task model.DiagramTask) (model.ImageResource, error) {
	return model.ImageResource{Category: model.CategoryArchitecture, Description: task.Description, URL: "http://x/diagram.png"}, nil
}

type fakeLogo struct{}

func (fakeLogo) Generate(ctx context.Context, task model.LogoTask) (model.ImageResource, error) {
	return model.ImageResource{Category: model.CategoryLogo, Description: task.Description, URL: "http://x/logo.png"}, nil
}

type fakeRouter struct {
	genType   model.GenerationType
	gotPrompt string
}

func (f *fakeRouter) RouteType(ctx context.Context, prompt string) (model.GenerationType, error) {
	f.gotPrompt = prompt
	return f.genType, nil
}

type fakeGenerator struct {
	calls int
	dir   string
}

func (f *fakeGenerator) Generate(ctx context.Context, appID, prompt string, genType model.GenerationType, sink model.FrameSink) (string, error) {
	f.calls++
	return f.dir, nil
}

// newFakeGenerator 产出一个带真实源码文件的生成目录，质检节点会读取它
func newFakeGenerator(t *testing.T) *fakeGenerator {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html><body>demo</body></html>"), 0o644))
	return &fakeGenerator{dir: dir}
}

type fakeChecker struct {
	results []model.QualityResult
	calls   int
}

func (f *fakeChecker) Check(ctx context.Context, content string) (model.QualityResult, error) {
	r := f.results[f.calls%len(f.results)]
	f.calls++
	return r, nil
}

type fakeBuilder struct {
	calls int
	err   bool
}

func (f *fakeBuilder) Build(ctx context.Context, dir string) (string, error) {
	f.calls++
	if f.err {
		return "", errors.New("vite build exited 1")
	}
	return dir + "/dist", nil
}

func deps(router port.TypeRouter, gen *fakeGenerator, checker *fakeChecker, builder *fakeBuilder) Deps {
	return Deps{
		Planner:              &fakePlanner{},
		ContentSearcher:      &fakeSearcher{},
		IllustrationSearcher: &fakeSearcher{},
		DiagramRenderer:      fakeRenderer{},
		LogoGenerator:        fakeLogo{},
		TypeRouter:           router,
		CodeGenerator:        gen,
		QualityChecker:       checker,
		ProjectBuilder:       builder,
	}
}

func TestHTMLPathSkipsBuilder(t *testing.T) {
	gen := newFakeGenerator(t)
	checker := &fakeChecker{results: []model.QualityResult{{IsValid: true}}}
	builder := &fakeBuilder{}

	compiled, err := Build(deps(&fakeRouter{genType: model.GenTypeHTML}, gen, checker, builder), Options{}, nil)
	require.NoError(t, err)

	wc := &model.WorkflowContext{AppID: "a1", OriginalPrompt: "做个页面"}
	require.NoError(t, compiled.Run(context.Background(), wc, nil))

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, checker.calls)
	assert.Zero(t, builder.calls)
	assert.Empty(t, wc.BuildResultDir)
	assert.Equal(t, model.GenTypeHTML, wc.GenerationType)
	assert.Zero(t, wc.RetryCount)
}

func TestVueProjectPathBuilds(t *testing.T) {
	gen := newFakeGenerator(t)
	checker := &fakeChecker{results: []model.QualityResult{{IsValid: true}}}
	builder := &fakeBuilder{}

	compiled, err := Build(deps(&fakeRouter{genType: model.GenTypeVueProject}, gen, checker, builder), Options{}, nil)
	require.NoError(t, err)

	wc := &model.WorkflowContext{AppID: "a1", OriginalPrompt: "做个后台"}
	require.NoError(t, compiled.Run(context.Background(), wc, nil))

	assert.Equal(t, 1, builder.calls)
	assert.Equal(t, gen.dir+"/dist", wc.BuildResultDir)
}

func TestQualityRetryCeilingDegrades(t *testing.T) {
	gen := newFakeGenerator(t)
	// 质检永远不通过
	checker := &fakeChecker{results: []model.QualityResult{{IsValid: false, Errors: []string{"坏了"}}}}
	builder := &fakeBuilder{}

	compiled, err := Build(deps(&fakeRouter{genType: model.GenTypeVueProject}, gen, checker, builder), Options{MaxQualityRetries: 3}, nil)
	require.NoError(t, err)

	wc := &model.WorkflowContext{AppID: "a1", OriginalPrompt: "p"}
	require.NoError(t, compiled.Run(context.Background(), wc, nil))

	// 首次生成 + 3 次重试，第 4 次质检仍失败时计数冻结在上限，降级进入构建
	assert.Equal(t, 4, gen.calls)
	assert.Equal(t, 4, checker.calls)
	assert.Equal(t, 1, builder.calls)
	assert.Equal(t, 3, wc.RetryCount)
	require.NotNil(t, wc.QualityResult)
	assert.False(t, wc.QualityResult.IsValid)
}

func TestRetryCountResetsOnPass(t *testing.T) {
	gen := newFakeGenerator(t)
	// 第一次失败，第二次通过
	checker := &fakeChecker{results: []model.QualityResult{
		{IsValid: false, Errors: []string{"语法错误"}},
		{IsValid: true},
	}}
	builder := &fakeBuilder{}

	compiled, err := Build(deps(&fakeRouter{genType: model.GenTypeMultiFile}, gen, checker, builder), Options{}, nil)
	require.NoError(t, err)

	wc := &model.WorkflowContext{AppID: "a1", OriginalPrompt: "p"}
	require.NoError(t, compiled.Run(context.Background(), wc, nil))

	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 2, checker.calls)
	assert.Zero(t, wc.RetryCount)
	assert.Zero(t, builder.calls)
}

func TestRouterReceivesOriginalPrompt(t *testing.T) {
	gen := newFakeGenerator(t)
	checker := &fakeChecker{results: []model.QualityResult{{IsValid: true}}}
	router := &fakeRouter{genType: model.GenTypeHTML}

	d := deps(router, gen, checker, &fakeBuilder{})
	d.Planner = &fakePlanner{plan: model.ImageCollectionPlan{
		ContentImageTasks: []model.ImageSearchTask{{QueryEn: "cat"}},
	}}
	d.ContentSearcher = &fakeSearcher{images: []model.ImageResource{{URL: "http://x/cat.jpg"}}}

	compiled, err := Build(d, Options{}, nil)
	require.NoError(t, err)

	wc := &model.WorkflowContext{AppID: "a1", OriginalPrompt: "宠物网站"}
	require.NoError(t, compiled.Run(context.Background(), wc, nil))

	// 类型路由基于用户原始需求，不受素材增强影响
	assert.Equal(t, "宠物网站", router.gotPrompt)
	assert.NotEqual(t, wc.EnhancedPrompt, router.gotPrompt)
}

func TestBuildFailureDegradesToSourceDir(t *testing.T) {
	gen := newFakeGenerator(t)
	checker := &fakeChecker{results: []model.QualityResult{{IsValid: true}}}
	builder := &fakeBuilder{err: true}

	compiled, err := Build(deps(&fakeRouter{genType: model.GenTypeVueProject}, gen, checker, builder), Options{}, nil)
	require.NoError(t, err)

	wc := &model.WorkflowContext{AppID: "a1", OriginalPrompt: "p"}
	require.NoError(t, compiled.Run(context.Background(), wc, nil))

	assert.Equal(t, gen.dir, wc.BuildResultDir)
	assert.Contains(t, wc.ErrorMessage, "项目构建失败")
}

func TestCollectedImagesFlowIntoEnhancedPrompt(t *testing.T) {
	gen := newFakeGenerator(t)
	checker := &fakeChecker{results: []model.QualityResult{{IsValid: true}}}
	builder := &fakeBuilder{}

	d := deps(&fakeRouter{genType: model.GenTypeHTML}, gen, checker, builder)
	d.Planner = &fakePlanner{plan: model.ImageCollectionPlan{
		ContentImageTasks: []model.ImageSearchTask{{QueryEn: "cat", QueryZh: "猫"}},
		DiagramTasks:      []model.DiagramTask{{MermaidCode: "graph TD", Description: "架构"}},
	}}
	d.ContentSearcher = &fakeSearcher{images: []model.ImageResource{{Description: "猫图", URL: "http://x/cat.jpg"}}}

	compiled, err := Build(d, Options{}, nil)
	require.NoError(t, err)

	wc := &model.WorkflowContext{AppID: "a1", OriginalPrompt: "宠物网站"}
	require.NoError(t, compiled.Run(context.Background(), wc, nil))

	assert.Contains(t, wc.EnhancedPrompt, "## 可用素材")
	assert.Contains(t, wc.EnhancedPrompt, "http://x/cat.jpg")
	assert.Contains(t, wc.EnhancedPrompt, "http://x/diagram.png")
	assert.Nil(t, wc.ImagePlan)
	assert.Contains(t, wc.ImageListStr, "cat.jpg")
}
