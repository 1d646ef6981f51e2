package node

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"

	"ai-code-generate-api/internal/workflow/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhancePromptNoImagesIsIdentity(t *testing.T) {
	assert.Equal(t, "原始需求", EnhancePrompt("原始需求", nil))
}

func TestEnhancePromptBulletPerImage(t *testing.T) {
	images := []model.ImageResource{
		{Category: model.CategoryContent, Description: "主图", URL: "http://x/1.jpg"},
		{Category: model.CategoryIllustration, Description: "插画", URL: "http://x/2.jpg"},
		{Category: model.CategoryLogo, URL: "http://x/3.png"},
	}
	out := EnhancePrompt("需求", images)

	assert.True(t, strings.HasPrefix(out, "需求"))
	assert.Contains(t, out, "## 可用素材")
	assert.Equal(t, len(images), strings.Count(out, "\n- "))
	assert.Contains(t, out, "http://x/3.png")
	// 无描述时回退到分类名
	assert.Contains(t, out, "[Logo] Logo: http://x/3.png")
}

func TestAggregateMergesInCategoryOrder(t *testing.T) {
	wc := &model.WorkflowContext{
		ContentImages: []model.ImageResource{{Category: model.CategoryContent, URL: "http://x/c.jpg"}},
		Illustrations: []model.ImageResource{{Category: model.CategoryIllustration, URL: "http://x/i.jpg"}},
		DiagramImages: []model.ImageResource{{Category: model.CategoryArchitecture, URL: "http://x/d.png"}},
		LogoImages:    []model.ImageResource{{Category: model.CategoryLogo, URL: "http://x/l.png"}},
		ImagePlan:     &model.ImageCollectionPlan{},
	}

	delta, err := NewImageAggregator()(context.Background(), wc)
	require.NoError(t, err)
	require.NotNil(t, delta.ImageListStr)
	assert.True(t, delta.ClearImagePlan)

	var merged []model.ImageResource
	require.NoError(t, json.Unmarshal([]byte(*delta.ImageListStr), &merged))
	require.Len(t, merged, 4)
	assert.Equal(t, "http://x/c.jpg", merged[0].URL)
	assert.Equal(t, "http://x/i.jpg", merged[1].URL)
	assert.Equal(t, "http://x/d.png", merged[2].URL)
	assert.Equal(t, "http://x/l.png", merged[3].URL)
}

func TestAggregateEmptyListsProduceEmptyArray(t *testing.T) {
	delta, err := NewImageAggregator()(context.Background(), &model.WorkflowContext{})
	require.NoError(t, err)
	require.NotNil(t, delta.ImageListStr)
	assert.Equal(t, "[]", *delta.ImageListStr)
}

func TestBuildCodeContentFilters(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write("index.html", "<html></html>")
	write("src/App.vue", "<template/>")
	write("node_modules/lib/index.js", "ignored")
	write("dist/bundle.js", "ignored")
	write(".env", "SECRET=1")
	write("readme.md", "ignored ext")

	content, err := BuildCodeContent(root)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(content, "# 项目文件结构和代码内容"))
	assert.Contains(t, content, "## 文件: index.html")
	assert.Contains(t, content, "## 文件: src/App.vue")
	assert.NotContains(t, content, "node_modules")
	assert.NotContains(t, content, "bundle.js")
	assert.NotContains(t, content, "SECRET")
	assert.NotContains(t, content, "readme.md")
}

func TestQualityRouteDecisions(t *testing.T) {
	route := QualityRoute(3)
	ctx := context.Background()

	// 通过：按类型放行，不动计数
	wc := &model.WorkflowContext{
		GenerationType: model.GenTypeVueProject,
		QualityResult:  &model.QualityResult{IsValid: true},
	}
	assert.Equal(t, RouteBuild, route(ctx, wc))
	assert.Zero(t, wc.RetryCount)

	wc.GenerationType = model.GenTypeHTML
	assert.Equal(t, RouteSkip, route(ctx, wc))

	// 未通过且未达上限：重试并递增计数
	wc.QualityResult = &model.QualityResult{IsValid: false}
	assert.Equal(t, RouteRetry, route(ctx, wc))
	assert.Equal(t, 1, wc.RetryCount)
	assert.Equal(t, RouteRetry, route(ctx, wc))
	assert.Equal(t, RouteRetry, route(ctx, wc))
	assert.Equal(t, 3, wc.RetryCount)

	// 达到上限：计数冻结，降级放行
	assert.Equal(t, RouteSkip, route(ctx, wc))
	assert.Equal(t, 3, wc.RetryCount)
	wc.GenerationType = model.GenTypeVueProject
	assert.Equal(t, RouteBuild, route(ctx, wc))
	assert.Equal(t, 3, wc.RetryCount)
}

type barrierSearcher struct {
	barrier *sync.WaitGroup
}

// Search 两个任务同时在途时才返回，串行派发会卡住
func (s *barrierSearcher) Search(ctx context.Context, task model.ImageSearchTask) ([]model.ImageResource, error) {
	s.barrier.Done()
	s.barrier.Wait()
	return []model.ImageResource{{URL: task.QueryEn}}, nil
}

func TestCollectorDispatchesTasksConcurrently(t *testing.T) {
	var barrier sync.WaitGroup
	barrier.Add(2)

	collect := NewContentCollector(&barrierSearcher{barrier: &barrier}, semaphore.NewWeighted(2))
	wc := &model.WorkflowContext{ImagePlan: &model.ImageCollectionPlan{
		ContentImageTasks: []model.ImageSearchTask{{QueryEn: "a"}, {QueryEn: "b"}},
	}}

	done := make(chan model.Delta, 1)
	go func() {
		delta, err := collect(context.Background(), wc)
		assert.NoError(t, err)
		done <- delta
	}()

	select {
	case delta := <-done:
		require.Len(t, delta.ContentImages, 2)
		// 结果按任务声明顺序合并
		assert.Equal(t, "a", delta.ContentImages[0].URL)
		assert.Equal(t, "b", delta.ContentImages[1].URL)
		assert.Equal(t, model.CategoryContent, delta.ContentImages[0].Category)
	case <-time.After(2 * time.Second):
		t.Fatal("collector tasks were not dispatched in parallel")
	}
}

type failingBuilder struct{}

func (failingBuilder) Build(ctx context.Context, dir string) (string, error) {
	return "", errors.New("npm install exited 1")
}

func TestProjectBuilderDegradesToSourceDir(t *testing.T) {
	build := NewProjectBuilder(failingBuilder{})
	wc := &model.WorkflowContext{GeneratedCodeDir: "/out/a1"}

	delta, err := build(context.Background(), wc)
	require.NoError(t, err)
	require.NotNil(t, delta.BuildResultDir)
	assert.Equal(t, "/out/a1", *delta.BuildResultDir)
	require.NotNil(t, delta.ErrorMessage)
	assert.Contains(t, *delta.ErrorMessage, "npm install exited 1")
}

func TestExtractJSONObject(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                    "{\"a\":1}",
		"前缀说明 {\"a\":1} 后缀":            "{\"a\":1}",
		"```json\n{\"a\":[1,2]}\n```":  "{\"a\":[1,2]}",
		"[1,2,3]":                      "[1,2,3]",
		"模型先输出 [\"x\"] 然后解释":           "[\"x\"]",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractJSONObject(in), "input: %s", in)
	}
}
