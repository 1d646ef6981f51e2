// Package wire 提供依赖注入配置
package wire

import (
	"ai-code-generate-api/internal/application/codegen"
	"ai-code-generate-api/internal/config"
	"ai-code-generate-api/internal/infrastructure/assets"
	"ai-code-generate-api/internal/infrastructure/build"
	"ai-code-generate-api/internal/infrastructure/messaging"
	"ai-code-generate-api/internal/infrastructure/persistence/postgres"
	"ai-code-generate-api/internal/infrastructure/persistence/redis"
	"ai-code-generate-api/internal/workflow/pipeline"
	"ai-code-generate-api/internal/workflow/port"
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideStorageConfig 提供存储配置
func ProvideStorageConfig(cfg *config.Config) *config.StorageConfig {
	return &cfg.Storage
}

// ProvidePexelsClient 提供内容图片搜索客户端
func ProvidePexelsClient(cfg *config.Config) *assets.PexelsClient {
	return assets.NewPexelsClient(&cfg.Images.Pexels)
}

// ProvidePixabayClient 提供插画搜索客户端
func ProvidePixabayClient(cfg *config.Config) *assets.PixabayClient {
	return assets.NewPixabayClient(&cfg.Images.Pixabay)
}

// ProvideMermaidRenderer 提供架构图渲染器
func ProvideMermaidRenderer(cfg *config.Config, store port.AssetStore) *assets.MermaidRenderer {
	return assets.NewMermaidRenderer(&cfg.Images.Mermaid, store)
}

// ProvideDashScopeClient 提供 Logo 文生图客户端
func ProvideDashScopeClient(cfg *config.Config, store port.AssetStore) *assets.DashScopeClient {
	return assets.NewDashScopeClient(&cfg.Images.DashScope, store)
}

// ProvideNpmBuilder 提供前端项目构建器
func ProvideNpmBuilder(cfg *config.Config) *build.NpmBuilder {
	return build.NewNpmBuilder(&cfg.Builder)
}

// ProvidePipelineDeps 组装工作流节点依赖。
// 内容图与插画共用 ImageSearcher 接口，需在此处区分注入。
func ProvidePipelineDeps(
	planner *codegen.PlanningChain,
	pexels *assets.PexelsClient,
	pixabay *assets.PixabayClient,
	mermaid *assets.MermaidRenderer,
	dashscope *assets.DashScopeClient,
	typeRouter *codegen.RoutingChain,
	generator *codegen.Generator,
	quality *codegen.QualityChain,
	builder *build.NpmBuilder,
) pipeline.Deps {
	return pipeline.Deps{
		Planner:              planner,
		ContentSearcher:      pexels,
		IllustrationSearcher: pixabay,
		DiagramRenderer:      mermaid,
		LogoGenerator:        dashscope,
		TypeRouter:           typeRouter,
		CodeGenerator:        generator,
		QualityChecker:       quality,
		ProjectBuilder:       builder,
	}
}

// ProvidePipelineOptions 提供工作流执行参数
func ProvidePipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		CollectorConcurrency: cfg.Workflow.CollectorConcurrency,
		MaxQualityRetries:    cfg.Workflow.MaxQualityRetries,
	}
}
