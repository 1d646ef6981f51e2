//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ai-code-generate-api/internal/application/codegen"
	"ai-code-generate-api/internal/config"
	"ai-code-generate-api/internal/domain/repository"
	"ai-code-generate-api/internal/infrastructure/build"
	"ai-code-generate-api/internal/infrastructure/codefile"
	"ai-code-generate-api/internal/infrastructure/llm"
	"ai-code-generate-api/internal/infrastructure/persistence/postgres"
	"ai-code-generate-api/internal/infrastructure/storage"
	"ai-code-generate-api/internal/interfaces/http/handler"
	"ai-code-generate-api/internal/interfaces/http/middleware"
	"ai-code-generate-api/internal/interfaces/http/router"
	"ai-code-generate-api/internal/workflow/port"
	"ai-code-generate-api/internal/workflow/stream"

	redisinfra "ai-code-generate-api/internal/infrastructure/persistence/redis"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		DataSet,
		LLMSet,
		AssetSet,
		CodegenSet,
		RouterSet,
	)
	return nil, nil, nil
}

// DataSet 数据层提供者集合
var DataSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewAppRepository,
	postgres.NewChatHistoryRepository,
	wire.Bind(new(repository.AppRepository), new(*postgres.AppRepository)),
	wire.Bind(new(repository.ChatHistoryRepository), new(*postgres.ChatHistoryRepository)),

	ProvideRedisClient,
	redisinfra.NewCache,
	redisinfra.NewRateLimiter,
	wire.Bind(new(middleware.RateLimiter), new(*redisinfra.RateLimiter)),

	ProvideMessagingProducer,
)

// LLMSet LLM 提供者集合
var LLMSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(codegen.ModelProvider), new(*llm.EinoFactory)),
)

// AssetSet 素材与产物提供者集合
var AssetSet = wire.NewSet(
	ProvideStorageConfig,
	codefile.NewWorkspace,
	storage.NewLocalAssetStore,
	wire.Bind(new(port.AssetStore), new(*storage.LocalAssetStore)),
	ProvidePexelsClient,
	ProvidePixabayClient,
	ProvideMermaidRenderer,
	ProvideDashScopeClient,
	ProvideNpmBuilder,
	wire.Bind(new(port.ProjectBuilder), new(*build.NpmBuilder)),
)

// CodegenSet 代码生成应用层提供者集合
var CodegenSet = wire.NewSet(
	codegen.NewPlanningChain,
	codegen.NewRoutingChain,
	codegen.NewQualityChain,
	codegen.NewGenerator,
	wire.Bind(new(port.ImagePlanner), new(*codegen.PlanningChain)),
	wire.Bind(new(port.TypeRouter), new(*codegen.RoutingChain)),
	wire.Bind(new(port.QualityChecker), new(*codegen.QualityChain)),
	wire.Bind(new(port.CodeGenerator), new(*codegen.Generator)),

	ProvidePipelineDeps,
	ProvidePipelineOptions,

	stream.NewRegistry,
	codegen.NewHistoryService,
	wire.Bind(new(stream.HistoryRecorder), new(*codegen.HistoryService)),
	codegen.NewDeployService,
	wire.Bind(new(stream.BuildTrigger), new(*codegen.DeployService)),
	stream.NewMultiplexer,

	codegen.NewAppService,
	codegen.NewGenerationService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewAppHandler,
	handler.NewGenerateHandler,
	handler.NewChatHistoryHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
