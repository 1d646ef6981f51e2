// Package main 截图 worker 入口：消费部署完成后的截图任务，更新应用封面
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ai-code-generate-api/internal/application/codegen"
	"ai-code-generate-api/internal/config"
	"ai-code-generate-api/internal/infrastructure/codefile"
	"ai-code-generate-api/internal/infrastructure/llm"
	"ai-code-generate-api/internal/infrastructure/messaging"
	"ai-code-generate-api/internal/infrastructure/persistence/postgres"
	"ai-code-generate-api/internal/infrastructure/persistence/redis"
	"ai-code-generate-api/internal/infrastructure/screenshot"
	"ai-code-generate-api/internal/infrastructure/storage"
	"ai-code-generate-api/pkg/logger"
	"ai-code-generate-api/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "screenshot-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	appRepo := postgres.NewAppRepository(pgClient)
	cache := redis.NewCache(redisClient)

	workspace, err := codefile.NewWorkspace(&cfg.Storage)
	if err != nil {
		logger.Fatal(ctx, "failed to init workspace", err)
	}
	store, err := storage.NewLocalAssetStore(&cfg.Storage)
	if err != nil {
		logger.Fatal(ctx, "failed to init asset store", err)
	}

	// AppService 仅用于封面更新后的缓存失效，路由链不会被触发
	routingChain := codegen.NewRoutingChain(llm.NewEinoFactory(cfg))
	appService := codegen.NewAppService(appRepo, cache, routingChain, workspace)

	capturer := screenshot.NewClient(&cfg.Screenshot)
	coverService := codegen.NewCoverService(appRepo, appService, capturer, store)

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamAppScreenshot,
		Group:         messaging.ConsumerGroupScreenshotWorker,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	consumer.RegisterHandler(messaging.MsgTypeScreenshot, coverService.HandleScreenshotJob)

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.MonitorDLQ(ctx, 10)

	log := logger.FromContext(ctx)
	log.Info("screenshot-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("screenshot-worker shutting down")
	consumer.Stop()
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
