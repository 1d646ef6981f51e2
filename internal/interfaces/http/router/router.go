// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ai-code-generate-api/internal/config"
	"ai-code-generate-api/internal/interfaces/http/handler"
	"ai-code-generate-api/internal/interfaces/http/middleware"
)

// Handlers 路由需要的全部处理器
type Handlers struct {
	Health      *handler.HealthHandler
	App         *handler.AppHandler
	Generate    *handler.GenerateHandler
	ChatHistory *handler.ChatHistoryHandler
}

// Router HTTP 路由器
type Router struct {
	engine      *gin.Engine
	cfg         *config.Config
	handlers    Handlers
	rateLimiter middleware.RateLimiter
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, rateLimiter middleware.RateLimiter) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:      engine,
		cfg:         cfg,
		handlers:    handlers,
		rateLimiter: rateLimiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 部署产物与素材的静态访问
	if r.cfg.Storage.DeployRoot != "" {
		r.engine.Static("/static", r.cfg.Storage.DeployRoot)
	}
	if r.cfg.Storage.AssetDir != "" {
		r.engine.Static("/assets", r.cfg.Storage.AssetDir)
	}

	// API v1 路由组，全部接口要求调用方身份
	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.Identity(true))

	RegisterV1Routes(
		v1,
		r.handlers.App,
		r.handlers.Generate,
		r.handlers.ChatHistory,
		middleware.RateLimit(r.cfg.Security.RateLimit, r.rateLimiter),
	)
}
