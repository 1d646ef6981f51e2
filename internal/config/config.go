// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Images        ImagesConfig        `yaml:"images" mapstructure:"images"`
	Builder       BuilderConfig       `yaml:"builder" mapstructure:"builder"`
	Workflow      WorkflowConfig      `yaml:"workflow" mapstructure:"workflow"`
	Screenshot    ScreenshotConfig    `yaml:"screenshot" mapstructure:"screenshot"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// StorageConfig 生成产物与素材存储配置
type StorageConfig struct {
	// OutputRoot 生成代码的根目录，每个应用占一个子目录
	OutputRoot string `yaml:"output_root" mapstructure:"output_root"`
	// AssetDir 上传素材（图表/Logo/封面）的本地目录
	AssetDir string `yaml:"asset_dir" mapstructure:"asset_dir"`
	// DeployRoot 部署产物的根目录，每个部署键占一个子目录
	DeployRoot string `yaml:"deploy_root" mapstructure:"deploy_root"`
	// PublicURL 素材对外访问的 URL 前缀
	PublicURL string `yaml:"public_url" mapstructure:"public_url"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	// Purposes 按用途选择 provider：plan / routing / quality / generate
	Purposes map[string]string `yaml:"purposes" mapstructure:"purposes"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ImagesConfig 图片素材提供商配置
type ImagesConfig struct {
	Pexels    PexelsConfig    `yaml:"pexels" mapstructure:"pexels"`
	Pixabay   PixabayConfig   `yaml:"pixabay" mapstructure:"pixabay"`
	Mermaid   MermaidConfig   `yaml:"mermaid" mapstructure:"mermaid"`
	DashScope DashScopeConfig `yaml:"dashscope" mapstructure:"dashscope"`
}

// PexelsConfig Pexels 图片搜索配置
type PexelsConfig struct {
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	PerQuery int    `yaml:"per_query" mapstructure:"per_query"`
}

// PixabayConfig Pixabay 插画搜索配置
type PixabayConfig struct {
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	PerQuery int    `yaml:"per_query" mapstructure:"per_query"`
}

// MermaidConfig Mermaid 图表渲染配置
type MermaidConfig struct {
	// CLIPath mmdc 可执行文件路径
	CLIPath string        `yaml:"cli_path" mapstructure:"cli_path"`
	TempDir string        `yaml:"temp_dir" mapstructure:"temp_dir"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DashScopeConfig Logo 生成（文生图）配置
type DashScopeConfig struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// BuilderConfig 前端项目构建配置
type BuilderConfig struct {
	NpmPath        string        `yaml:"npm_path" mapstructure:"npm_path"`
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// WorkflowConfig 工作流执行配置
type WorkflowConfig struct {
	// CollectorConcurrency 图片收集扇出的最大并发数
	CollectorConcurrency int `yaml:"collector_concurrency" mapstructure:"collector_concurrency"`
	// MaxQualityRetries 质检失败的最大重试次数
	MaxQualityRetries int `yaml:"max_quality_retries" mapstructure:"max_quality_retries"`
}

// ScreenshotConfig 封面截图服务配置
type ScreenshotConfig struct {
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	MaxLen              int           `yaml:"max_len" mapstructure:"max_len"`
	ConsumerGroupPrefix string        `yaml:"consumer_group_prefix" mapstructure:"consumer_group_prefix"`
	BlockTimeout        time.Duration `yaml:"block_timeout" mapstructure:"block_timeout"`
	ClaimInterval       time.Duration `yaml:"claim_interval" mapstructure:"claim_interval"`
	RetryLimit          int           `yaml:"retry_limit" mapstructure:"retry_limit"`
	RetryBackoff        BackoffConfig `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial" mapstructure:"initial"`
	Max        time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Port    int    `yaml:"port" mapstructure:"port"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// GenerateLimit 生成接口每个用户窗口内允许的请求数
	GenerateLimit int           `yaml:"generate_limit" mapstructure:"generate_limit"`
	Window        time.Duration `yaml:"window" mapstructure:"window"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
