package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// 环境变量名
const (
	// EnvHTTPPort HTTP 端口覆盖
	EnvHTTPPort = "MEETSCRIBE_HTTP_PORT"
	// EnvConfigFile 配置文件路径覆盖
	EnvConfigFile = "MEETSCRIBE_CONFIG_FILE"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Engine    EngineConfig    `yaml:"engine"`
	LLM       LLMConfig       `yaml:"llm"`
	Templates TemplatesConfig `yaml:"templates"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTPPort 固定端口，同时用于单例锁
	HTTPPort string `yaml:"http_port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path 数据库文件路径，留空表示 <data_dir>/meetscribe.db
	Path string `yaml:"path"`
}

// EngineConfig 转录引擎配置
type EngineConfig struct {
	// Provider 识别后端，当前唯一受支持的值为 "parakeet"
	// 旧配置值（如 "localWhisper"）在加载时映射到 parakeet，不报错
	Provider string `yaml:"provider"`
	// Model 模型名
	Model string `yaml:"model"`
	// ModelsDir 模型缓存目录，留空表示 <data_dir>/models
	ModelsDir string `yaml:"models_dir"`
	// RecognizerEndpoint 本地识别服务地址
	RecognizerEndpoint string `yaml:"recognizer_endpoint"`
}

// LLMConfig LLM 调用配置
type LLMConfig struct {
	// RequestTimeout 单次生成请求超时
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// TokenThreshold 单趟总结的 token 阈值，超过则分块多级总结
	TokenThreshold int `yaml:"token_threshold"`
	// ContextBudget 问答上下文 token 预算
	ContextBudget int `yaml:"context_budget"`
	// RecentTurns 问答上下文保留的最近对话轮数
	RecentTurns int `yaml:"recent_turns"`
}

// TemplatesConfig 提示词模板配置
type TemplatesConfig struct {
	// Dir 模板目录，留空表示 <data_dir>/templates
	Dir string `yaml:"dir"`
}

// DefaultEngineProvider 当前编译进构建的唯一识别后端
const DefaultEngineProvider = "parakeet"

// DefaultEngineModel 默认模型名
const DefaultEngineModel = "parakeet-tdt-0.6b-v3-int8"

// NewConfig 创建配置
// 默认值 → 可选 YAML 配置文件 → 环境变量，按此顺序覆盖
func NewConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			HTTPPort: ":18760",
		},
		Database: DatabaseConfig{
			Path: "",
		},
		Engine: EngineConfig{
			Provider:           DefaultEngineProvider,
			Model:              DefaultEngineModel,
			ModelsDir:          "",
			RecognizerEndpoint: "http://127.0.0.1:18765",
		},
		LLM: LLMConfig{
			RequestTimeout: 120 * time.Second,
			TokenThreshold: 4000,
			ContextBudget:  6000,
			RecentTurns:    6,
		},
		Templates: TemplatesConfig{
			Dir: "",
		},
	}

	// 可选 YAML 配置文件
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = filepath.Join(GetDataDir(), "config.yaml")
	}
	if data, err := os.ReadFile(path); err == nil {
		// 解析失败时保留默认值
		_ = yaml.Unmarshal(data, cfg)
	}

	// 环境变量覆盖
	if port := os.Getenv(EnvHTTPPort); port != "" {
		cfg.Server.HTTPPort = port
	}

	cfg.normalize()
	return cfg
}

// normalize 补全留空的路径并映射旧配置值
func (c *Config) normalize() {
	dataDir := GetDataDir()
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(dataDir, "meetscribe.db")
	}
	if c.Engine.ModelsDir == "" {
		c.Engine.ModelsDir = filepath.Join(dataDir, "models")
	}
	if c.Templates.Dir == "" {
		c.Templates.Dir = filepath.Join(dataDir, "templates")
	}
	// 旧引擎配置值统一映射到当前唯一后端
	c.Engine.Provider = MapLegacyProvider(c.Engine.Provider)
	if c.Engine.Model == "" {
		c.Engine.Model = DefaultEngineModel
	}
	if c.LLM.RequestTimeout <= 0 {
		c.LLM.RequestTimeout = 120 * time.Second
	}
}

// MapLegacyProvider 将旧的引擎配置值映射到当前激活的后端
// 旧版本支持 localWhisper 引擎；迁移后 parakeet 是唯一编译进构建的后端，
// 旧值在加载时静默映射而不是报错，保证配置向后兼容
func MapLegacyProvider(provider string) string {
	switch provider {
	case "", "localWhisper", "whisper":
		return DefaultEngineProvider
	default:
		return provider
	}
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewEngineConfig 创建引擎配置
func NewEngineConfig(cfg *Config) *EngineConfig {
	return &cfg.Engine
}

// NewLLMConfig 创建 LLM 配置
func NewLLMConfig(cfg *Config) *LLMConfig {
	return &cfg.LLM
}

// NewTemplatesConfig 创建模板配置
func NewTemplatesConfig(cfg *Config) *TemplatesConfig {
	return &cfg.Templates
}
