package log

import (
	"os"
	"strconv"
	"strings"
)

// 环境变量名，与 config 包的 MEETSCRIBE_ 前缀保持一致
const (
	EnvLogLevel     = "MEETSCRIBE_LOG_LEVEL"
	EnvLogFormat    = "MEETSCRIBE_LOG_FORMAT"
	EnvLogOutput    = "MEETSCRIBE_LOG_OUTPUT"
	EnvLogAddSource = "MEETSCRIBE_LOG_ADD_SOURCE"
	EnvLogAddCaller = "MEETSCRIBE_LOG_ADD_CALLER"
)

// Config 日志配置
type Config struct {
	// Level 日志级别：debug, info, warn, error
	Level string `json:"level"`

	// Format 日志格式：console, json
	Format string `json:"format"`

	// Output 输出目标：stdout, file:/path/to/log
	Output string `json:"output"`

	// AddSource 是否添加源文件信息（开发环境）
	AddSource bool `json:"add_source"`

	// AddCaller 是否添加调用者信息
	AddCaller bool `json:"add_caller"`
}

// NewConfigFromEnv 从环境变量创建配置
func NewConfigFromEnv() *Config {
	cfg := &Config{
		Level:     getEnvWithDefault(EnvLogLevel, "info"),
		Format:    getEnvWithDefault(EnvLogFormat, "console"),
		Output:    getEnvWithDefault(EnvLogOutput, "stdout"),
		AddSource: getEnvBool(EnvLogAddSource, false),
		AddCaller: getEnvBool(EnvLogAddCaller, false),
	}

	// 在开发环境自动设置
	if cfg.isDevelopment() {
		cfg.Level = "debug"
		cfg.Format = "console"
		cfg.AddSource = true
	}

	return cfg
}

// isDevelopment 检查是否为开发环境
func (c *Config) isDevelopment() bool {
	env := getEnvWithDefault("ENV", "production")
	return strings.ToLower(env) == "development"
}

// getEnvWithDefault 获取环境变量，带默认值
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}
