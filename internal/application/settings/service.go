package settings

import (
	"fmt"
	"strings"

	"log/slog"

	"github.com/meetscribe/backend/internal/application/prompt"
	"github.com/meetscribe/backend/internal/domain/generation"
	"github.com/meetscribe/backend/internal/infrastructure/llm"
	"github.com/meetscribe/backend/internal/infrastructure/log"
	"github.com/meetscribe/backend/internal/infrastructure/storage"
)

// ModelOverride 单次请求级别的模型配置覆盖
// 为空的字段沿用持久化设置
type ModelOverride struct {
	Provider string
	Model    string
	APIKey   string
	Endpoint string
}

// Service 设置管理
// 语言与模型配置持久化在 settings 表；模型解析在每次生成前执行，
// 设置变更即刻生效，无需重启
type Service struct {
	repo   storage.SettingsRepository
	logger *slog.Logger
}

// NewService 创建设置服务
func NewService(repo storage.SettingsRepository) *Service {
	return &Service{
		repo:   repo,
		logger: log.NewModuleLogger("settings", "service"),
	}
}

// Get 读取全部设置
func (s *Service) Get() (*storage.Settings, error) {
	return s.repo.Get()
}

// Language 当前生成语言（总是规范化标签）
func (s *Service) Language() (string, error) {
	settings, err := s.repo.Get()
	if err != nil {
		return "", err
	}
	return prompt.NormalizeLanguage(settings.Language), nil
}

// SetLanguage 设置生成语言
// 无法识别的标签确定性回退到默认语言后再持久化
func (s *Service) SetLanguage(tag string) (string, error) {
	normalized := prompt.NormalizeLanguage(tag)
	if err := s.repo.SetLanguage(normalized); err != nil {
		return "", fmt.Errorf("failed to persist language: %w", err)
	}
	s.logger.Info("language updated", "language", normalized, "requested", tag)
	return normalized, nil
}

// UpdateModel 更新持久化的模型配置
func (s *Service) UpdateModel(provider, model, apiKey, endpoint string) error {
	settings, err := s.repo.Get()
	if err != nil {
		return err
	}

	settings.ModelProvider = strings.TrimSpace(provider)
	settings.ModelName = strings.TrimSpace(model)
	settings.APIKey = strings.TrimSpace(apiKey)
	settings.Endpoint = strings.TrimSpace(endpoint)

	if err := s.repo.Save(settings); err != nil {
		return fmt.Errorf("failed to persist model settings: %w", err)
	}
	s.logger.Info("model settings updated", "provider", settings.ModelProvider, "model", settings.ModelName)
	return nil
}

// ResolveModel 解析一次生成调用使用的模型配置
// 请求级覆盖优先于持久化设置；提供方或模型名缺失时返回
// ErrNoModelConfigured，提供方要求 API Key 而未配置时同样拒绝
func (s *Service) ResolveModel(override ModelOverride) (llm.ModelConfig, error) {
	settings, err := s.repo.Get()
	if err != nil {
		return llm.ModelConfig{}, err
	}

	mc := llm.ModelConfig{
		Provider: settings.ModelProvider,
		Model:    settings.ModelName,
		APIKey:   settings.APIKey,
		Endpoint: settings.Endpoint,
	}
	if override.Provider != "" {
		mc.Provider = override.Provider
	}
	if override.Model != "" {
		mc.Model = override.Model
	}
	if override.APIKey != "" {
		mc.APIKey = override.APIKey
	}
	if override.Endpoint != "" {
		mc.Endpoint = override.Endpoint
	}

	if mc.Provider == "" || mc.Model == "" {
		return llm.ModelConfig{}, generation.ErrNoModelConfigured
	}
	if _, err := llm.ResolveBaseURL(mc.Provider, mc.Endpoint); err != nil {
		return llm.ModelConfig{}, err
	}
	if llm.RequiresKey(mc.Provider) && mc.APIKey == "" {
		return llm.ModelConfig{}, fmt.Errorf("%w: provider %s requires an API key",
			generation.ErrNoModelConfigured, mc.Provider)
	}

	return mc, nil
}
