package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// settingsRowID settings 表单行主键
const settingsRowID = "default"

// Settings 用户设置
type Settings struct {
	Language      string // 界面/生成语言，如 "en-US"、"pt-BR"
	ModelProvider string // LLM 提供方，如 "openai"、"ollama"
	ModelName     string // 模型名
	APIKey        string // API Key（ollama 不需要）
	Endpoint      string // 自定义端点（ollama / openai 兼容服务）
	UpdatedAt     time.Time
}

// SettingsRepository 设置仓储接口
type SettingsRepository interface {
	// Get 读取设置，不存在时返回默认值
	Get() (*Settings, error)
	Save(s *Settings) error
	SetLanguage(language string) error
}

// settingsRepository 设置 SQLite 仓储实现
type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository 创建设置仓储实例
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get 读取设置
func (r *settingsRepository) Get() (*Settings, error) {
	query := `
		SELECT language, model_provider, model_name, api_key, endpoint, updated_at
		FROM settings WHERE id = ?`

	var s Settings
	var updatedAt int64

	err := r.db.QueryRow(query, settingsRowID).Scan(
		&s.Language,
		&s.ModelProvider,
		&s.ModelName,
		&s.APIKey,
		&s.Endpoint,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			// 默认语言为 pt-BR（与桌面端首启默认一致）
			return &Settings{Language: "pt-BR"}, nil
		}
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	s.UpdatedAt = time.UnixMilli(updatedAt)
	return &s, nil
}

// Save 保存设置
func (r *settingsRepository) Save(s *Settings) error {
	s.UpdatedAt = time.Now()

	query := `
		INSERT OR REPLACE INTO settings
		(id, language, model_provider, model_name, api_key, endpoint, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		settingsRowID,
		s.Language,
		s.ModelProvider,
		s.ModelName,
		s.APIKey,
		s.Endpoint,
		s.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// SetLanguage 只更新语言设置
func (r *settingsRepository) SetLanguage(language string) error {
	s, err := r.Get()
	if err != nil {
		return err
	}
	s.Language = language
	return r.Save(s)
}

// 编译时检查接口实现
var _ SettingsRepository = (*settingsRepository)(nil)
