package engine

import (
	"github.com/google/wire"

	"github.com/meetscribe/backend/internal/infrastructure/config"
)

// ProvideProvider 创建当前构建链接的识别后端
func ProvideProvider(cfg *config.EngineConfig) Provider {
	return NewParakeetProvider(cfg)
}

// ProviderSet engine 模块的依赖注入
var ProviderSet = wire.NewSet(
	ProvideProvider,
	NewEngine,
)
