package application

import (
	"github.com/google/wire"

	"github.com/meetscribe/backend/internal/application/generation"
	"github.com/meetscribe/backend/internal/application/prompt"
	"github.com/meetscribe/backend/internal/application/recording"
	"github.com/meetscribe/backend/internal/application/settings"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	prompt.ProviderSet,
	recording.ProviderSet,
	settings.ProviderSet,
	generation.ProviderSet,
	// 可以继续添加其他应用服务模块
)
