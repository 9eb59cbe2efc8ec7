package infrastructure

import (
	"github.com/google/wire"

	"github.com/meetscribe/backend/internal/infrastructure/config"
	"github.com/meetscribe/backend/internal/infrastructure/engine"
	"github.com/meetscribe/backend/internal/infrastructure/llm"
	"github.com/meetscribe/backend/internal/infrastructure/modelstore"
	"github.com/meetscribe/backend/internal/infrastructure/storage"
	"github.com/meetscribe/backend/internal/infrastructure/watcher"
	"github.com/meetscribe/backend/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	modelstore.ProviderSet,
	engine.ProviderSet,
	llm.ProviderSet,
	watcher.ProviderSet,
	websocket.ProviderSet,
	// 可以继续添加其他基础设施模块
)
