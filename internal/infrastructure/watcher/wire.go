package watcher

import (
	"github.com/google/wire"

	"github.com/meetscribe/backend/internal/domain/events"
	"github.com/meetscribe/backend/internal/infrastructure/config"
)

// ProvideEventBus 提供事件总线实例
func ProvideEventBus() events.EventBus {
	return NewEventBus()
}

// ProvideTemplateWatcher 提供模板监听器实例
func ProvideTemplateWatcher(cfg *config.TemplatesConfig, eventBus events.EventBus) (*TemplateWatcher, error) {
	return NewTemplateWatcher(DefaultWatchConfig(cfg.Dir), eventBus)
}

// ProviderSet watcher 模块的依赖注入
var ProviderSet = wire.NewSet(
	ProvideEventBus,
	ProvideTemplateWatcher,
)
