package generation

import (
	"github.com/google/wire"
)

// ProviderSet generation 应用服务的依赖注入配置
var ProviderSet = wire.NewSet(
	NewOrchestrator,
	NewSummaryService,
	NewChatService,
)
