package settings

import "github.com/google/wire"

// ProviderSet settings 应用服务的依赖注入配置
var ProviderSet = wire.NewSet(
	NewService,
)
