package websocket

import "github.com/google/wire"

// ProviderSet websocket 模块的依赖注入
var ProviderSet = wire.NewSet(
	NewHub,
)
