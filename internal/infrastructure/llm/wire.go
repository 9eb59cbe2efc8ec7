package llm

import (
	"github.com/google/wire"
)

// ProviderSet llm 模块的依赖注入
var ProviderSet = wire.NewSet(
	NewClient,
)
