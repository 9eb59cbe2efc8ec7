package recording

import (
	"github.com/google/wire"
)

// ProviderSet recording 模块的依赖注入
var ProviderSet = wire.NewSet(
	NewService,
)
