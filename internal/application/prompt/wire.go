package prompt

import (
	"github.com/google/wire"
)

// ProviderSet prompt 模块的依赖注入
var ProviderSet = wire.NewSet(
	NewTemplateStore,
	NewComposer,
)
