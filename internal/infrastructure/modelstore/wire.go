package modelstore

import (
	"github.com/google/wire"
)

// ProvideDownloader 创建 HTTP 下载器
func ProvideDownloader() Downloader {
	return NewHTTPDownloader()
}

// ProviderSet modelstore 模块的依赖注入
var ProviderSet = wire.NewSet(
	ProvideDownloader,
	NewStore,
)
