package prompt

import (
	"math"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter 文本 Token 计数能力
type TokenCounter interface {
	// CountTokens 计算文本的 Token 数量
	CountTokens(text string) int
}

// TiktokenEstimator 使用 tiktoken 精确估算 Token 数量
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

// tiktokenInstance 单例实例
var (
	tiktokenInstance *TiktokenEstimator
	tiktokenOnce     sync.Once
	tiktokenErr      error
)

// GetTiktokenEstimator 获取 TiktokenEstimator 单例
// 使用单例模式避免重复加载编码文件
func GetTiktokenEstimator() (*TiktokenEstimator, error) {
	tiktokenOnce.Do(func() {
		// 使用 cl100k_base 编码（GPT-4、Claude 等模型兼容）
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			tiktokenErr = err
			return
		}
		tiktokenInstance = &TiktokenEstimator{
			encoding: enc,
		}
	})

	if tiktokenErr != nil {
		return nil, tiktokenErr
	}
	return tiktokenInstance, nil
}

// CountTokens 计算文本的 Token 数量
func (e *TiktokenEstimator) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens := e.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// RoughEstimator 粗略 Token 估算（4 字符 ≈ 1 Token）
// 分块决策用它就够了，精确计数留给 tiktoken
type RoughEstimator struct{}

// CountTokens 实现 TokenCounter 接口
func (RoughEstimator) CountTokens(text string) int {
	return RoughTokenCount(text)
}

// RoughTokenCount 粗略估算文本的 Token 数量（4 字符 ≈ 1 Token，向上取整）
func RoughTokenCount(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len([]rune(text))) / 4.0))
}

// NewTokenCounter 返回首选的计数器：tiktoken 可用时用它，否则回退粗略估算
func NewTokenCounter() TokenCounter {
	if est, err := GetTiktokenEstimator(); err == nil {
		return est
	}
	return RoughEstimator{}
}
