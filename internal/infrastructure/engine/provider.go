package engine

import (
	"context"

	"github.com/meetscribe/backend/internal/domain/transcription"
)

// Segment 一次识别调用产出的文本片段
type Segment struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
	Language   string   `json:"language,omitempty"`
}

// Provider 语音识别后端能力接口
// 构建期只链接一个具体实现，配置层负责把旧配置值映射到它
type Provider interface {
	// Name 后端标识
	Name() string
	// Load 加载模型制品，之后才允许调用 Transcribe
	Load(ctx context.Context, modelPath string, backend transcription.Backend) error
	// Transcribe 识别一个音频块，返回零个或多个片段
	Transcribe(ctx context.Context, chunk transcription.AudioChunk) ([]Segment, error)
	// Close 释放后端资源
	Close() error
}
