package transcription

import "fmt"

// AudioChunk 固定时长的音频块
// 16kHz 单声道 PCM（s16le），由录音会话按到达顺序推入引擎
type AudioChunk struct {
	Seq      int64   // 块序号（会话内单调递增）
	StartMs  int64   // 起始偏移（毫秒）
	DurMs    int64   // 时长（毫秒）
	PCM      []int16 // 采样数据
	Language string  // 期望语言（可为空，由引擎自检）
}

// ModelDescriptor 转录模型描述
// 模型要么完整下载并通过校验，要么不存在，不暴露中间状态
type ModelDescriptor struct {
	Engine      string `json:"engine"`       // 引擎标识，如 "parakeet"
	Name        string `json:"name"`         // 模型名，如 "parakeet-tdt-0.6b-v3-int8"
	Version     string `json:"version"`      // 模型版本
	URL         string `json:"url"`          // 下载地址
	SHA256      string `json:"sha256"`       // 期望校验和
	SizeBytes   int64  `json:"size_bytes"`   // 预估大小
	ArchivePath string `json:"archive_path"` // 本地缓存相对路径
}

// CacheKey 模型在缓存目录中的唯一键
func (d *ModelDescriptor) CacheKey() string {
	return fmt.Sprintf("%s-%s-%s", d.Engine, d.Name, d.Version)
}

// Backend 硬件后端
type Backend string

const (
	BackendGPU Backend = "gpu"
	BackendCPU Backend = "cpu"
)

// Diagnostics 引擎诊断信息
// 会话启动时选定的后端不会在会话中途变更
type Diagnostics struct {
	Provider string  `json:"provider"` // 当前激活的识别后端
	Model    string  `json:"model"`    // 已加载的模型名
	Backend  Backend `json:"backend"`  // 选定的硬件后端
	Epoch    uint64  `json:"epoch"`    // 引擎配置纪元（重配置时递增）
}

// SessionState 录音会话状态
type SessionState int

const (
	StateIdle SessionState = iota
	StateRecording
	StatePaused
	StateFinalizing
	StateAborted
)

// String 状态的内部名称
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateFinalizing:
		return "finalizing"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// DisplayText 状态到界面文案的纯映射
// 仅在接口边界使用，核心逻辑只使用 SessionState 本身
func (s SessionState) DisplayText() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StatePaused:
		return "Paused"
	case StateFinalizing:
		return "Processing"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}
