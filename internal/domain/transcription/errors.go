package transcription

import "errors"

var (
	// ErrModelNotReady 模型尚未就绪（EnsureAvailable 未成功）
	ErrModelNotReady = errors.New("transcription model not ready")
	// ErrDecode 音频块解码失败（丢弃该块，流继续）
	ErrDecode = errors.New("failed to decode audio chunk")
	// ErrEngineFatal 引擎不可恢复错误（会话中止，保留已有转录）
	ErrEngineFatal = errors.New("transcription engine fatal error")
	// ErrSessionActive 仍有会话未排空，不能重新配置引擎
	ErrSessionActive = errors.New("engine has active sessions")
	// ErrInvalidState 当前会话状态不允许该操作
	ErrInvalidState = errors.New("operation not allowed in current session state")
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("recording session not found")
)
