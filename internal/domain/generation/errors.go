package generation

import "errors"

var (
	// ErrAlreadyInProgress 同一 (meeting, kind) 已有任务在执行
	ErrAlreadyInProgress = errors.New("generation already in progress for this meeting")
	// ErrNoModelConfigured 未配置模型提供方或模型名
	ErrNoModelConfigured = errors.New("no model configured, please configure provider and model in settings")
	// ErrModelCallFailed 模型调用失败
	ErrModelCallFailed = errors.New("model call failed")
	// ErrMalformedResponse 模型返回内容为空或无法解析
	ErrMalformedResponse = errors.New("malformed or empty model response")
	// ErrTimeout 生成超时
	ErrTimeout = errors.New("generation timed out")
	// ErrSummaryRequired 重新生成要求已存在一份总结
	ErrSummaryRequired = errors.New("regenerate requires an existing summary")
	// ErrInvalidKind 非法任务类型
	ErrInvalidKind = errors.New("invalid generation kind")
	// ErrEmptyQuestion 问答请求缺少问题内容
	ErrEmptyQuestion = errors.New("question must not be empty")
)
