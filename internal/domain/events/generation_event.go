package events

import "time"

// JobEvent 生成任务状态变更事件
type JobEvent struct {
	// MeetingID 目标会议
	MeetingID string
	// Kind 任务类型（summary/regenerate-summary/chat-turn）
	Kind string
	// Status 变更后的状态（queued/running/completed/failed）
	Status string
	// Error 失败原因（Status == failed 时）
	Error string
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *JobEvent) Type() EventType {
	return JobStateChanged
}

// Timestamp 实现 Event 接口
func (e *JobEvent) Timestamp() time.Time {
	return e.EventTime
}

// TemplateEvent 提示词模板文件变更事件
// 模板目录下的文件被修改时由 watcher 发布，触发模板缓存重载
type TemplateEvent struct {
	// TemplateKey 模板键（文件名去掉扩展名）
	TemplateKey string
	// FilePath 文件完整路径
	FilePath string
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *TemplateEvent) Type() EventType {
	return TemplateChanged
}

// Timestamp 实现 Event 接口
func (e *TemplateEvent) Timestamp() time.Time {
	return e.EventTime
}
