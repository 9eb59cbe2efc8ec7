// Package events 定义领域事件类型和接口
// 用于系统内部的事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 转录相关事件类型
const (
	// FragmentAppended 新转录片段产生事件
	FragmentAppended EventType = "transcript.fragment.appended"
	// SessionStateChanged 录音会话状态变更事件
	SessionStateChanged EventType = "recording.session.state_changed"
)

// 生成任务相关事件类型
const (
	// JobStateChanged 生成任务状态变更事件
	JobStateChanged EventType = "generation.job.state_changed"
)

// 模板相关事件类型
const (
	// TemplateChanged 提示词模板文件变更事件
	TemplateChanged EventType = "prompt.template.changed"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
