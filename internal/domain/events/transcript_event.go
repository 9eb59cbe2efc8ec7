package events

import (
	"time"

	"github.com/meetscribe/backend/internal/domain/meeting"
)

// FragmentEvent 转录片段追加事件
// 录音会话每产出一个片段即发布一次，供 WebSocket 推送和增量落盘订阅
type FragmentEvent struct {
	// MeetingID 所属会议
	MeetingID string
	// SessionID 产生片段的录音会话
	SessionID string
	// Fragment 新产生的片段
	Fragment meeting.TranscriptFragment
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *FragmentEvent) Type() EventType {
	return FragmentAppended
}

// Timestamp 实现 Event 接口
func (e *FragmentEvent) Timestamp() time.Time {
	return e.EventTime
}

// SessionStateEvent 录音会话状态变更事件
type SessionStateEvent struct {
	// MeetingID 所属会议
	MeetingID string
	// SessionID 录音会话 ID
	SessionID string
	// State 变更后的状态名（idle/recording/paused/finalizing/aborted）
	State string
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *SessionStateEvent) Type() EventType {
	return SessionStateChanged
}

// Timestamp 实现 Event 接口
func (e *SessionStateEvent) Timestamp() time.Time {
	return e.EventTime
}
