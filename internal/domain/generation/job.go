package generation

import (
	"fmt"
	"time"
)

// Kind 生成任务类型
type Kind string

const (
	KindSummary           Kind = "summary"
	KindRegenerateSummary Kind = "regenerate-summary"
	KindChatTurn          Kind = "chat-turn"
)

// Valid 类型是否合法
func (k Kind) Valid() bool {
	switch k {
	case KindSummary, KindRegenerateSummary, KindChatTurn:
		return true
	}
	return false
}

// Status 任务状态
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job 生成任务（仅存于内存，由编排器独占管理）
// 同一 (meeting, kind) 任意时刻最多一个 running 任务
type Job struct {
	MeetingID  string    // 目标会议
	Kind       Kind      // 任务类型
	Status     Status    // 当前状态
	Language   string    // 生成语言
	Model      string    // 使用的模型
	Error      string    // 失败原因（Status == failed 时）
	StartedAt  time.Time // 进入 running 的时间
	FinishedAt time.Time // 进入终态的时间
}

// Key (meeting, kind) 单飞键
func (j *Job) Key() string {
	return JobKey(j.MeetingID, j.Kind)
}

// JobKey 构造单飞键
func JobKey(meetingID string, kind Kind) string {
	return fmt.Sprintf("%s/%s", meetingID, kind)
}

// Transition 状态迁移，非法迁移返回 false
func (j *Job) Transition(to Status) bool {
	switch j.Status {
	case StatusQueued:
		if to == StatusRunning {
			j.Status = to
			j.StartedAt = time.Now()
			return true
		}
	case StatusRunning:
		if to == StatusCompleted || to == StatusFailed {
			j.Status = to
			j.FinishedAt = time.Now()
			return true
		}
	}
	return false
}

// Terminal 是否处于终态
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
