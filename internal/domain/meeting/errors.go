package meeting

import "errors"

var (
	// ErrMeetingNotFound 会议不存在
	ErrMeetingNotFound = errors.New("meeting not found")
	// ErrNoTranscript 会议还没有转录内容
	ErrNoTranscript = errors.New("meeting has no transcript yet")
	// ErrSummaryNotFound 总结不存在
	ErrSummaryNotFound = errors.New("summary not found")
	// ErrTranscriptSealed 转录已封存，不能再追加片段
	ErrTranscriptSealed = errors.New("transcript is sealed")
	// ErrInvalidRole 非法的消息角色
	ErrInvalidRole = errors.New("role must be 'user' or 'assistant'")
	// ErrEmptyMeetingID 会议 ID 为空
	ErrEmptyMeetingID = errors.New("meeting id cannot be empty")
)
