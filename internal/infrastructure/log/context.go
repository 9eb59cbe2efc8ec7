package log

import (
	"context"
	"log/slog"
)

// 上下文键定义
const (
	// RequestContextID HTTP 请求 ID
	RequestContextID = "request_id"

	// MeetingContextID 会议 ID
	MeetingContextID = "meeting_id"

	// SessionContextID 录音会话 ID
	SessionContextID = "session_id"

	// JobContextID 生成任务键
	JobContextID = "job_key"
)

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithMeetingID 在上下文中添加会议 ID
func WithMeetingID(ctx context.Context, meetingID string) context.Context {
	return context.WithValue(ctx, MeetingContextID, meetingID)
}

// WithSessionID 在上下文中添加录音会话 ID
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionContextID, sessionID)
}

// WithJobKey 在上下文中添加生成任务键
func WithJobKey(ctx context.Context, jobKey string) context.Context {
	return context.WithValue(ctx, JobContextID, jobKey)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if requestID := ctx.Value(RequestContextID); requestID != nil {
		attrs = append(attrs, slog.String("request_id", requestID.(string)))
	}
	if meetingID := ctx.Value(MeetingContextID); meetingID != nil {
		attrs = append(attrs, slog.String("meeting_id", meetingID.(string)))
	}
	if sessionID := ctx.Value(SessionContextID); sessionID != nil {
		attrs = append(attrs, slog.String("session_id", sessionID.(string)))
	}
	if jobKey := ctx.Value(JobContextID); jobKey != nil {
		attrs = append(attrs, slog.String("job_key", jobKey.(string)))
	}

	return attrs
}
