package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meetscribe/backend/internal/domain/meeting"
)

// ChatMessageRepository 问答消息仓储接口
// 消息按 (meeting_id, created_at) 排序读取
type ChatMessageRepository interface {
	Save(msg *meeting.ChatMessage) error
	FindByMeeting(meetingID string) ([]*meeting.ChatMessage, error)
	Count(meetingID string) (int64, error)
	DeleteByMeeting(meetingID string) (int64, error)
}

// chatMessageRepository 问答消息 SQLite 仓储实现
type chatMessageRepository struct {
	db *sql.DB
}

// NewChatMessageRepository 创建问答消息仓储实例
func NewChatMessageRepository(db *sql.DB) ChatMessageRepository {
	return &chatMessageRepository{db: db}
}

// Save 保存消息
func (r *chatMessageRepository) Save(msg *meeting.ChatMessage) error {
	if msg.MeetingID == "" {
		return meeting.ErrEmptyMeetingID
	}
	if msg.Role != meeting.RoleUser && msg.Role != meeting.RoleAssistant {
		return meeting.ErrInvalidRole
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	var metadata sql.NullString
	if msg.Metadata != "" {
		metadata = sql.NullString{String: msg.Metadata, Valid: true}
	}

	query := `
		INSERT INTO chat_messages (id, meeting_id, role, content, created_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		msg.ID,
		msg.MeetingID,
		msg.Role,
		msg.Content,
		msg.CreatedAt.UnixMilli(),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}

	return nil
}

// FindByMeeting 获取会议的全部消息，按创建时间升序
func (r *chatMessageRepository) FindByMeeting(meetingID string) ([]*meeting.ChatMessage, error) {
	if meetingID == "" {
		return nil, meeting.ErrEmptyMeetingID
	}

	query := `
		SELECT id, role, content, created_at, metadata
		FROM chat_messages
		WHERE meeting_id = ?
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(query, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*meeting.ChatMessage
	for rows.Next() {
		var msg meeting.ChatMessage
		var createdAt int64
		var metadata sql.NullString

		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &createdAt, &metadata); err != nil {
			continue
		}

		msg.MeetingID = meetingID
		msg.CreatedAt = time.UnixMilli(createdAt)
		if metadata.Valid {
			msg.Metadata = metadata.String
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}

// Count 消息数量
func (r *chatMessageRepository) Count(meetingID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM chat_messages WHERE meeting_id = ?`,
		meetingID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return count, nil
}

// DeleteByMeeting 删除会议的全部消息
func (r *chatMessageRepository) DeleteByMeeting(meetingID string) (int64, error) {
	if meetingID == "" {
		return 0, meeting.ErrEmptyMeetingID
	}

	result, err := r.db.Exec(`DELETE FROM chat_messages WHERE meeting_id = ?`, meetingID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chat messages: %w", err)
	}
	return result.RowsAffected()
}

// 编译时检查接口实现
var _ ChatMessageRepository = (*chatMessageRepository)(nil)
