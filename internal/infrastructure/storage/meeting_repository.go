package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meetscribe/backend/internal/domain/meeting"
)

// MeetingRepository 会议仓储接口
type MeetingRepository interface {
	Save(m *meeting.Meeting) error
	FindByID(id string) (*meeting.Meeting, error)
	FindAll() ([]*meeting.Meeting, error)
	// Delete 删除会议，级联删除其转录、总结和问答消息
	Delete(id string) error
}

// meetingRepository 会议 SQLite 仓储实现
type meetingRepository struct {
	db *sql.DB
}

// NewMeetingRepository 创建会议仓储实例
func NewMeetingRepository(db *sql.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

// Save 保存会议
func (r *meetingRepository) Save(m *meeting.Meeting) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	query := `
		INSERT OR REPLACE INTO meetings (id, title, created_at)
		VALUES (?, ?, ?)`

	_, err := r.db.Exec(query, m.ID, m.Title, m.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save meeting: %w", err)
	}

	return nil
}

// FindByID 根据 ID 查找会议
func (r *meetingRepository) FindByID(id string) (*meeting.Meeting, error) {
	if id == "" {
		return nil, meeting.ErrEmptyMeetingID
	}

	query := `SELECT id, title, created_at FROM meetings WHERE id = ?`

	var m meeting.Meeting
	var createdAt int64

	err := r.db.QueryRow(query, id).Scan(&m.ID, &m.Title, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query meeting: %w", err)
	}

	m.CreatedAt = time.UnixMilli(createdAt)
	return &m, nil
}

// FindAll 获取所有会议，按创建时间倒序
func (r *meetingRepository) FindAll() ([]*meeting.Meeting, error) {
	query := `SELECT id, title, created_at FROM meetings ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*meeting.Meeting
	for rows.Next() {
		var m meeting.Meeting
		var createdAt int64

		if err := rows.Scan(&m.ID, &m.Title, &createdAt); err != nil {
			continue
		}

		m.CreatedAt = time.UnixMilli(createdAt)
		meetings = append(meetings, &m)
	}

	return meetings, nil
}

// Delete 删除会议（外键级联删除所有子表数据）
func (r *meetingRepository) Delete(id string) error {
	if id == "" {
		return meeting.ErrEmptyMeetingID
	}

	query := `DELETE FROM meetings WHERE id = ?`
	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	return nil
}

// 编译时检查接口实现
var _ MeetingRepository = (*meetingRepository)(nil)
