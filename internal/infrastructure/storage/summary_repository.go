package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meetscribe/backend/internal/domain/meeting"
)

// SummaryRepository 总结仓储接口
// 一个会议最多一份总结；重新生成时在单个事务内整体替换，
// 读取端永远不会观察到半写入的总结
type SummaryRepository interface {
	// Replace 整体替换总结（delete + insert，单事务）
	Replace(s *meeting.Summary) error
	// FindByMeeting 读取总结，不存在时返回 (nil, nil)
	FindByMeeting(meetingID string) (*meeting.Summary, error)
	// Exists 总结是否存在
	Exists(meetingID string) (bool, error)
}

// summaryRepository 总结 SQLite 仓储实现
type summaryRepository struct {
	db *sql.DB
}

// NewSummaryRepository 创建总结仓储实例
func NewSummaryRepository(db *sql.DB) SummaryRepository {
	return &summaryRepository{db: db}
}

// Replace 整体替换总结
// 旧总结在新总结持久化成功前保留：事务失败时回滚，旧数据不丢失
func (r *summaryRepository) Replace(s *meeting.Summary) error {
	if s.MeetingID == "" {
		return meeting.ErrEmptyMeetingID
	}

	sectionsJSON, err := json.Marshal(s.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	if s.GeneratedAt.IsZero() {
		s.GeneratedAt = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM summaries WHERE meeting_id = ?`, s.MeetingID); err != nil {
		return fmt.Errorf("failed to delete prior summary: %w", err)
	}

	structured := 0
	if s.Structured {
		structured = 1
	}

	_, err = tx.Exec(`
		INSERT INTO summaries
		(meeting_id, sections, raw_markdown, structured, model, language, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.MeetingID,
		string(sectionsJSON),
		s.RawMarkdown,
		structured,
		s.Model,
		s.Language,
		s.GeneratedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit summary replace: %w", err)
	}

	return nil
}

// FindByMeeting 读取总结
func (r *summaryRepository) FindByMeeting(meetingID string) (*meeting.Summary, error) {
	if meetingID == "" {
		return nil, meeting.ErrEmptyMeetingID
	}

	query := `
		SELECT sections, raw_markdown, structured, model, language, generated_at
		FROM summaries WHERE meeting_id = ?`

	var s meeting.Summary
	var sectionsJSON string
	var structured int
	var generatedAt int64

	err := r.db.QueryRow(query, meetingID).Scan(
		&sectionsJSON,
		&s.RawMarkdown,
		&structured,
		&s.Model,
		&s.Language,
		&generatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	if err := json.Unmarshal([]byte(sectionsJSON), &s.Sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sections: %w", err)
	}

	s.MeetingID = meetingID
	s.Structured = structured == 1
	s.GeneratedAt = time.UnixMilli(generatedAt)

	return &s, nil
}

// Exists 总结是否存在
func (r *summaryRepository) Exists(meetingID string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM summaries WHERE meeting_id = ?`,
		meetingID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count summaries: %w", err)
	}
	return count > 0, nil
}

// 编译时检查接口实现
var _ SummaryRepository = (*summaryRepository)(nil)
