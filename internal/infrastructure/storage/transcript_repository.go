package storage

import (
	"database/sql"
	"fmt"

	"github.com/meetscribe/backend/internal/domain/meeting"
)

// TranscriptRepository 转录仓储接口
// 录音期间逐片段追加落盘，会话结束时封存
type TranscriptRepository interface {
	// AppendFragment 追加一个片段，转录已封存时返回 ErrTranscriptSealed
	AppendFragment(f *meeting.TranscriptFragment) error
	// Seal 封存转录，之后不能再追加
	Seal(meetingID string) error
	// FindByMeeting 读取完整转录，片段按 Seq 升序
	FindByMeeting(meetingID string) (*meeting.Transcript, error)
	// HasFragments 会议是否已有任何转录片段
	HasFragments(meetingID string) (bool, error)
	// NextSeq 下一个片段序号（恢复中断的会话时使用）
	NextSeq(meetingID string) (int64, error)
}

// transcriptRepository 转录 SQLite 仓储实现
type transcriptRepository struct {
	db *sql.DB
}

// NewTranscriptRepository 创建转录仓储实例
func NewTranscriptRepository(db *sql.DB) TranscriptRepository {
	return &transcriptRepository{db: db}
}

// AppendFragment 追加片段
func (r *transcriptRepository) AppendFragment(f *meeting.TranscriptFragment) error {
	if f.MeetingID == "" {
		return meeting.ErrEmptyMeetingID
	}

	sealed, err := r.isSealed(f.MeetingID)
	if err != nil {
		return err
	}
	if sealed {
		return meeting.ErrTranscriptSealed
	}

	var confidence sql.NullFloat64
	if f.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *f.Confidence, Valid: true}
	}

	query := `
		INSERT INTO transcript_fragments
		(meeting_id, seq, start_ms, end_ms, text, confidence, language)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		f.MeetingID,
		f.Seq,
		f.StartMs,
		f.EndMs,
		f.Text,
		confidence,
		f.Language,
	)
	if err != nil {
		return fmt.Errorf("failed to append fragment: %w", err)
	}

	return nil
}

// Seal 封存转录
func (r *transcriptRepository) Seal(meetingID string) error {
	if meetingID == "" {
		return meeting.ErrEmptyMeetingID
	}

	query := `
		INSERT INTO transcripts (meeting_id, sealed) VALUES (?, 1)
		ON CONFLICT(meeting_id) DO UPDATE SET sealed = 1`

	_, err := r.db.Exec(query, meetingID)
	if err != nil {
		return fmt.Errorf("failed to seal transcript: %w", err)
	}
	return nil
}

// FindByMeeting 读取完整转录
func (r *transcriptRepository) FindByMeeting(meetingID string) (*meeting.Transcript, error) {
	if meetingID == "" {
		return nil, meeting.ErrEmptyMeetingID
	}

	query := `
		SELECT seq, start_ms, end_ms, text, confidence, language
		FROM transcript_fragments
		WHERE meeting_id = ?
		ORDER BY seq ASC`

	rows, err := r.db.Query(query, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments: %w", err)
	}
	defer rows.Close()

	transcript := &meeting.Transcript{MeetingID: meetingID}
	for rows.Next() {
		var f meeting.TranscriptFragment
		var confidence sql.NullFloat64

		if err := rows.Scan(&f.Seq, &f.StartMs, &f.EndMs, &f.Text, &confidence, &f.Language); err != nil {
			continue
		}

		f.MeetingID = meetingID
		if confidence.Valid {
			c := confidence.Float64
			f.Confidence = &c
		}
		transcript.Fragments = append(transcript.Fragments, f)
	}

	sealed, err := r.isSealed(meetingID)
	if err != nil {
		return nil, err
	}
	transcript.Sealed = sealed

	return transcript, nil
}

// HasFragments 会议是否已有任何片段
func (r *transcriptRepository) HasFragments(meetingID string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM transcript_fragments WHERE meeting_id = ?`,
		meetingID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count fragments: %w", err)
	}
	return count > 0, nil
}

// NextSeq 下一个片段序号
func (r *transcriptRepository) NextSeq(meetingID string) (int64, error) {
	var maxSeq sql.NullInt64
	err := r.db.QueryRow(
		`SELECT MAX(seq) FROM transcript_fragments WHERE meeting_id = ?`,
		meetingID,
	).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to query max seq: %w", err)
	}
	if !maxSeq.Valid {
		return 0, nil
	}
	return maxSeq.Int64 + 1, nil
}

// isSealed 转录是否已封存
func (r *transcriptRepository) isSealed(meetingID string) (bool, error) {
	var sealed int
	err := r.db.QueryRow(
		`SELECT sealed FROM transcripts WHERE meeting_id = ?`,
		meetingID,
	).Scan(&sealed)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to query transcript state: %w", err)
	}
	return sealed == 1, nil
}

// 编译时检查接口实现
var _ TranscriptRepository = (*transcriptRepository)(nil)
