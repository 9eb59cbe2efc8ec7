package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB 创建临时测试数据库
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "meetscribe_test_*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := OpenDB(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

// createMeeting 插入一条测试会议
func createMeeting(t *testing.T, db *sql.DB, id, title string) {
	t.Helper()
	repo := NewMeetingRepository(db)
	require.NoError(t, repo.Save(&meeting.Meeting{ID: id, Title: title, CreatedAt: time.Now()}))
}

func TestMeetingRepository_DeleteCascades(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	meetingRepo := NewMeetingRepository(db)
	transcriptRepo := NewTranscriptRepository(db)
	summaryRepo := NewSummaryRepository(db)
	chatRepo := NewChatMessageRepository(db)

	createMeeting(t, db, "m1", "planning")

	// 写入全部三类子数据
	require.NoError(t, transcriptRepo.AppendFragment(&meeting.TranscriptFragment{
		MeetingID: "m1", Seq: 0, StartMs: 0, EndMs: 3000, Text: "hello", Language: "en-US",
	}))
	require.NoError(t, summaryRepo.Replace(&meeting.Summary{
		MeetingID: "m1",
		Sections: meeting.SummarySections{
			KeyPoints:   []string{"a"},
			ActionItems: []string{"b"},
			Decisions:   []string{"c"},
			MainTopics:  []string{"d"},
		},
		Structured: true,
	}))
	require.NoError(t, chatRepo.Save(&meeting.ChatMessage{
		MeetingID: "m1", Role: meeting.RoleUser, Content: "what was decided?",
	}))

	// 删除会议后所有子表数据必须级联删除
	require.NoError(t, meetingRepo.Delete("m1"))

	transcript, err := transcriptRepo.FindByMeeting("m1")
	require.NoError(t, err)
	assert.Empty(t, transcript.Fragments)

	summary, err := summaryRepo.FindByMeeting("m1")
	require.NoError(t, err)
	assert.Nil(t, summary)

	count, err := chatRepo.Count("m1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTranscriptRepository_OrderAndSeal(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewTranscriptRepository(db)
	createMeeting(t, db, "m1", "standup")

	// 乱序插入，读取时必须按 Seq 升序
	for _, seq := range []int64{2, 0, 1} {
		require.NoError(t, repo.AppendFragment(&meeting.TranscriptFragment{
			MeetingID: "m1", Seq: seq, StartMs: seq * 1000, EndMs: (seq + 1) * 1000,
			Text: "frag", Language: "en-US",
		}))
	}

	transcript, err := repo.FindByMeeting("m1")
	require.NoError(t, err)
	require.Len(t, transcript.Fragments, 3)
	for i, f := range transcript.Fragments {
		assert.Equal(t, int64(i), f.Seq)
	}
	assert.False(t, transcript.Sealed)

	// 封存后不能再追加
	require.NoError(t, repo.Seal("m1"))
	err = repo.AppendFragment(&meeting.TranscriptFragment{MeetingID: "m1", Seq: 3, Text: "late"})
	assert.ErrorIs(t, err, meeting.ErrTranscriptSealed)

	transcript, err = repo.FindByMeeting("m1")
	require.NoError(t, err)
	assert.True(t, transcript.Sealed)
	assert.Len(t, transcript.Fragments, 3)
}

func TestTranscriptRepository_NextSeq(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewTranscriptRepository(db)
	createMeeting(t, db, "m1", "retro")

	seq, err := repo.NextSeq("m1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, repo.AppendFragment(&meeting.TranscriptFragment{
		MeetingID: "m1", Seq: 0, Text: "a",
	}))
	require.NoError(t, repo.AppendFragment(&meeting.TranscriptFragment{
		MeetingID: "m1", Seq: 1, Text: "b",
	}))

	seq, err = repo.NextSeq("m1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestSummaryRepository_ReplaceIsWholesale(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSummaryRepository(db)
	createMeeting(t, db, "m1", "kickoff")

	first := &meeting.Summary{
		MeetingID: "m1",
		Sections: meeting.SummarySections{
			KeyPoints:   []string{"old point"},
			ActionItems: []string{"old action"},
			Decisions:   []string{"old decision"},
			MainTopics:  []string{"old topic"},
		},
		RawMarkdown: "# old",
		Structured:  true,
		Model:       "gpt-4o",
	}
	require.NoError(t, repo.Replace(first))

	second := &meeting.Summary{
		MeetingID: "m1",
		Sections: meeting.SummarySections{
			KeyPoints:   []string{"new point"},
			ActionItems: []string{"new action"},
			Decisions:   []string{"new decision"},
			MainTopics:  []string{"new topic"},
		},
		RawMarkdown: "# new",
		Structured:  true,
		Model:       "gpt-4o",
	}
	require.NoError(t, repo.Replace(second))

	// 旧内容必须完全被替换，且四个章节都完整
	found, err := repo.FindByMeeting("m1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, []string{"new point"}, found.Sections.KeyPoints)
	assert.Equal(t, "# new", found.RawMarkdown)
	assert.True(t, found.Sections.IsComplete())

	exists, err := repo.Exists("m1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestChatMessageRepository_Ordering(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewChatMessageRepository(db)
	createMeeting(t, db, "m1", "sync")

	base := time.Now()
	turns := []struct {
		role    string
		content string
	}{
		{meeting.RoleUser, "q1"},
		{meeting.RoleAssistant, "a1"},
		{meeting.RoleUser, "q2"},
		{meeting.RoleAssistant, "a2"},
	}
	for i, turn := range turns {
		require.NoError(t, repo.Save(&meeting.ChatMessage{
			MeetingID: "m1",
			Role:      turn.role,
			Content:   turn.content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	messages, err := repo.FindByMeeting("m1")
	require.NoError(t, err)
	require.Len(t, messages, 4)

	// 读回顺序必须是调用顺序的 user/assistant 对
	for i, turn := range turns {
		assert.Equal(t, turn.role, messages[i].Role)
		assert.Equal(t, turn.content, messages[i].Content)
	}
}

func TestChatMessageRepository_RejectsInvalidRole(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewChatMessageRepository(db)
	createMeeting(t, db, "m1", "sync")

	err := repo.Save(&meeting.ChatMessage{MeetingID: "m1", Role: "system", Content: "x"})
	assert.ErrorIs(t, err, meeting.ErrInvalidRole)
}

func TestSettingsRepository_DefaultAndRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(db)

	// 无记录时返回默认语言
	s, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", s.Language)
	assert.Empty(t, s.ModelProvider)

	s.Language = "en-US"
	s.ModelProvider = "openai"
	s.ModelName = "gpt-4o"
	require.NoError(t, repo.Save(s))

	found, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, "en-US", found.Language)
	assert.Equal(t, "openai", found.ModelProvider)

	require.NoError(t, repo.SetLanguage("pt-BR"))
	found, err = repo.Get()
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", found.Language)
	// 只更新语言，模型配置保持不变
	assert.Equal(t, "gpt-4o", found.ModelName)
}
