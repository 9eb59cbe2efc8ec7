package generation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/application/prompt"
	"github.com/meetscribe/backend/internal/application/settings"
	"github.com/meetscribe/backend/internal/domain/generation"
	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/meetscribe/backend/internal/infrastructure/config"
	"github.com/meetscribe/backend/internal/infrastructure/llm"
	"github.com/meetscribe/backend/internal/infrastructure/storage"
	"github.com/meetscribe/backend/internal/infrastructure/watcher"
)

// fakeCompleter 按脚本回复的模型替身
type fakeCompleter struct {
	mu sync.Mutex
	// calls 记录每次调用收到的消息
	calls [][]llm.Message
	// respond 基于收到的消息产出回复
	respond func(messages []llm.Message) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, mc llm.ModelConfig, messages []llm.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	respond := f.respond
	f.mu.Unlock()
	return respond(messages)
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func staticReply(reply string) func([]llm.Message) (string, error) {
	return func([]llm.Message) (string, error) { return reply, nil }
}

const structuredReply = `## Key Points
- Budget approved

## Action Items
- Ana sends the report

## Decisions
- Hire one engineer

## Main Topics
- Planning
`

type genFixture struct {
	summaries   *SummaryService
	chats       *ChatService
	orch        *Orchestrator
	completer   *fakeCompleter
	meetings    storage.MeetingRepository
	transcripts storage.TranscriptRepository
	summaryRepo storage.SummaryRepository
	messageRepo storage.ChatMessageRepository
	settings    *settings.Service
	cfg         *config.LLMConfig
}

func newGenFixture(t *testing.T, completer *fakeCompleter) *genFixture {
	t.Helper()

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := watcher.NewEventBus()
	t.Cleanup(bus.Close)

	cfg := &config.LLMConfig{
		RequestTimeout: 5 * time.Second,
		TokenThreshold: 4000,
		ContextBudget:  6000,
	}

	meetings := storage.NewMeetingRepository(db)
	transcripts := storage.NewTranscriptRepository(db)
	summaryRepo := storage.NewSummaryRepository(db)
	messageRepo := storage.NewChatMessageRepository(db)

	settingsSvc := settings.NewService(storage.NewSettingsRepository(db))
	require.NoError(t, settingsSvc.UpdateModel("ollama", "llama3.1", "", ""))

	composer := prompt.NewComposer(cfg, prompt.NewTemplateStore(bus))
	orch := NewOrchestrator(bus)

	return &genFixture{
		summaries:   NewSummaryService(orch, meetings, transcripts, summaryRepo, composer, completer, settingsSvc, cfg),
		chats:       NewChatService(orch, meetings, transcripts, summaryRepo, messageRepo, composer, completer, settingsSvc, cfg),
		orch:        orch,
		completer:   completer,
		meetings:    meetings,
		transcripts: transcripts,
		summaryRepo: summaryRepo,
		messageRepo: messageRepo,
		settings:    settingsSvc,
		cfg:         cfg,
	}
}

func (f *genFixture) seedMeeting(t *testing.T, title string, fragments ...string) string {
	t.Helper()
	m := &meeting.Meeting{Title: title}
	require.NoError(t, f.meetings.Save(m))
	for i, text := range fragments {
		require.NoError(t, f.transcripts.AppendFragment(&meeting.TranscriptFragment{
			MeetingID: m.ID,
			Seq:       int64(i),
			StartMs:   int64(i) * 1000,
			EndMs:     int64(i+1) * 1000,
			Text:      text,
			Language:  "pt-BR",
		}))
	}
	return m.ID
}

func TestSummaryService_GenerateStructured(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply(structuredReply)}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "discutimos o orçamento", "decidimos contratar")

	summary, err := f.summaries.Generate(context.Background(), meetingID, "", settings.ModelOverride{})
	require.NoError(t, err)
	assert.True(t, summary.Structured)
	assert.Equal(t, []string{"Budget approved"}, summary.Sections.KeyPoints)
	assert.Equal(t, "llama3.1", summary.Model)
	assert.Equal(t, "pt-BR", summary.Language)

	stored, err := f.summaryRepo.FindByMeeting(meetingID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Structured)
	assert.Equal(t, summary.Sections, stored.Sections)

	job, ok := f.orch.Status(meetingID, generation.KindSummary)
	require.True(t, ok)
	assert.Equal(t, generation.StatusCompleted, job.Status)
}

func TestSummaryService_RawTextFallback(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply("The meeting was mostly about budget planning.")}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "discutimos o orçamento")

	summary, err := f.summaries.Generate(context.Background(), meetingID, "", settings.ModelOverride{})
	require.NoError(t, err)
	assert.False(t, summary.Structured)
	assert.Equal(t, "The meeting was mostly about budget planning.", summary.RawMarkdown)
}

func TestSummaryService_CleansModelOutput(t *testing.T) {
	wrapped := "<thinking>let me reason</thinking>```markdown\n" + structuredReply + "```\n"
	completer := &fakeCompleter{respond: staticReply(wrapped)}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "discutimos o orçamento")

	summary, err := f.summaries.Generate(context.Background(), meetingID, "", settings.ModelOverride{})
	require.NoError(t, err)
	assert.True(t, summary.Structured)
	assert.NotContains(t, summary.RawMarkdown, "<thinking>")
	assert.NotContains(t, summary.RawMarkdown, "```")
}

func TestSummaryService_FailureLeavesPriorSummary(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply(structuredReply)}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "discutimos o orçamento")

	_, err := f.summaries.Generate(context.Background(), meetingID, "", settings.ModelOverride{})
	require.NoError(t, err)

	completer.mu.Lock()
	completer.respond = func([]llm.Message) (string, error) {
		return "", errors.New("connection refused")
	}
	completer.mu.Unlock()

	_, err = f.summaries.Regenerate(context.Background(), meetingID, "", settings.ModelOverride{})
	assert.ErrorIs(t, err, generation.ErrModelCallFailed)

	stored, err := f.summaryRepo.FindByMeeting(meetingID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []string{"Budget approved"}, stored.Sections.KeyPoints)

	job, ok := f.orch.Status(meetingID, generation.KindRegenerateSummary)
	require.True(t, ok)
	assert.Equal(t, generation.StatusFailed, job.Status)
}

func TestSummaryService_RegenerateRequiresExistingSummary(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply(structuredReply)}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "discutimos o orçamento")

	_, err := f.summaries.Regenerate(context.Background(), meetingID, "", settings.ModelOverride{})
	assert.ErrorIs(t, err, generation.ErrSummaryRequired)
	assert.Equal(t, 0, f.completer.callCount())
}

func TestSummaryService_RequiresTranscript(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply(structuredReply)}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "empty meeting")

	_, err := f.summaries.Generate(context.Background(), meetingID, "", settings.ModelOverride{})
	assert.ErrorIs(t, err, meeting.ErrNoTranscript)

	_, err = f.summaries.Generate(context.Background(), "missing", "", settings.ModelOverride{})
	assert.ErrorIs(t, err, meeting.ErrMeetingNotFound)
}

func TestSummaryService_RequiresModelConfiguration(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply(structuredReply)}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "discutimos o orçamento")
	require.NoError(t, f.settings.UpdateModel("", "", "", ""))

	_, err := f.summaries.Generate(context.Background(), meetingID, "", settings.ModelOverride{})
	assert.ErrorIs(t, err, generation.ErrNoModelConfigured)
}

func TestSummaryService_ChunkedPathForLocalProvider(t *testing.T) {
	var combineSeen bool
	completer := &fakeCompleter{}
	completer.respond = func(messages []llm.Message) (string, error) {
		user := messages[len(messages)-1].Content
		if strings.Contains(user, "\n---\n") {
			combineSeen = true
			return structuredReply, nil
		}
		return fmt.Sprintf("partial summary %d", completer.callCount()), nil
	}

	f := newGenFixture(t, completer)
	f.cfg.TokenThreshold = 1000

	// 约 1650 token 的转写，远超 1000 的阈值
	long := strings.Repeat("a reunião discutiu o planejamento do próximo trimestre em detalhe ", 100)
	meetingID := f.seedMeeting(t, "long meeting", long)

	summary, err := f.summaries.Generate(context.Background(), meetingID, "", settings.ModelOverride{})
	require.NoError(t, err)
	assert.True(t, summary.Structured)
	assert.True(t, combineSeen, "expected a combine call joining partial summaries")
	assert.Greater(t, f.completer.callCount(), 2, "expected multiple chunk calls plus a combine call")
}

func TestSummaryService_RemoteProviderNeverChunks(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply(structuredReply)}
	f := newGenFixture(t, completer)
	f.cfg.TokenThreshold = 400
	require.NoError(t, f.settings.UpdateModel("openai", "gpt-4o", "sk-test", ""))

	long := strings.Repeat("a reunião discutiu o planejamento do próximo trimestre em detalhe ", 100)
	meetingID := f.seedMeeting(t, "long meeting", long)

	_, err := f.summaries.Generate(context.Background(), meetingID, "", settings.ModelOverride{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.completer.callCount())
}

func TestChatService_SuccessfulTurnPersistsBothMessages(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply("A decisão foi contratar um engenheiro.")}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "decidimos contratar um engenheiro")

	turn, err := f.chats.Ask(context.Background(), meetingID, "O que foi decidido?", settings.ModelOverride{})
	require.NoError(t, err)
	assert.Equal(t, "A decisão foi contratar um engenheiro.", turn.Answer)
	require.NotNil(t, turn.UserMessage)
	require.NotNil(t, turn.AssistantMessage)

	history, err := f.chats.History(meetingID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, meeting.RoleUser, history[0].Role)
	assert.Equal(t, "O que foi decidido?", history[0].Content)
	assert.Equal(t, meeting.RoleAssistant, history[1].Role)
}

func TestChatService_FailedTurnLeavesOnlyUserMessage(t *testing.T) {
	completer := &fakeCompleter{respond: func([]llm.Message) (string, error) {
		return "", errors.New("connection refused")
	}}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "decidimos contratar um engenheiro")

	_, err := f.chats.Ask(context.Background(), meetingID, "O que foi decidido?", settings.ModelOverride{})
	assert.ErrorIs(t, err, generation.ErrModelCallFailed)

	history, err := f.chats.History(meetingID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, meeting.RoleUser, history[0].Role)
	assert.Equal(t, "O que foi decidido?", history[0].Content)
}

func TestChatService_ValidationErrors(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply("answer")}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "alguma coisa")
	emptyID := f.seedMeeting(t, "empty meeting")

	_, err := f.chats.Ask(context.Background(), meetingID, "   ", settings.ModelOverride{})
	assert.ErrorIs(t, err, generation.ErrEmptyQuestion)

	_, err = f.chats.Ask(context.Background(), "missing", "pergunta", settings.ModelOverride{})
	assert.ErrorIs(t, err, meeting.ErrMeetingNotFound)

	_, err = f.chats.Ask(context.Background(), emptyID, "pergunta", settings.ModelOverride{})
	assert.ErrorIs(t, err, meeting.ErrNoTranscript)

	// 校验失败的请求不产生任何消息
	history, err := f.chats.History(meetingID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestChatService_HistoryFlowsIntoNextTurn(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply("resposta um")}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "alguma coisa aconteceu")

	_, err := f.chats.Ask(context.Background(), meetingID, "primeira pergunta", settings.ModelOverride{})
	require.NoError(t, err)

	completer.mu.Lock()
	completer.respond = staticReply("resposta dois")
	completer.mu.Unlock()

	_, err = f.chats.Ask(context.Background(), meetingID, "segunda pergunta", settings.ModelOverride{})
	require.NoError(t, err)

	completer.mu.Lock()
	lastCall := completer.calls[len(completer.calls)-1]
	completer.mu.Unlock()
	user := lastCall[len(lastCall)-1].Content
	assert.Contains(t, user, "primeira pergunta")
	assert.Contains(t, user, "resposta um")
	assert.Contains(t, user, "segunda pergunta")
}

func TestChatService_ClearHistory(t *testing.T) {
	completer := &fakeCompleter{respond: staticReply("resposta")}
	f := newGenFixture(t, completer)
	meetingID := f.seedMeeting(t, "planning", "alguma coisa aconteceu")

	_, err := f.chats.Ask(context.Background(), meetingID, "pergunta", settings.ModelOverride{})
	require.NoError(t, err)

	deleted, err := f.chats.ClearHistory(meetingID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	history, err := f.chats.History(meetingID)
	require.NoError(t, err)
	assert.Empty(t, history)
}
