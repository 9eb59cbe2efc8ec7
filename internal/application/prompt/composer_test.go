package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/domain/events"
	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/meetscribe/backend/internal/infrastructure/config"
)

func newTestComposer(t *testing.T, budget int) *Composer {
	t.Helper()
	bus := stubBus{}
	store := NewTemplateStore(bus)
	return NewComposer(&config.LLMConfig{ContextBudget: budget}, store)
}

// stubBus 不分发任何事件的事件总线替身
type stubBus struct{}

func (stubBus) Subscribe(events.EventType, events.Handler) func()           { return func() {} }
func (stubBus) SubscribeMultiple([]events.EventType, events.Handler) func() { return func() {} }
func (stubBus) Publish(events.Event)                                        {}
func (stubBus) Close()                                                      {}

func TestComposer_ChatRequiresTranscript(t *testing.T) {
	c := newTestComposer(t, 4000)

	_, err := c.ComposeChat(ChatInput{
		Language: "pt-BR",
		Question: "o que foi decidido?",
	})
	assert.ErrorIs(t, err, meeting.ErrNoTranscript)
}

func TestComposer_ChatIncludesContextSections(t *testing.T) {
	c := newTestComposer(t, 4000)

	rendered, err := c.ComposeChat(ChatInput{
		Language:     "en-US",
		MeetingTitle: "Q3 Planning",
		Transcript:   "we agreed to ship in October",
		Summary:      "## Key Points\n- ship date",
		History: []meeting.ChatMessage{
			{Role: meeting.RoleUser, Content: "when do we ship?"},
			{Role: meeting.RoleAssistant, Content: "In October."},
		},
		Question: "who owns the launch?",
	})
	require.NoError(t, err)

	assert.Contains(t, rendered.System, "Respond in English")
	assert.Contains(t, rendered.User, "# Meeting Title\nQ3 Planning")
	assert.Contains(t, rendered.User, "# Transcript\nwe agreed to ship in October")
	assert.Contains(t, rendered.User, "# Summary")
	assert.Contains(t, rendered.User, "# Previous Conversation")
	assert.Contains(t, rendered.User, "User: when do we ship?")
	assert.Contains(t, rendered.User, "# Current Question\nwho owns the launch?")

	msgs := rendered.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
}

func TestComposer_LanguageFallbackIsDeterministic(t *testing.T) {
	c := newTestComposer(t, 4000)

	in := ChatInput{
		Language:   "fr-FR", // 不支持的语言
		Transcript: "conteúdo da reunião",
		Question:   "pergunta",
	}

	first, err := c.ComposeChat(in)
	require.NoError(t, err)
	// 回退到默认语言 pt-BR
	assert.Contains(t, first.System, "português do Brasil")

	// 重复调用结果稳定
	second, err := c.ComposeChat(in)
	require.NoError(t, err)
	assert.Equal(t, first.System, second.System)
	assert.Equal(t, first.User, second.User)
}

func TestComposer_TruncateMiddleKeepsHeadAndTail(t *testing.T) {
	c := newTestComposer(t, 4000)

	opening := "welcome everyone today we will discuss the roadmap "
	closing := " final decision we ship in october thanks everyone"
	middle := strings.Repeat("filler discussion detail ", 500)
	text := opening + middle + closing

	got := c.TruncateMiddle(text, 100)

	assert.Less(t, len(got), len(text))
	assert.Contains(t, got, truncationMarker)
	assert.True(t, strings.HasPrefix(got, "welcome everyone"),
		"opening of the meeting must survive truncation")
	assert.True(t, strings.HasSuffix(got, "thanks everyone"),
		"closing of the meeting must survive truncation")
}

func TestComposer_TruncateMiddleNoOpUnderBudget(t *testing.T) {
	c := newTestComposer(t, 4000)

	text := "short transcript"
	assert.Equal(t, text, c.TruncateMiddle(text, 1000))
}

func TestComposer_ChatKeepsOnlyRecentTurns(t *testing.T) {
	c := newTestComposer(t, 8000)

	var history []meeting.ChatMessage
	for i := 0; i < 20; i++ {
		history = append(history,
			meeting.ChatMessage{Role: meeting.RoleUser, Content: "question-0" + string(rune('a'+i))},
			meeting.ChatMessage{Role: meeting.RoleAssistant, Content: "answer-0" + string(rune('a'+i))},
		)
	}

	rendered, err := c.ComposeChat(ChatInput{
		Language:   "en-US",
		Transcript: "transcript body",
		History:    history,
		Question:   "next?",
	})
	require.NoError(t, err)

	assert.NotContains(t, rendered.User, "question-0a", "oldest turns must be dropped")
	assert.Contains(t, rendered.User, "question-0t", "latest turn must be kept")
}

func TestComposer_SummaryWrapsTranscriptAndCustomPrompt(t *testing.T) {
	c := newTestComposer(t, 4000)

	rendered, err := c.ComposeSummary("pt-BR", "corpo da transcrição", "foque nos prazos")
	require.NoError(t, err)

	assert.Contains(t, rendered.System, "## Key Points")
	assert.Contains(t, rendered.User, "<transcript_chunks>\ncorpo da transcrição\n</transcript_chunks>")
	assert.Contains(t, rendered.User, "<user_context>\nfoque nos prazos\n</user_context>")
}

func TestComposer_SummaryRequiresContent(t *testing.T) {
	c := newTestComposer(t, 4000)

	_, err := c.ComposeSummary("pt-BR", "   ", "")
	assert.ErrorIs(t, err, meeting.ErrNoTranscript)
}

func TestComposer_ChunkAndCombinePrompts(t *testing.T) {
	c := newTestComposer(t, 4000)

	chunk := c.ComposeChunk("en-US", "chunk body")
	assert.Contains(t, chunk.User, "chunk body")
	assert.Contains(t, chunk.System, "portion of a meeting transcript")

	combine := c.ComposeCombine("en-US", "partial one\n---\npartial two")
	assert.Contains(t, combine.User, "partial one\n---\npartial two")
	assert.Contains(t, combine.System, "partial summaries")
}
