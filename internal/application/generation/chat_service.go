package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/meetscribe/backend/internal/application/prompt"
	"github.com/meetscribe/backend/internal/application/settings"
	"github.com/meetscribe/backend/internal/domain/generation"
	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/meetscribe/backend/internal/infrastructure/config"
	"github.com/meetscribe/backend/internal/infrastructure/log"
	"github.com/meetscribe/backend/internal/infrastructure/storage"
)

// ChatService 会议问答
// 用户消息在调用模型之前先落盘：模型调用失败时该轮只留下用户消息，
// 重试由调用方发起新的一轮
type ChatService struct {
	orch        *Orchestrator
	meetings    storage.MeetingRepository
	transcripts storage.TranscriptRepository
	summaries   storage.SummaryRepository
	messages    storage.ChatMessageRepository
	composer    *prompt.Composer
	completer   Completer
	settings    *settings.Service
	cfg         *config.LLMConfig
	logger      *slog.Logger
}

// NewChatService 创建问答服务
func NewChatService(
	orch *Orchestrator,
	meetings storage.MeetingRepository,
	transcripts storage.TranscriptRepository,
	summaries storage.SummaryRepository,
	messages storage.ChatMessageRepository,
	composer *prompt.Composer,
	completer Completer,
	settingsSvc *settings.Service,
	cfg *config.LLMConfig,
) *ChatService {
	return &ChatService{
		orch:        orch,
		meetings:    meetings,
		transcripts: transcripts,
		summaries:   summaries,
		messages:    messages,
		composer:    composer,
		completer:   completer,
		settings:    settingsSvc,
		cfg:         cfg,
		logger:      log.NewModuleLogger("generation", "chat"),
	}
}

// Ask 针对会议内容提问并返回一轮完整对话
func (s *ChatService) Ask(ctx context.Context, meetingID, question string, override settings.ModelOverride) (*meeting.ChatTurn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, generation.ErrEmptyQuestion
	}

	m, err := s.meetings.FindByID(meetingID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, meeting.ErrMeetingNotFound
	}

	mc, err := s.settings.ResolveModel(override)
	if err != nil {
		return nil, err
	}
	language, err := s.settings.Language()
	if err != nil {
		return nil, err
	}

	transcript, err := s.transcripts.FindByMeeting(meetingID)
	if err != nil {
		return nil, err
	}
	if transcript.IsEmpty() {
		return nil, meeting.ErrNoTranscript
	}

	history, err := s.messages.FindByMeeting(meetingID)
	if err != nil {
		return nil, err
	}

	var summaryText string
	if summary, err := s.summaries.FindByMeeting(meetingID); err != nil {
		return nil, err
	} else if summary != nil {
		summaryText = summary.RawMarkdown
	}

	// 提问先落盘：这一轮无论成败都出现在会议的对话历史里
	userMsg := &meeting.ChatMessage{
		MeetingID: meetingID,
		Role:      meeting.RoleUser,
		Content:   question,
		CreatedAt: time.Now(),
	}
	if err := s.messages.Save(userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist question: %w", err)
	}

	turn := &meeting.ChatTurn{UserMessage: userMsg}
	err = s.orch.Run(ctx, meetingID, generation.KindChatTurn, language, mc.Model, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()

		rp, err := s.composer.ComposeChat(prompt.ChatInput{
			Language:     language,
			MeetingTitle: m.Title,
			Transcript:   transcript.PlainText(),
			Summary:      summaryText,
			History:      dereference(history),
			Question:     question,
		})
		if err != nil {
			return err
		}

		answer, err := s.completer.Complete(ctx, mc, rp.Messages())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", generation.ErrModelCallFailed, err)
		}

		cleaned := strings.TrimSpace(prompt.CleanLLMMarkdown(answer))
		if cleaned == "" {
			return generation.ErrMalformedResponse
		}

		assistantMsg := &meeting.ChatMessage{
			MeetingID: meetingID,
			Role:      meeting.RoleAssistant,
			Content:   cleaned,
			CreatedAt: time.Now(),
		}
		if err := s.messages.Save(assistantMsg); err != nil {
			return fmt.Errorf("failed to persist answer: %w", err)
		}

		turn.Answer = cleaned
		turn.AssistantMessage = assistantMsg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("chat turn completed",
		"meeting_id", meetingID,
		"model", mc.Model,
		"history_messages", len(history))
	return turn, nil
}

// History 返回会议的全部对话消息，按时间升序
func (s *ChatService) History(meetingID string) ([]*meeting.ChatMessage, error) {
	return s.messages.FindByMeeting(meetingID)
}

// ClearHistory 清空会议的对话历史，返回删除的消息数
func (s *ChatService) ClearHistory(meetingID string) (int64, error) {
	return s.messages.DeleteByMeeting(meetingID)
}

// dereference 指针切片转值切片
func dereference(messages []*meeting.ChatMessage) []meeting.ChatMessage {
	out := make([]meeting.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, *msg)
	}
	return out
}
