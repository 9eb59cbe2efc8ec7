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
	"github.com/meetscribe/backend/internal/infrastructure/llm"
	"github.com/meetscribe/backend/internal/infrastructure/log"
	"github.com/meetscribe/backend/internal/infrastructure/storage"
)

// chunkOverlapTokens 分块总结时相邻块之间的重叠量
const chunkOverlapTokens = 100

// chunkReserveTokens 分块大小中为提示词骨架预留的量
const chunkReserveTokens = 300

// Completer 一轮 Chat 补全
// 由 llm.Client 实现，测试中可替换
type Completer interface {
	Complete(ctx context.Context, mc llm.ModelConfig, messages []llm.Message) (string, error)
}

// SummaryService 会议总结生成
// 每个会议至多一份总结；生成结果整体替换旧总结，生成失败时旧总结保留
type SummaryService struct {
	orch        *Orchestrator
	meetings    storage.MeetingRepository
	transcripts storage.TranscriptRepository
	summaries   storage.SummaryRepository
	composer    *prompt.Composer
	completer   Completer
	settings    *settings.Service
	cfg         *config.LLMConfig
	logger      *slog.Logger
}

// NewSummaryService 创建总结服务
func NewSummaryService(
	orch *Orchestrator,
	meetings storage.MeetingRepository,
	transcripts storage.TranscriptRepository,
	summaries storage.SummaryRepository,
	composer *prompt.Composer,
	completer Completer,
	settingsSvc *settings.Service,
	cfg *config.LLMConfig,
) *SummaryService {
	return &SummaryService{
		orch:        orch,
		meetings:    meetings,
		transcripts: transcripts,
		summaries:   summaries,
		composer:    composer,
		completer:   completer,
		settings:    settingsSvc,
		cfg:         cfg,
		logger:      log.NewModuleLogger("generation", "summary"),
	}
}

// Generate 为会议生成总结
// 已有总结时同样整体替换；customPrompt 追加为用户补充指令
func (s *SummaryService) Generate(ctx context.Context, meetingID, customPrompt string, override settings.ModelOverride) (*meeting.Summary, error) {
	return s.generate(ctx, meetingID, customPrompt, override, generation.KindSummary)
}

// Regenerate 重新生成总结
// 要求该会议已存在一份总结；生成失败时旧总结原样保留
func (s *SummaryService) Regenerate(ctx context.Context, meetingID, customPrompt string, override settings.ModelOverride) (*meeting.Summary, error) {
	exists, err := s.summaries.Exists(meetingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, generation.ErrSummaryRequired
	}
	return s.generate(ctx, meetingID, customPrompt, override, generation.KindRegenerateSummary)
}

// Get 读取会议总结，不存在时返回 (nil, nil)
func (s *SummaryService) Get(meetingID string) (*meeting.Summary, error) {
	return s.summaries.FindByMeeting(meetingID)
}

func (s *SummaryService) generate(ctx context.Context, meetingID, customPrompt string, override settings.ModelOverride, kind generation.Kind) (*meeting.Summary, error) {
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

	var summary *meeting.Summary
	err = s.orch.Run(ctx, meetingID, kind, language, mc.Model, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()

		raw, err := s.render(ctx, mc, language, transcript.PlainText(), customPrompt)
		if err != nil {
			return err
		}

		cleaned := prompt.CleanLLMMarkdown(raw)
		if strings.TrimSpace(cleaned) == "" {
			return generation.ErrMalformedResponse
		}

		sections, structured := ParseSections(cleaned)
		if !structured {
			s.logger.Warn("summary sections missing, falling back to raw text",
				"meeting_id", meetingID,
				"model", mc.Model)
		}

		summary = &meeting.Summary{
			MeetingID:   meetingID,
			Sections:    sections,
			RawMarkdown: cleaned,
			Structured:  structured,
			Model:       mc.Model,
			Language:    language,
			GeneratedAt: time.Now(),
		}
		if err := s.summaries.Replace(summary); err != nil {
			return fmt.Errorf("failed to persist summary: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// render 调用模型产出总结的原始 Markdown
// 本地模型且转写超过 token 阈值时走分块多级总结，否则单趟生成
func (s *SummaryService) render(ctx context.Context, mc llm.ModelConfig, language, text, customPrompt string) (string, error) {
	tokens := prompt.RoughTokenCount(text)
	if llm.IsLocalProvider(mc.Provider) && tokens >= s.cfg.TokenThreshold {
		return s.renderChunked(ctx, mc, language, text)
	}

	rp, err := s.composer.ComposeSummary(language, text, customPrompt)
	if err != nil {
		return "", err
	}
	return s.complete(ctx, mc, rp)
}

// renderChunked 多级总结：逐块生成局部总结，再合并为最终总结
func (s *SummaryService) renderChunked(ctx context.Context, mc llm.ModelConfig, language, text string) (string, error) {
	chunkSize := s.cfg.TokenThreshold - chunkReserveTokens
	if chunkSize < 2*chunkOverlapTokens {
		chunkSize = 2 * chunkOverlapTokens
	}
	chunks := prompt.ChunkText(text, chunkSize, chunkOverlapTokens)

	s.logger.Info("running multi-level summarization",
		"chunks", len(chunks),
		"chunk_size_tokens", chunkSize,
		"provider", mc.Provider)

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		rp := s.composer.ComposeChunk(language, chunk)
		partial, err := s.complete(ctx, mc, rp)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, strings.TrimSpace(partial))
	}

	rp := s.composer.ComposeCombine(language, strings.Join(partials, "\n---\n"))
	return s.complete(ctx, mc, rp)
}

// complete 执行一次补全并把调用失败收敛为 ErrModelCallFailed
// 超时保持可识别，由编排器映射为 ErrTimeout
func (s *SummaryService) complete(ctx context.Context, mc llm.ModelConfig, rp prompt.RenderedPrompt) (string, error) {
	answer, err := s.completer.Complete(ctx, mc, rp.Messages())
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", generation.ErrModelCallFailed, err)
	}
	return answer, nil
}
