package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"log/slog"

	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/meetscribe/backend/internal/domain/transcription"
	"github.com/meetscribe/backend/internal/infrastructure/config"
	"github.com/meetscribe/backend/internal/infrastructure/log"
	"github.com/meetscribe/backend/internal/infrastructure/modelstore"
)

// Session 一次转录会话的标识信息
type Session struct {
	ID        string
	MeetingID string
	Language  string
	// StartSeq 本会话产出片段的起始序号（断点续录时大于零）
	StartSeq int64
}

// Engine 共享转录引擎
// 初始化后模型与后端在并发会话间只读共享；重配置要求所有旧配置的
// 会话已完全排空，以纪元计数标记配置代际
type Engine struct {
	store    *modelstore.Store
	provider Provider
	logger   *slog.Logger

	mu             sync.Mutex
	ready          bool
	model          string
	backend        transcription.Backend
	epoch          uint64
	activeSessions int
}

// NewEngine 创建转录引擎（未初始化，模型就绪前拒绝转录）
func NewEngine(cfg *config.EngineConfig, store *modelstore.Store, provider Provider) *Engine {
	return &Engine{
		store:    store,
		provider: provider,
		model:    cfg.Model,
		logger:   log.NewModuleLogger("engine", "engine"),
	}
}

// Initialize 初始化引擎：确保模型就绪、探测硬件后端、加载模型
// 重复调用是幂等的
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.ready {
		e.mu.Unlock()
		return nil
	}
	model := e.model
	e.mu.Unlock()

	desc, err := LookupModel(model)
	if err != nil {
		return err
	}

	modelPath, err := e.store.EnsureAvailable(ctx, desc)
	if err != nil {
		return fmt.Errorf("%w: %v", transcription.ErrModelNotReady, err)
	}

	backend := ProbeBackend()
	if err := e.provider.Load(ctx, modelPath, backend); err != nil {
		return err
	}

	e.mu.Lock()
	e.ready = true
	e.backend = backend
	e.epoch++
	epoch := e.epoch
	e.mu.Unlock()

	e.logger.Info("engine initialized",
		"provider", e.provider.Name(),
		"model", model,
		"backend", backend,
		"epoch", epoch)

	return nil
}

// Ready 引擎是否可接受转录
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// Diagnostics 返回当前诊断信息
func (e *Engine) Diagnostics() transcription.Diagnostics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return transcription.Diagnostics{
		Provider: e.provider.Name(),
		Model:    e.model,
		Backend:  e.backend,
		Epoch:    e.epoch,
	}
}

// TranscribeStream 消费音频块并产出有序片段流
// 输入通道关闭后输出流随之关闭（有限）；录音进行中输入保持打开（开放）。
// 畸形音频块被丢弃且流继续；致命错误中止会话，已发出的片段保留
func (e *Engine) TranscribeStream(ctx context.Context, session Session, chunks <-chan transcription.AudioChunk) (<-chan meeting.TranscriptFragment, error) {
	e.mu.Lock()
	if !e.ready {
		e.mu.Unlock()
		return nil, transcription.ErrModelNotReady
	}
	e.activeSessions++
	epoch := e.epoch
	e.mu.Unlock()

	out := make(chan meeting.TranscriptFragment, 16)

	go func() {
		defer close(out)
		defer func() {
			e.mu.Lock()
			e.activeSessions--
			e.mu.Unlock()
		}()

		seq := session.StartSeq
		for {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-chunks:
				if !ok {
					return
				}

				segments, err := e.provider.Transcribe(ctx, chunk)
				if err != nil {
					if errors.Is(err, transcription.ErrDecode) {
						// 丢弃该块，流继续
						e.logger.Warn("dropping malformed audio chunk",
							"session_id", session.ID,
							"chunk_seq", chunk.Seq,
							"error", err)
						continue
					}
					e.logger.Error("transcription session aborted",
						"session_id", session.ID,
						"epoch", epoch,
						"error", err)
					return
				}

				for _, seg := range segments {
					if seg.Text == "" {
						continue
					}
					frag := meeting.TranscriptFragment{
						MeetingID:  session.MeetingID,
						Seq:        seq,
						StartMs:    chunk.StartMs,
						EndMs:      chunk.StartMs + chunk.DurMs,
						Text:       seg.Text,
						Confidence: seg.Confidence,
						Language:   segmentLanguage(seg, session),
					}
					seq++

					select {
					case out <- frag:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}

// Reconfigure 切换模型
// 仍有会话在旧配置上运行时立即失败，调用方待排空后重试
func (e *Engine) Reconfigure(ctx context.Context, model string) error {
	desc, err := LookupModel(model)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.activeSessions > 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d sessions still draining",
			transcription.ErrSessionActive, e.activeSessions)
	}
	e.ready = false
	e.model = model
	e.mu.Unlock()

	modelPath, err := e.store.EnsureAvailable(ctx, desc)
	if err != nil {
		return fmt.Errorf("%w: %v", transcription.ErrModelNotReady, err)
	}

	backend := ProbeBackend()
	if err := e.provider.Load(ctx, modelPath, backend); err != nil {
		return err
	}

	e.mu.Lock()
	e.ready = true
	e.backend = backend
	e.epoch++
	epoch := e.epoch
	e.mu.Unlock()

	e.logger.Info("engine reconfigured",
		"model", model,
		"epoch", epoch)

	return nil
}

// segmentLanguage 片段语言：识别结果优先，缺省回退会话语言
func segmentLanguage(seg Segment, session Session) string {
	if seg.Language != "" {
		return seg.Language
	}
	return session.Language
}
