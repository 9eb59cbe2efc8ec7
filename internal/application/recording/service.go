package recording

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/meetscribe/backend/internal/domain/events"
	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/meetscribe/backend/internal/domain/transcription"
	"github.com/meetscribe/backend/internal/infrastructure/engine"
	"github.com/meetscribe/backend/internal/infrastructure/log"
	"github.com/meetscribe/backend/internal/infrastructure/storage"
)

// session 一次录音会话
// 状态机：idle → recording → finalizing → idle；recording → aborted → idle。
// 暂停只在 recording 态合法，不重置片段顺序
type session struct {
	id        string
	meetingID string
	language  string

	mu           sync.Mutex
	state        transcription.SessionState
	chunksClosed bool
	nextChunkSeq int64
	elapsedMs    int64
	flushed      atomic.Int64

	chunks chan transcription.AudioChunk
	cancel context.CancelFunc
	// terminated 在引擎片段流耗尽后立即关闭，解除阻塞中的 PushChunk
	terminated chan struct{}
	// done 在摄取 goroutine 完全退出后关闭
	done chan struct{}
}

// Service 录音会话生命周期管理
// 每个活动会话一个摄取 goroutine：音频块到达即推入引擎，产出的片段
// 即时落盘（增量镜像），异常终止最多丢失最后一个未落盘片段
type Service struct {
	engine      *engine.Engine
	meetings    storage.MeetingRepository
	transcripts storage.TranscriptRepository
	bus         events.EventBus
	logger      *slog.Logger

	mu sync.Mutex
	// sessions 按会话 ID 索引的活动会话
	sessions map[string]*session
	// byMeeting 每个会议至多一个活动会话
	byMeeting map[string]*session
}

// NewService 创建录音服务
func NewService(
	eng *engine.Engine,
	meetings storage.MeetingRepository,
	transcripts storage.TranscriptRepository,
	bus events.EventBus,
) *Service {
	return &Service{
		engine:      eng,
		meetings:    meetings,
		transcripts: transcripts,
		bus:         bus,
		logger:      log.NewModuleLogger("recording", "service"),
		sessions:    make(map[string]*session),
		byMeeting:   make(map[string]*session),
	}
}

// Start 启动一个录音会话，返回会话 ID
// 会议不存在、引擎未就绪或该会议已有活动会话时失败
func (s *Service) Start(ctx context.Context, meetingID, language string) (string, error) {
	m, err := s.meetings.FindByID(meetingID)
	if err != nil {
		return "", fmt.Errorf("failed to load meeting: %w", err)
	}
	if m == nil {
		return "", meeting.ErrMeetingNotFound
	}

	startSeq, err := s.transcripts.NextSeq(meetingID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve fragment sequence: %w", err)
	}

	sess := &session{
		id:         uuid.New().String(),
		meetingID:  meetingID,
		language:   language,
		state:      transcription.StateRecording,
		chunks:     make(chan transcription.AudioChunk, 32),
		terminated: make(chan struct{}),
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	if _, exists := s.byMeeting[meetingID]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: meeting %s already has an active session",
			transcription.ErrSessionActive, meetingID)
	}
	s.sessions[sess.id] = sess
	s.byMeeting[meetingID] = sess
	s.mu.Unlock()

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess.cancel = cancel

	fragments, err := s.engine.TranscribeStream(streamCtx, engine.Session{
		ID:        sess.id,
		MeetingID: meetingID,
		Language:  language,
		StartSeq:  startSeq,
	}, sess.chunks)
	if err != nil {
		cancel()
		s.remove(sess)
		return "", err
	}

	go s.ingest(sess, fragments)

	s.publishState(sess)
	s.logger.Info("recording session started",
		"session_id", sess.id,
		"meeting_id", meetingID,
		"start_seq", startSeq)

	return sess.id, nil
}

// ingest 消费引擎片段流并增量落盘
func (s *Service) ingest(sess *session, fragments <-chan meeting.TranscriptFragment) {
	defer close(sess.done)

	for frag := range fragments {
		if err := s.transcripts.AppendFragment(&frag); err != nil {
			s.logger.Error("failed to flush fragment",
				"session_id", sess.id,
				"seq", frag.Seq,
				"error", err)
			continue
		}

		sess.flushed.Add(1)

		s.bus.Publish(&events.FragmentEvent{
			MeetingID: sess.meetingID,
			SessionID: sess.id,
			Fragment:  frag,
			EventTime: time.Now(),
		})
	}

	// 先解除可能阻塞在音频推送上的调用方，再做状态处理
	close(sess.terminated)

	// 片段流在非收尾状态下关闭说明引擎致命失败：中止会话，保留已落盘片段
	sess.mu.Lock()
	aborted := sess.state == transcription.StateRecording || sess.state == transcription.StatePaused
	if aborted {
		sess.state = transcription.StateAborted
	}
	sess.mu.Unlock()

	if aborted {
		s.publishState(sess)
		s.remove(sess)
		s.logger.Warn("recording session aborted by engine",
			"session_id", sess.id,
			"flushed_fragments", sess.flushed.Load())
	}
}

// PushChunk 推入一块音频
// 仅在 recording 态合法；处于 paused 时返回 ErrInvalidState
func (s *Service) PushChunk(ctx context.Context, sessionID string, pcm []int16, durMs int64) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	// 发送期间持锁：Stop/Cancel 关闭通道前必须先拿到锁，
	// 排除向已关闭通道发送的竞态
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != transcription.StateRecording {
		return fmt.Errorf("%w: cannot accept audio in state %s",
			transcription.ErrInvalidState, sess.state)
	}
	chunk := transcription.AudioChunk{
		Seq:      sess.nextChunkSeq,
		StartMs:  sess.elapsedMs,
		DurMs:    durMs,
		PCM:      pcm,
		Language: sess.language,
	}

	select {
	case sess.chunks <- chunk:
		sess.nextChunkSeq++
		sess.elapsedMs += durMs
		return nil
	case <-sess.terminated:
		return fmt.Errorf("%w: session terminated", transcription.ErrInvalidState)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause 暂停会话（仅 recording 态合法）
func (s *Service) Pause(sessionID string) error {
	return s.transition(sessionID, transcription.StateRecording, transcription.StatePaused)
}

// Resume 恢复会话（仅 paused 态合法），不重置片段顺序
func (s *Service) Resume(sessionID string) error {
	return s.transition(sessionID, transcription.StatePaused, transcription.StateRecording)
}

// transition 在校验当前状态后执行状态转换
func (s *Service) transition(sessionID string, from, to transcription.SessionState) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.state != from {
		state := sess.state
		sess.mu.Unlock()
		return fmt.Errorf("%w: expected %s, session is %s",
			transcription.ErrInvalidState, from, state)
	}
	sess.state = to
	sess.mu.Unlock()

	s.publishState(sess)
	return nil
}

// Stop 收尾会话
// 关闭音频输入、排空引擎片段流、封存转写，之后转写不可再追加
func (s *Service) Stop(ctx context.Context, sessionID string) (*meeting.Transcript, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.state != transcription.StateRecording && sess.state != transcription.StatePaused {
		state := sess.state
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot finalize from state %s",
			transcription.ErrInvalidState, state)
	}
	sess.state = transcription.StateFinalizing
	s.closeChunks(sess)
	sess.mu.Unlock()

	s.publishState(sess)

	// 等待引擎排空剩余音频
	select {
	case <-sess.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := s.transcripts.Seal(sess.meetingID); err != nil {
		return nil, fmt.Errorf("failed to seal transcript: %w", err)
	}

	transcript, err := s.transcripts.FindByMeeting(sess.meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	sess.mu.Lock()
	sess.state = transcription.StateIdle
	sess.mu.Unlock()
	s.publishState(sess)
	s.remove(sess)

	s.logger.Info("recording session finalized",
		"session_id", sess.id,
		"meeting_id", sess.meetingID,
		"fragments", len(transcript.Fragments))

	return transcript, nil
}

// Cancel 中止会话
// 已落盘片段保留，转写不封存，可由后续会话续录
func (s *Service) Cancel(sessionID string) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.state != transcription.StateRecording && sess.state != transcription.StatePaused {
		state := sess.state
		sess.mu.Unlock()
		return fmt.Errorf("%w: cannot abort from state %s",
			transcription.ErrInvalidState, state)
	}
	sess.state = transcription.StateAborted
	s.closeChunks(sess)
	sess.mu.Unlock()

	sess.cancel()
	<-sess.done

	s.publishState(sess)
	s.remove(sess)

	s.logger.Info("recording session canceled",
		"session_id", sess.id,
		"flushed_fragments", sess.flushed.Load())

	return nil
}

// SessionState 查询会话状态
func (s *Service) SessionState(sessionID string) (transcription.SessionState, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return transcription.StateIdle, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state, nil
}

// Status 全局转录状态
// 没有活动会话时为 idle；有会话时报告其中一个的状态
type Status struct {
	State       string                    `json:"state"`
	DisplayText string                    `json:"display_text"`
	SessionID   string                    `json:"session_id,omitempty"`
	MeetingID   string                    `json:"meeting_id,omitempty"`
	Engine      transcription.Diagnostics `json:"engine"`
}

// Status 返回转录子系统的当前状态
func (s *Service) Status() Status {
	status := Status{
		State:       transcription.StateIdle.String(),
		DisplayText: transcription.StateIdle.DisplayText(),
		Engine:      s.engine.Diagnostics(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.mu.Lock()
		state := sess.state
		sess.mu.Unlock()
		status.State = state.String()
		status.DisplayText = state.DisplayText()
		status.SessionID = sess.id
		status.MeetingID = sess.meetingID
		break
	}
	return status
}

// lookup 按 ID 取活动会话
func (s *Service) lookup(sessionID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, transcription.ErrSessionNotFound
	}
	return sess, nil
}

// remove 从索引中移除会话
func (s *Service) remove(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	delete(s.byMeeting, sess.meetingID)
	s.mu.Unlock()
}

// closeChunks 关闭音频输入通道（幂等，调用方持有 sess.mu）
func (s *Service) closeChunks(sess *session) {
	if !sess.chunksClosed {
		sess.chunksClosed = true
		close(sess.chunks)
	}
}

// publishState 发布会话状态变更事件
func (s *Service) publishState(sess *session) {
	sess.mu.Lock()
	state := sess.state
	sess.mu.Unlock()

	s.bus.Publish(&events.SessionStateEvent{
		MeetingID: sess.meetingID,
		SessionID: sess.id,
		State:     state.String(),
		EventTime: time.Now(),
	})
}
