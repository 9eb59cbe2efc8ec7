package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/meetscribe/backend/internal/domain/events"
	"github.com/meetscribe/backend/internal/domain/generation"
	"github.com/meetscribe/backend/internal/infrastructure/log"
)

// Orchestrator 生成任务编排器
// 同一 (meeting, kind) 任意时刻最多一个执行中任务：检查与登记在同一个
// 临界区内完成，并发的第二个请求立即收到 ErrAlreadyInProgress 而不是排队。
// 终态任务保留在内存登记表中供状态查询，进程重启后清空
type Orchestrator struct {
	bus    events.EventBus
	logger *slog.Logger

	mu sync.Mutex
	// running 执行中任务，按单飞键索引
	running map[string]*generation.Job
	// jobs 每个键最近一次任务（含终态），状态查询用
	jobs map[string]*generation.Job
}

// NewOrchestrator 创建编排器
func NewOrchestrator(bus events.EventBus) *Orchestrator {
	return &Orchestrator{
		bus:     bus,
		logger:  log.NewModuleLogger("generation", "orchestrator"),
		running: make(map[string]*generation.Job),
		jobs:    make(map[string]*generation.Job),
	}
}

// Run 在单飞保护下同步执行一个生成任务
// fn 返回后任务进入终态；上下文超时映射为 ErrTimeout
func (o *Orchestrator) Run(ctx context.Context, meetingID string, kind generation.Kind, language, model string, fn func(context.Context) error) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", generation.ErrInvalidKind, kind)
	}

	key := generation.JobKey(meetingID, kind)

	o.mu.Lock()
	if _, exists := o.running[key]; exists {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", generation.ErrAlreadyInProgress, key)
	}
	job := &generation.Job{
		MeetingID: meetingID,
		Kind:      kind,
		Status:    generation.StatusQueued,
		Language:  language,
		Model:     model,
	}
	o.running[key] = job
	o.jobs[key] = job
	o.mu.Unlock()

	o.publish(job)
	o.transition(job, generation.StatusRunning)

	err := fn(ctx)

	o.mu.Lock()
	delete(o.running, key)
	o.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", generation.ErrTimeout, err)
		}
		o.mu.Lock()
		job.Error = err.Error()
		o.mu.Unlock()
		o.transition(job, generation.StatusFailed)

		o.logger.Warn("generation job failed",
			"meeting_id", meetingID,
			"kind", kind,
			"error", err)
		return err
	}

	o.transition(job, generation.StatusCompleted)
	o.logger.Info("generation job completed",
		"meeting_id", meetingID,
		"kind", kind,
		"model", model)
	return nil
}

// Status 查询某个 (meeting, kind) 最近一次任务的快照
func (o *Orchestrator) Status(meetingID string, kind generation.Kind) (generation.Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[generation.JobKey(meetingID, kind)]
	if !ok {
		return generation.Job{}, false
	}
	return *job, true
}

// MeetingStatus 查询会议名下所有已知任务的快照
func (o *Orchestrator) MeetingStatus(meetingID string) []generation.Job {
	o.mu.Lock()
	defer o.mu.Unlock()

	var jobs []generation.Job
	for _, job := range o.jobs {
		if job.MeetingID == meetingID {
			jobs = append(jobs, *job)
		}
	}
	return jobs
}

// transition 在临界区内迁移任务状态并发布事件
func (o *Orchestrator) transition(job *generation.Job, to generation.Status) {
	o.mu.Lock()
	job.Transition(to)
	o.mu.Unlock()
	o.publish(job)
}

// publish 发布任务状态变更事件
func (o *Orchestrator) publish(job *generation.Job) {
	o.mu.Lock()
	snapshot := *job
	o.mu.Unlock()

	o.bus.Publish(&events.JobEvent{
		MeetingID: snapshot.MeetingID,
		Kind:      string(snapshot.Kind),
		Status:    string(snapshot.Status),
		Error:     snapshot.Error,
		EventTime: time.Now(),
	})
}
