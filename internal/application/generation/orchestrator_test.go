package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/domain/generation"
	"github.com/meetscribe/backend/internal/infrastructure/watcher"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	bus := watcher.NewEventBus()
	t.Cleanup(bus.Close)
	return NewOrchestrator(bus)
}

func TestOrchestrator_SingleFlightPerMeetingAndKind(t *testing.T) {
	orch := newTestOrchestrator(t)

	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := orch.Run(context.Background(), "m1", generation.KindSummary, "pt-BR", "llama3.1",
			func(ctx context.Context) error {
				close(started)
				<-release
				return nil
			})
		assert.NoError(t, err)
	}()
	<-started

	// 同键并发请求立即拒绝，不排队
	err := orch.Run(context.Background(), "m1", generation.KindSummary, "pt-BR", "llama3.1",
		func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, generation.ErrAlreadyInProgress)

	// 不同 kind 与不同会议互不影响
	err = orch.Run(context.Background(), "m1", generation.KindChatTurn, "pt-BR", "llama3.1",
		func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	err = orch.Run(context.Background(), "m2", generation.KindSummary, "pt-BR", "llama3.1",
		func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	close(release)
	wg.Wait()

	// 执行完毕后同键可以再次运行
	err = orch.Run(context.Background(), "m1", generation.KindSummary, "pt-BR", "llama3.1",
		func(ctx context.Context) error { return nil })
	require.NoError(t, err)
}

func TestOrchestrator_StatusRegistry(t *testing.T) {
	orch := newTestOrchestrator(t)

	_, ok := orch.Status("m1", generation.KindSummary)
	assert.False(t, ok)

	err := orch.Run(context.Background(), "m1", generation.KindSummary, "en-US", "gpt-4o",
		func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	job, ok := orch.Status("m1", generation.KindSummary)
	require.True(t, ok)
	assert.Equal(t, generation.StatusCompleted, job.Status)
	assert.Equal(t, "gpt-4o", job.Model)
	assert.False(t, job.FinishedAt.IsZero())

	boom := errors.New("boom")
	err = orch.Run(context.Background(), "m1", generation.KindChatTurn, "en-US", "gpt-4o",
		func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	job, ok = orch.Status("m1", generation.KindChatTurn)
	require.True(t, ok)
	assert.Equal(t, generation.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "boom")

	jobs := orch.MeetingStatus("m1")
	assert.Len(t, jobs, 2)
}

func TestOrchestrator_DeadlineMapsToTimeout(t *testing.T) {
	orch := newTestOrchestrator(t)

	err := orch.Run(context.Background(), "m1", generation.KindSummary, "en-US", "gpt-4o",
		func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, time.Millisecond)
			defer cancel()
			<-ctx.Done()
			return ctx.Err()
		})
	assert.ErrorIs(t, err, generation.ErrTimeout)

	job, ok := orch.Status("m1", generation.KindSummary)
	require.True(t, ok)
	assert.Equal(t, generation.StatusFailed, job.Status)
}

func TestOrchestrator_RejectsInvalidKind(t *testing.T) {
	orch := newTestOrchestrator(t)

	err := orch.Run(context.Background(), "m1", generation.Kind("weekly-digest"), "en-US", "gpt-4o",
		func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, generation.ErrInvalidKind)
}
