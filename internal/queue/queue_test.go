package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

func startMiniRedis(t *testing.T) asynq.RedisClientOpt {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return asynq.RedisClientOpt{Addr: s.Addr()}
}

type recordingRunner struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (r *recordingRunner) Run(ctx context.Context, taskID string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, taskID)
	if r.err != nil {
		return nil, r.err
	}
	return &models.Task{ID: taskID, State: models.StateSuccess}, nil
}

func (r *recordingRunner) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestEnqueueCrack(t *testing.T) {
	redis := startMiniRedis(t)
	client := NewClient(redis, "crack")
	defer client.Close()

	task := &models.Task{ID: "task-1", Budget: time.Hour}
	info, err := client.EnqueueCrack(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "task-1", info.ID)
	assert.Equal(t, TypeCrackRun, info.Type)
	assert.Equal(t, "crack", info.Queue)
	assert.Equal(t, 0, info.MaxRetry)
	assert.Equal(t, time.Hour+timeoutGrace, info.Timeout)

	_, err = client.EnqueueCrack(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.ErrTaskIDConflict))
}

func TestCancelRemovesQueuedTask(t *testing.T) {
	redis := startMiniRedis(t)
	client := NewClient(redis, "crack")
	defer client.Close()

	_, err := client.EnqueueCrack(context.Background(), &models.Task{ID: "task-2", Budget: time.Hour})
	require.NoError(t, err)

	removed, err := client.Cancel("task-2")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = client.Info("task-2")
	assert.Error(t, err)
}

func TestServerRunsEnqueuedTasks(t *testing.T) {
	redis := startMiniRedis(t)
	runner := &recordingRunner{}
	server := NewServer(redis, "crack", 2, runner)
	require.NoError(t, server.Start())
	defer server.Shutdown()

	client := NewClient(redis, "crack")
	defer client.Close()
	for _, id := range []string{"a", "b"} {
		_, err := client.EnqueueCrack(context.Background(), &models.Task{ID: id, Budget: time.Minute})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return len(runner.seen()) == 2
	}, 10*time.Second, 50*time.Millisecond)
	assert.ElementsMatch(t, []string{"a", "b"}, runner.seen())
}

func TestHandleCrackRejectsBadPayload(t *testing.T) {
	s := &Server{runner: &recordingRunner{}}
	err := s.handleCrack(context.Background(), asynq.NewTask(TypeCrackRun, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleCrackSkipsRetryOnRunError(t *testing.T) {
	runner := &recordingRunner{err: errors.New("task x is success, not pending")}
	s := &Server{runner: runner}
	err := s.handleCrack(context.Background(), asynq.NewTask(TypeCrackRun, []byte(`{"task_id":"x"}`)))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, []string{"x"}, runner.seen())
}
