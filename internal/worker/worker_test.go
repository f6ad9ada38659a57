package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/internal/store"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	var running, peak int32

	for i := 0; i < 6; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		}))
	}
	pool.Wait()
	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	pool := NewPool(1)
	release := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, pool.Submit(ctx, func(ctx context.Context) {}))

	close(release)
	pool.Wait()
}

func TestPool_RecoversPanics(t *testing.T) {
	pool := NewPool(1)
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) { panic("boom") }))
	pool.Wait()

	ran := false
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) { ran = true }))
	pool.Wait()
	assert.True(t, ran)
}

type recordingRunner struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingRunner) Run(ctx context.Context, taskID string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, taskID)
	return &models.Task{ID: taskID}, nil
}

func TestPoller_ClaimsAllPendingTasks(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		created := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, st.Create(ctx, &models.Task{ID: id, State: models.StatePending, CreatedAt: created, UpdatedAt: created}))
	}

	runner := &recordingRunner{}
	pool := NewPool(4)
	p := NewPoller("w1", st, runner, pool, time.Hour)

	assert.Equal(t, 3, p.fill(ctx))
	pool.Wait()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, runner.ids)

	assert.Equal(t, 0, p.fill(ctx))
}

func TestPoller_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller("w1", store.NewMemoryStore(), &recordingRunner{}, NewPool(1), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}
