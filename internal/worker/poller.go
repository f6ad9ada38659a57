package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/internal/store"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// TaskRunner runs one claimed task to completion.
type TaskRunner interface {
	Run(ctx context.Context, taskID string) (*models.Task, error)
}

// Claimer hands out pending tasks.
type Claimer interface {
	ClaimPending(ctx context.Context, workerID string) (*models.Task, error)
}

// Poller claims pending tasks from the store and runs them on a Pool. It is
// used when no redis queue is configured.
type Poller struct {
	workerID string
	claimer  Claimer
	runner   TaskRunner
	pool     *Pool
	interval time.Duration
}

// NewPoller creates a Poller that checks for work every interval.
func NewPoller(workerID string, claimer Claimer, runner TaskRunner, pool *Pool, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{workerID: workerID, claimer: claimer, runner: runner, pool: pool, interval: interval}
}

// Start polls until ctx is done, then waits for running tasks. Running tasks
// see ctx cancellation and stop their engines.
func (p *Poller) Start(ctx context.Context) {
	debug.Info("Worker %s polling for tasks every %v with %d slots", p.workerID, p.interval, p.pool.Size())
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.fill(ctx)
		select {
		case <-ctx.Done():
			debug.Info("Worker %s stopping, waiting for running tasks", p.workerID)
			p.pool.Wait()
			return
		case <-ticker.C:
		}
	}
}

// fill claims tasks while free slots remain and returns how many started.
func (p *Poller) fill(ctx context.Context) int {
	started := 0
	for ctx.Err() == nil && p.pool.TryAcquire() {
		task, err := p.claimer.ClaimPending(ctx, p.workerID)
		if err != nil {
			p.pool.Release()
			if !errors.Is(err, store.ErrNoPending) {
				debug.Error("Worker %s failed to claim task: %v", p.workerID, err)
			}
			return started
		}

		taskID := task.ID
		debug.Info("Worker %s claimed task %s", p.workerID, taskID)
		p.pool.Go(ctx, func(ctx context.Context) {
			if _, err := p.runner.Run(ctx, taskID); err != nil {
				debug.Error("Task %s could not run: %v", taskID, err)
			}
		})
		started++
	}
	return started
}
