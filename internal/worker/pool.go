// Package worker runs crack tasks on a bounded number of worker units.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	logger "github.com/ZerkerEOD/filecrack/pkg/debug"
)

// Pool bounds how many jobs run at once. Each job holds one slot from start
// to finish.
type Pool struct {
	size int64
	sem  *semaphore.Weighted
	wg   sync.WaitGroup
}

// NewPool creates a Pool with size slots (at least one).
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{size: int64(size), sem: semaphore.NewWeighted(int64(size))}
}

// Size is the slot count
func (p *Pool) Size() int {
	return int(p.size)
}

// Submit blocks until a slot is free or ctx is done, then runs fn on its
// own goroutine.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context)) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("no worker slot: %w", err)
	}
	p.Go(ctx, fn)
	return nil
}

// TryAcquire takes a slot without blocking. The caller must hand the slot
// to Go or give it back with Release.
func (p *Pool) TryAcquire() bool {
	return p.sem.TryAcquire(1)
}

// Release returns a slot taken with TryAcquire that was not used
func (p *Pool) Release() {
	p.sem.Release(1)
}

// Go runs fn on a slot the caller already holds and frees it afterwards.
// A panicking job is logged and does not take the process down.
func (p *Pool) Go(ctx context.Context, fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Worker job panicked: %v\n%s", r, debug.Stack())
			}
		}()
		fn(ctx)
	}()
}

// Wait blocks until every started job has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
