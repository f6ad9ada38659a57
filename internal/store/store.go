// Package store persists crack tasks and their append-only logs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

var (
	// ErrNotFound is returned when no task has the requested id
	ErrNotFound = errors.New("task not found")
	// ErrNoPending is returned by ClaimPending when the queue is empty
	ErrNoPending = errors.New("no pending tasks")
)

// Store is the persistence boundary for the task lifecycle.
// Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	AppendLog(ctx context.Context, entry *models.LogEntry) error
	Logs(ctx context.Context, taskID string) ([]models.LogEntry, error)
	// ClaimPending assigns the oldest unclaimed pending task to workerID
	ClaimPending(ctx context.Context, workerID string) (*models.Task, error)
	ListByState(ctx context.Context, states ...models.State) ([]*models.Task, error)
	// RequestCancel flags a task for the worker that owns it. Update never
	// clears the flag.
	RequestCancel(ctx context.Context, id string) error
	// CancelPending moves a task that is pending and unclaimed straight to
	// Cancelled. It reports false when the task was already claimed or past
	// pending.
	CancelPending(ctx context.Context, id, reason string, at time.Time) (bool, error)
}
