// Package queue distributes crack tasks to worker daemons over redis.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// TypeCrackRun is the asynq task type for one crack attempt
const TypeCrackRun = "crack:run"

// timeoutGrace is added to a task's budget for analysis and teardown
const timeoutGrace = 10 * time.Minute

// Payload is the body of a crack:run task.
type Payload struct {
	TaskID string `json:"task_id"`
}

// Client enqueues and cancels crack tasks.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

// NewClient creates a Client for queue on the redis at redisOpt.
func NewClient(redisOpt asynq.RedisClientOpt, queue string) *Client {
	if queue == "" {
		queue = "crack"
	}
	return &Client{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		queue:     queue,
	}
}

// EnqueueCrack schedules task. The asynq task id is the crack task id, so
// a task can only be queued once and can be cancelled by its id. Attempts
// are never retried automatically.
func (c *Client) EnqueueCrack(ctx context.Context, task *models.Task) (*asynq.TaskInfo, error) {
	payload, err := json.Marshal(Payload{TaskID: task.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(TypeCrackRun, payload),
		asynq.TaskID(task.ID),
		asynq.Queue(c.queue),
		asynq.MaxRetry(0),
		asynq.Timeout(task.Budget+timeoutGrace),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task %s: %w", task.ID, err)
	}
	debug.Info("Enqueued task %s on queue %s", task.ID, c.queue)
	return info, nil
}

// Cancel removes taskID from the queue if it has not started, otherwise it
// signals the worker processing it. It reports whether the task was still
// waiting in the queue.
func (c *Client) Cancel(taskID string) (bool, error) {
	err := c.inspector.DeleteTask(c.queue, taskID)
	if err == nil {
		debug.Info("Removed queued task %s", taskID)
		return true, nil
	}
	if !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		debug.Debug("Task %s not deletable (%v), cancelling processing", taskID, err)
	}
	if err := c.inspector.CancelProcessing(taskID); err != nil {
		return false, fmt.Errorf("failed to cancel task %s: %w", taskID, err)
	}
	return false, nil
}

// Info returns the queue view of taskID
func (c *Client) Info(taskID string) (*asynq.TaskInfo, error) {
	return c.inspector.GetTaskInfo(c.queue, taskID)
}

// Close releases the redis connections.
func (c *Client) Close() error {
	if err := c.inspector.Close(); err != nil {
		debug.Warning("Failed to close inspector: %v", err)
	}
	return c.client.Close()
}
