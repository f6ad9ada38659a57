package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// TaskRunner runs one crack task to a terminal state.
type TaskRunner interface {
	Run(ctx context.Context, taskID string) (*models.Task, error)
}

// Server consumes crack:run tasks with a fixed number of worker units.
type Server struct {
	srv    *asynq.Server
	runner TaskRunner
}

// NewServer creates a Server processing queue with concurrency workers.
func NewServer(redisOpt asynq.RedisClientOpt, queue string, concurrency int, runner TaskRunner) *Server {
	if queue == "" {
		queue = "crack"
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      debugLogger{},
	})
	return &Server{srv: srv, runner: runner}
}

// Handler returns the mux serving crack:run
func (s *Server) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCrackRun, s.handleCrack)
	return mux
}

func (s *Server) handleCrack(ctx context.Context, t *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	task, err := s.runner.Run(ctx, p.TaskID)
	if err != nil {
		return fmt.Errorf("task %s: %v: %w", p.TaskID, err, asynq.SkipRetry)
	}
	debug.Info("Queue worker finished task %s: %s", task.ID, task.State)
	return nil
}

// Start begins processing in the background.
func (s *Server) Start() error {
	return s.srv.Start(s.Handler())
}

// Shutdown stops fetching, cancels running handlers after the shutdown
// timeout, and waits for them.
func (s *Server) Shutdown() {
	s.srv.Shutdown()
}

// debugLogger routes asynq's logging through pkg/debug
type debugLogger struct{}

func (debugLogger) Debug(args ...interface{}) { debug.Debug("%s", fmt.Sprint(args...)) }
func (debugLogger) Info(args ...interface{})  { debug.Info("%s", fmt.Sprint(args...)) }
func (debugLogger) Warn(args ...interface{})  { debug.Warning("%s", fmt.Sprint(args...)) }
func (debugLogger) Error(args ...interface{}) { debug.Error("%s", fmt.Sprint(args...)) }
func (debugLogger) Fatal(args ...interface{}) {
	debug.Error("%s", fmt.Sprint(args...))
	os.Exit(1)
}
