// Package janitor cleans up after attempts that died without finishing:
// scratch directories nobody owns and tasks nobody is running.
package janitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ZerkerEOD/filecrack/internal/crack"
	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/internal/store"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// DefaultSchedule runs both sweeps every five minutes
const DefaultSchedule = "@every 5m"

// orphanMinAge keeps a sweep from racing an attempt that is still creating
// its scratch directory in another process.
const orphanMinAge = 10 * time.Minute

// Tracker reports what this process is currently running.
type Tracker interface {
	Running() []string
	ActiveScratch() map[string]bool
}

// Janitor runs the scratch and stale-task sweeps on a cron schedule.
type Janitor struct {
	store      store.Store
	tracker    Tracker
	workDir    string
	staleAfter time.Duration
	schedule   string
	now        func() time.Time

	cron *cron.Cron
}

// New creates a Janitor. staleAfter <= 0 disables the stale-task sweep.
func New(st store.Store, tracker Tracker, workDir, schedule string, staleAfter time.Duration) *Janitor {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Janitor{
		store:      st,
		tracker:    tracker,
		workDir:    workDir,
		staleAfter: staleAfter,
		schedule:   schedule,
		now:        time.Now,
	}
}

// Start runs both sweeps once, then on the schedule until ctx is done.
func (j *Janitor) Start(ctx context.Context) error {
	j.cron = cron.New()
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.SweepScratch()
		j.SweepStale(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}

	debug.Info("Starting janitor with schedule %s", j.schedule)
	j.SweepScratch()
	j.SweepStale(ctx)
	j.cron.Start()

	go func() {
		<-ctx.Done()
		<-j.cron.Stop().Done()
		debug.Info("Janitor stopped")
	}()
	return nil
}

// SweepScratch removes attempt scratch directories that no running attempt
// owns. It returns how many were removed.
func (j *Janitor) SweepScratch() int {
	entries, err := os.ReadDir(j.workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			debug.Error("Failed to read work directory %s: %v", j.workDir, err)
		}
		return 0
	}

	active := j.tracker.ActiveScratch()
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), crack.ScratchPrefix) {
			continue
		}
		path := filepath.Join(j.workDir, e.Name())
		if active[path] {
			continue
		}
		info, err := e.Info()
		if err != nil || j.now().Sub(info.ModTime()) < orphanMinAge {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			debug.Error("Failed to remove orphaned scratch directory %s: %v", path, err)
			continue
		}
		debug.Info("Removed orphaned scratch directory %s", e.Name())
		removed++
	}
	return removed
}

// SweepStale closes non-terminal tasks that have not been updated within
// staleAfter and are not running here. Tasks flagged for cancellation end
// Cancelled; the rest end in Error with kind Abandoned. It returns how many
// were closed.
func (j *Janitor) SweepStale(ctx context.Context) int {
	if j.staleAfter <= 0 {
		return 0
	}
	tasks, err := j.store.ListByState(ctx, models.StatePending, models.StateAnalyzing, models.StateCracking)
	if err != nil {
		debug.Error("Failed to list tasks for stale check: %v", err)
		return 0
	}

	running := make(map[string]bool)
	for _, id := range j.tracker.Running() {
		running[id] = true
	}

	now := j.now()
	marked := 0
	for _, task := range tasks {
		if running[task.ID] || now.Sub(task.UpdatedAt) < j.staleAfter {
			continue
		}
		if err := j.markStale(ctx, task, now); err != nil {
			debug.Error("Failed to mark stale task %s: %v", task.ID, err)
			continue
		}
		debug.Warning("Marked stale task %s as %s (last update %v)", task.ID, task.State, task.UpdatedAt)
		marked++
	}
	if marked > 0 {
		debug.Info("Found %d stale tasks (not updated in %v)", marked, j.staleAfter)
	}
	return marked
}

func (j *Janitor) markStale(ctx context.Context, task *models.Task, now time.Time) error {
	state, kind, level, event := models.StateError, models.KindAbandoned, "ERROR", models.EventError
	msg := fmt.Sprintf("abandoned in state %s: no update since %s", task.State, task.UpdatedAt.Format(time.RFC3339))
	if task.CancelRequested {
		state, kind, level, event = models.StateCancelled, models.KindCancelled, "WARNING", models.EventState
		msg = fmt.Sprintf("cancelled in state %s: no worker acted on the request", task.State)
	}
	entry := &models.LogEntry{
		TaskID:     task.ID,
		Time:       now,
		Level:      level,
		Event:      event,
		Message:    msg,
		StageIndex: task.StageIndex,
	}
	if err := j.store.AppendLog(ctx, entry); err != nil {
		return err
	}
	task.State = state
	task.ErrorKind = kind
	task.ErrorMessage = msg
	task.CompletedAt = &now
	task.UpdatedAt = now
	return j.store.Update(ctx, task)
}
