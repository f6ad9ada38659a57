// Command filecrack recovers the password of one encrypted file on this
// machine.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ZerkerEOD/filecrack/internal/config"
	"github.com/ZerkerEOD/filecrack/internal/crack"
	"github.com/ZerkerEOD/filecrack/internal/engine"
	"github.com/ZerkerEOD/filecrack/internal/extract"
	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/internal/notify"
	"github.com/ZerkerEOD/filecrack/internal/plan"
	"github.com/ZerkerEOD/filecrack/internal/queue"
	"github.com/ZerkerEOD/filecrack/internal/store"
	"github.com/ZerkerEOD/filecrack/internal/verify"
	"github.com/ZerkerEOD/filecrack/pkg/console"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		console.Error("Configuration error: %v", err)
		return 1
	}

	opts, err := parseArgs(args, cfg.DeviceMode, os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			console.Error("%v", err)
		}
		return 1
	}
	if opts.Verbose {
		debug.SetEnabled(true)
		debug.SetLevel(debug.LevelDebug)
	}
	if wd, err := os.Getwd(); err == nil {
		debug.SetBasePath(wd)
	}

	extractor := extract.New(cfg)
	if opts.CheckTools {
		return checkTools(extractor)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.Cancel != "":
		return cancelTask(ctx, cfg, opts.Cancel)
	case opts.Status != "":
		return showStatus(ctx, cfg, opts.Status)
	}

	if _, err := os.Stat(opts.File); err != nil {
		console.Error("Cannot read %s: %v", opts.File, err)
		return 1
	}

	if opts.Enqueue {
		return enqueue(ctx, cfg, opts)
	}

	runner, err := newRunner(ctx, cfg, opts)
	if err != nil {
		console.Error("%v", err)
		return 1
	}

	ctrl := crack.New(cfg, crack.Deps{
		Store:     store.NewMemoryStore(),
		Extractor: extractor,
		Planner:   plan.New(cfg),
		Runner:    runner,
		Verifier:  verify.Archive{},
		Notifier:  notify.LogNotifier{},
	})
	progress := newProgressView(opts.Verbose)
	ctrl.SetObserver(progress.update)

	task, err := ctrl.Submit(ctx, opts.File, opts.Profile, opts.Mask, opts.Budget)
	if err != nil {
		console.Error("%v", err)
		return 1
	}
	console.Status("Cracking %s (profile %s, budget %v, %s)", filepath.Base(opts.File), task.Profile, task.Budget, opts.Mode)

	task, err = ctrl.Run(ctx, task.ID)
	progress.finish()
	if err != nil {
		console.Error("%v", err)
		return 1
	}
	return report(task)
}

// newRunner wraps engine.NewRunner with the console messages for test mode
// and the gpu fallback.
func newRunner(ctx context.Context, cfg *config.Config, opts *options) (engine.Runner, error) {
	if cfg.TestMode {
		console.Warning("TEST_MODE enabled: using simulated engine")
	}
	runner, mode, err := engine.NewRunner(ctx, cfg, opts.Mode)
	if err != nil {
		return nil, err
	}
	if mode != opts.Mode {
		console.Warning("No GPU found, falling back to %s", mode)
		opts.Mode = mode
	}
	return runner, nil
}

func enqueue(ctx context.Context, cfg *config.Config, opts *options) int {
	if cfg.RedisAddr == "" {
		console.Error("--enqueue needs REDIS_ADDR")
		return 1
	}
	st, err := store.OpenSQL(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		console.Error("%v", err)
		return 1
	}
	defer st.DB().Close()

	abs, err := filepath.Abs(opts.File)
	if err != nil {
		console.Error("%v", err)
		return 1
	}
	ctrl := crack.New(cfg, crack.Deps{Store: st})
	task, err := ctrl.Submit(ctx, abs, opts.Profile, opts.Mask, opts.Budget)
	if err != nil {
		console.Error("%v", err)
		return 1
	}

	client := newQueueClient(cfg)
	defer client.Close()
	if _, err := client.EnqueueCrack(ctx, task); err != nil {
		console.Error("%v", err)
		return 1
	}
	console.Success("Queued task %s", task.ID)
	return 0
}

func newQueueClient(cfg *config.Config) *queue.Client {
	return queue.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, cfg.QueueName)
}

// cancelTask stops a task handed to filecrackd. The queue entry is removed
// first so no worker picks the task up after the store row changes.
func cancelTask(ctx context.Context, cfg *config.Config, taskID string) int {
	st, err := store.OpenSQL(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		console.Error("%v", err)
		return 1
	}
	defer st.DB().Close()

	if cfg.RedisAddr != "" {
		client := newQueueClient(cfg)
		defer client.Close()
		queued, err := client.Cancel(taskID)
		switch {
		case err != nil:
			debug.Warning("Queue cancellation of task %s failed: %v", taskID, err)
		case queued:
			console.Info("Removed task %s from queue %s", taskID, cfg.QueueName)
		}
	}

	ctrl := crack.New(cfg, crack.Deps{Store: st})
	state, err := ctrl.RequestCancel(ctx, taskID)
	if err != nil {
		console.Error("%v", err)
		return 1
	}
	switch {
	case state == models.StateCancelled:
		console.Success("Task %s cancelled", taskID)
	case state.IsTerminal():
		console.Warning("Task %s already finished: %s", taskID, state)
		return 1
	default:
		console.Success("Cancellation requested for task %s (%s)", taskID, state)
	}
	return 0
}

func showStatus(ctx context.Context, cfg *config.Config, taskID string) int {
	st, err := store.OpenSQL(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		console.Error("%v", err)
		return 1
	}
	defer st.DB().Close()

	status, err := crack.New(cfg, crack.Deps{Store: st}).Status(ctx, taskID)
	if err != nil {
		console.Error("%v", err)
		return 1
	}
	console.Info("Task %s: %s, stage %d/%d at %.1f%%, %v of %v",
		status.TaskID, status.State, status.StageIndex+1, status.StageCount, status.Progress,
		status.Elapsed.Round(time.Second), status.Budget)
	switch {
	case status.Password != "":
		console.Success("Password found: %s", status.Password)
	case status.FailureReason != "":
		console.Warning("%s %s", status.ErrorKind, status.FailureReason)
	}

	if cfg.RedisAddr != "" {
		client := newQueueClient(cfg)
		defer client.Close()
		if info, err := client.Info(taskID); err == nil {
			console.Info("Queue %s: %s", info.Queue, info.State)
		} else {
			debug.Debug("No queue entry for task %s: %v", taskID, err)
		}
	}
	return 0
}

func checkTools(extractor *extract.Extractor) int {
	missing := 0
	for _, st := range extractor.Locator().Check() {
		if st.Found {
			console.Success("%-16s %s", st.Tool, st.Path)
			continue
		}
		console.Warning("%-16s not found", st.Tool)
		missing++
	}
	if missing > 0 {
		console.Info("%d extraction tools missing; place them in TOOLS_DIR or on PATH", missing)
	}
	return 0
}

func report(task *models.Task) int {
	elapsed := task.Elapsed(task.UpdatedAt)
	switch task.State {
	case models.StateSuccess:
		console.Success("Password found: %s", task.Result.Password)
		console.Info("Stage %d (%s), mode %s, %v", task.Result.StageIndex+1, task.Result.StageName, task.Result.Algorithm, task.Result.Elapsed.Round(time.Second))
		if task.Result.Verified != nil && !*task.Result.Verified {
			console.Warning("The password did not open the file when checked locally")
		}
		return 0
	case models.StateCancelled:
		console.Warning("Interrupted after %v", elapsed.Round(time.Second))
	case models.StateFailed:
		console.Error("Password not found: %s", task.ErrorMessage)
	default:
		console.Error("%s: %s", task.ErrorKind, task.ErrorMessage)
	}
	return 1
}
