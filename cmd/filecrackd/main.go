// Command filecrackd is the worker daemon. It runs queued crack tasks from
// redis, or from the task store when no redis is configured.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ZerkerEOD/filecrack/internal/config"
	"github.com/ZerkerEOD/filecrack/internal/crack"
	"github.com/ZerkerEOD/filecrack/internal/engine"
	"github.com/ZerkerEOD/filecrack/internal/extract"
	"github.com/ZerkerEOD/filecrack/internal/janitor"
	"github.com/ZerkerEOD/filecrack/internal/notify"
	"github.com/ZerkerEOD/filecrack/internal/plan"
	"github.com/ZerkerEOD/filecrack/internal/queue"
	"github.com/ZerkerEOD/filecrack/internal/store"
	"github.com/ZerkerEOD/filecrack/internal/verify"
	"github.com/ZerkerEOD/filecrack/internal/worker"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

func main() {
	if err := run(); err != nil {
		debug.Error("filecrackd: %v", err)
		fmt.Fprintf(os.Stderr, "filecrackd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DataDir != "" {
		debug.SetBasePath(cfg.DataDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.OpenSQL(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.DB().Close()

	runner, mode, err := engine.NewRunner(ctx, cfg, cfg.DeviceMode)
	if err != nil {
		return err
	}

	extractor := extract.New(cfg)
	for _, ts := range extractor.Locator().Check() {
		if !ts.Found {
			debug.Warning("Extraction tool %s not found", ts.Tool)
		}
	}

	var notifier crack.Notifier = notify.LogNotifier{}
	if cfg.NotifyURL != "" {
		ws := notify.NewWebSocketNotifier(cfg.NotifyURL)
		defer ws.Close()
		notifier = notify.Multi{notify.LogNotifier{}, ws}
	}

	ctrl := crack.New(cfg, crack.Deps{
		Store:     st,
		Extractor: extractor,
		Planner:   plan.New(cfg),
		Runner:    runner,
		Verifier:  verify.Archive{},
		Notifier:  notifier,
	})

	jan := janitor.New(st, ctrl, ctrl.WorkDir(), cfg.JanitorSchedule, cfg.StaleTaskAfter)
	if err := jan.Start(ctx); err != nil {
		return err
	}

	workerID := uuid.New().String()
	debug.Info("Worker %s starting: %d slots, device %s, database %s", workerID, cfg.Concurrency, mode, cfg.DatabaseDriver)

	if cfg.RedisAddr != "" {
		srv := queue.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
			cfg.QueueName, cfg.Concurrency, ctrl)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start queue server: %w", err)
		}
		<-ctx.Done()
		debug.Info("Shutting down queue server")
		srv.Shutdown()
		return nil
	}

	pool := worker.NewPool(cfg.Concurrency)
	worker.NewPoller(workerID, st, ctrl, pool, cfg.PollInterval).Start(ctx)
	debug.Info("Worker %s stopped", workerID)
	return nil
}
