// Package crack drives one task from pending to a terminal state: detect,
// extract, classify, plan and then run the attack stages in order.
package crack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZerkerEOD/filecrack/internal/classify"
	"github.com/ZerkerEOD/filecrack/internal/config"
	"github.com/ZerkerEOD/filecrack/internal/engine"
	"github.com/ZerkerEOD/filecrack/internal/format"
	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/internal/plan"
	"github.com/ZerkerEOD/filecrack/internal/store"
	"github.com/ZerkerEOD/filecrack/internal/verify"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// FailedMessage is the only reason reported when every stage ran dry
const FailedMessage = "password not found within configured strategies"

// ScratchPrefix starts the name of every per-attempt scratch directory
const ScratchPrefix = "attempt-"

const (
	defaultProgressInterval = time.Second
	defaultCancelPoll       = 2 * time.Second
	notifyTimeout           = 10 * time.Second
	storeTimeout            = 5 * time.Second
	hashFileName            = "hash.txt"
)

// Extractor turns a container file into its canonical hash.
type Extractor interface {
	Extract(ctx context.Context, filePath string, container models.ContainerType, scratchDir string) (models.CanonicalHash, error)
}

// Planner produces the attack stages for a task.
type Planner interface {
	Plan(container models.ContainerType, profile models.Profile, total time.Duration, customMask string) ([]models.AttackStage, []models.AttackStage, error)
}

// Notifier receives the status of every task that reaches a terminal state.
type Notifier interface {
	Notify(ctx context.Context, status models.TaskStatus) error
}

// Deps are the collaborators of a Controller. Verifier and Notifier may be nil.
type Deps struct {
	Store     store.Store
	Extractor Extractor
	Planner   Planner
	Runner    engine.Runner
	Verifier  verify.Verifier
	Notifier  Notifier
}

// attempt tracks one in-flight Run
type attempt struct {
	cancel  context.CancelFunc
	scratch string
}

// Controller runs the task state machine. One Controller serves any number
// of concurrent tasks; each task runs its stages strictly in sequence.
type Controller struct {
	deps Deps

	workDir          string
	sniff            bool
	verifyPasswords  bool
	budgets          func(models.Profile) time.Duration
	progressInterval time.Duration
	// cancelPoll is how often a running attempt checks the store for a
	// cancel request made by another process
	cancelPoll time.Duration
	now        func() time.Time

	mu        sync.Mutex
	running   map[string]*attempt
	cancelled map[string]bool
	observer  func(models.TaskStatus)
}

// New creates a Controller from cfg and deps.
func New(cfg *config.Config, deps Deps) *Controller {
	workDir := cfg.WorkDir
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	return &Controller{
		deps:             deps,
		workDir:          workDir,
		sniff:            cfg.SniffContent,
		verifyPasswords:  cfg.VerifyPasswords,
		budgets:          cfg.Budget,
		progressInterval: defaultProgressInterval,
		cancelPoll:       defaultCancelPoll,
		now:              time.Now,
		running:          make(map[string]*attempt),
		cancelled:        make(map[string]bool),
	}
}

// SetObserver registers fn to receive a status snapshot on every transition
// and every persisted progress update.
func (c *Controller) SetObserver(fn func(models.TaskStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// WorkDir is the absolute directory holding per-attempt scratch dirs
func (c *Controller) WorkDir() string {
	return c.workDir
}

// Submit creates a pending task for filePath. A zero budget means the
// profile default.
func (c *Controller) Submit(ctx context.Context, filePath string, profile models.Profile, customMask string, budget time.Duration) (*models.Task, error) {
	if profile == "" {
		profile = models.ProfileNormal
	}
	if _, err := models.ParseProfile(string(profile)); err != nil {
		return nil, err
	}
	if customMask != "" {
		if err := plan.ValidateMask(customMask); err != nil {
			return nil, err
		}
	}
	if budget <= 0 {
		budget = c.budgets(profile)
	}
	if budget <= 0 {
		return nil, fmt.Errorf("no time budget for profile %s", profile)
	}

	now := c.now()
	task := &models.Task{
		ID:         uuid.New().String(),
		FilePath:   filePath,
		Profile:    profile,
		CustomMask: customMask,
		State:      models.StatePending,
		Budget:     budget,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := c.deps.Store.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	c.appendLog(ctx, task, "INFO", models.EventState, fmt.Sprintf("task created for %s (profile %s, budget %v)", filepath.Base(filePath), profile, budget))
	debug.Info("Submitted task %s for %s", task.ID, filePath)
	return task, nil
}

// Cancel requests cancellation of taskID in this process. It returns true
// when an attempt was running and has been signalled. A task that is still
// pending is remembered and cancelled when it starts; unknown and finished
// tasks are ignored.
func (c *Controller) Cancel(taskID string) bool {
	if c.signal(taskID) {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	task, err := c.deps.Store.Get(ctx, taskID)
	if err != nil || task.State != models.StatePending {
		debug.Debug("Task %s is neither running here nor pending", taskID)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.running[taskID]; ok {
		// started while the store was read
		a.cancel()
		return true
	}
	debug.Info("Task %s is not running, cancellation will apply when it starts", taskID)
	c.cancelled[taskID] = true
	return false
}

func (c *Controller) signal(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.running[taskID]
	if !ok {
		return false
	}
	debug.Info("Cancelling running task %s", taskID)
	a.cancel()
	return true
}

// RequestCancel cancels taskID wherever it lives and returns the state it
// was found in. An attempt running here is signalled directly. A pending
// task no worker has claimed is moved to Cancelled in the store. Any other
// live task is flagged in the store, and the worker that owns it stops at
// its next check.
func (c *Controller) RequestCancel(ctx context.Context, taskID string) (models.State, error) {
	task, err := c.deps.Store.Get(ctx, taskID)
	if err != nil {
		return "", fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	if task.State.IsTerminal() {
		return task.State, nil
	}
	if c.Cancel(taskID) {
		return task.State, nil
	}

	c.appendLog(ctx, task, "WARNING", models.EventState, "cancellation requested")
	if task.State == models.StatePending && task.WorkerID == "" {
		ok, err := c.deps.Store.CancelPending(ctx, taskID, "cancelled before start", c.now())
		if err != nil {
			return task.State, fmt.Errorf("failed to cancel task %s: %w", taskID, err)
		}
		if ok {
			debug.Info("Cancelled pending task %s", taskID)
			if done, err := c.deps.Store.Get(ctx, taskID); err == nil {
				c.notify(done)
			}
			return models.StateCancelled, nil
		}
	}
	if err := c.deps.Store.RequestCancel(ctx, taskID); err != nil {
		return task.State, fmt.Errorf("failed to flag task %s for cancellation: %w", taskID, err)
	}
	debug.Info("Flagged task %s (%s) for cancellation", taskID, task.State)
	return task.State, nil
}

// cancelRequested reports whether another process flagged taskID.
func (c *Controller) cancelRequested(ctx context.Context, taskID string) bool {
	task, err := c.deps.Store.Get(ctx, taskID)
	return err == nil && task.CancelRequested
}

func (c *Controller) watchCancel(ctx context.Context, taskID string, cancel context.CancelFunc) {
	ticker := time.NewTicker(c.cancelPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.cancelRequested(ctx, taskID) {
				debug.Info("Task %s was flagged for cancellation", taskID)
				cancel()
				return
			}
		}
	}
}

// Status returns the observer view of taskID.
func (c *Controller) Status(ctx context.Context, taskID string) (models.TaskStatus, error) {
	task, err := c.deps.Store.Get(ctx, taskID)
	if err != nil {
		return models.TaskStatus{}, err
	}
	return task.Status(c.now()), nil
}

// Running returns the ids of tasks with an attempt in progress.
func (c *Controller) Running() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.running))
	for id := range c.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveScratch returns the scratch directories owned by running attempts.
func (c *Controller) ActiveScratch() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	dirs := make(map[string]bool, len(c.running))
	for _, a := range c.running {
		if a.scratch != "" {
			dirs[a.scratch] = true
		}
	}
	return dirs
}

func (c *Controller) register(taskID string, cancel context.CancelFunc) (preCancelled bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.running[taskID]; ok {
		return false, fmt.Errorf("task %s is already running", taskID)
	}
	c.running[taskID] = &attempt{cancel: cancel}
	preCancelled = c.cancelled[taskID]
	delete(c.cancelled, taskID)
	return preCancelled, nil
}

func (c *Controller) setScratch(taskID, dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.running[taskID]; ok {
		a.scratch = dir
	}
}

func (c *Controller) forget(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cancelled, taskID)
}

func (c *Controller) unregister(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.running, taskID)
}

// Run drives taskID to a terminal state. Task failures are reported through
// the returned task's state; the error is only for tasks that could not be
// run at all.
func (c *Controller) Run(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := c.deps.Store.Get(ctx, taskID)
	if err != nil {
		c.forget(taskID)
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	if task.State != models.StatePending {
		c.forget(taskID)
		return task, fmt.Errorf("task %s is %s, not pending", taskID, task.State)
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	preCancelled, err := c.register(taskID, cancel)
	if err != nil {
		return task, err
	}
	defer c.unregister(taskID)
	if preCancelled || task.CancelRequested {
		cancel()
	} else if c.cancelPoll > 0 {
		go c.watchCancel(attemptCtx, taskID, cancel)
	}

	r := &run{c: c, task: task, ctx: attemptCtx, attemptID: uuid.New().String()}
	r.execute()
	return r.task, nil
}

// run is the state of one attempt at one task
type run struct {
	c         *Controller
	task      *models.Task
	ctx       context.Context
	attemptID string

	scratch     string
	container   models.ContainerType
	hash        models.CanonicalHash
	algorithm   models.AlgorithmID
	lastPersist time.Time
}

func (r *run) cancelled() bool {
	return r.ctx.Err() != nil
}

func (r *run) execute() {
	c := r.c
	if r.cancelled() {
		r.finish(models.StateCancelled, models.KindCancelled, "cancelled before start")
		return
	}

	r.task.StartedAt = timePtr(c.now())
	if !r.transition(models.StateAnalyzing, models.EventState, "analyzing "+filepath.Base(r.task.FilePath)) {
		return
	}

	if err := os.MkdirAll(c.workDir, 0755); err != nil {
		r.fail(models.WrapError(models.KindExtractionFailed, err, "failed to create work directory"))
		return
	}
	scratch, err := os.MkdirTemp(c.workDir, ScratchPrefix+r.task.ID+"-")
	if err != nil {
		r.fail(models.WrapError(models.KindExtractionFailed, err, "failed to create scratch directory"))
		return
	}
	r.scratch = scratch
	c.setScratch(r.task.ID, scratch)
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			debug.Warning("Failed to remove scratch directory %s for task %s: %v", scratch, r.task.ID, err)
		}
	}()

	if !r.analyze() {
		return
	}
	stages, ok := r.plan()
	if !ok {
		return
	}
	r.crack(stages)
}

// analyze detects, extracts and classifies. It reports false once the task
// has reached a terminal state.
func (r *run) analyze() bool {
	c := r.c
	var sample []byte
	if c.sniff {
		sample, _ = format.SampleFile(r.task.FilePath)
	}
	r.container = format.Detect(r.task.FilePath, sample)
	if r.container == models.ContainerUnknown {
		r.fail(models.NewError(models.KindUnsupportedFormat, "unsupported file type %q", filepath.Ext(r.task.FilePath)))
		return false
	}
	r.log("INFO", models.EventState, fmt.Sprintf("detected container type %s", r.container))

	hash, err := c.deps.Extractor.Extract(r.ctx, r.task.FilePath, r.container, r.scratch)
	if err != nil {
		if r.cancelled() || errors.Is(err, models.ErrCancelled) {
			r.finish(models.StateCancelled, models.KindCancelled, "cancelled during extraction")
			return false
		}
		r.fail(err)
		return false
	}
	r.hash = hash

	alg, err := classify.Classify(hash.Value)
	if err != nil {
		r.fail(err)
		return false
	}
	r.algorithm = alg
	r.log("INFO", models.EventState, fmt.Sprintf("classified hash as mode %s", alg))
	return true
}

func (r *run) plan() ([]models.AttackStage, bool) {
	stages, dropped, err := r.c.deps.Planner.Plan(r.container, r.task.Profile, r.task.Budget, r.task.CustomMask)
	for _, d := range dropped {
		r.log("WARNING", models.EventStageDropped, fmt.Sprintf("stage %s dropped: budget %v does not fit total %v", d.Name, d.Budget, r.task.Budget))
	}
	if err != nil {
		if errors.Is(err, models.ErrBudgetExhausted) {
			r.finish(models.StateFailed, models.KindBudgetExhausted, err.Error())
			return nil, false
		}
		r.fail(err)
		return nil, false
	}

	hashFile := filepath.Join(r.scratch, hashFileName)
	if err := os.WriteFile(hashFile, []byte(r.hash.Value+"\n"), 0600); err != nil {
		r.fail(models.WrapError(models.KindEngineLaunchFailed, err, "failed to write hash file"))
		return nil, false
	}
	r.task.StageCount = len(stages)
	return stages, true
}

func (r *run) crack(stages []models.AttackStage) {
	c := r.c
	hashFile := filepath.Join(r.scratch, hashFileName)

	for i, stage := range stages {
		if r.cancelled() || c.cancelRequested(r.ctx, r.task.ID) {
			r.finish(models.StateCancelled, models.KindCancelled, fmt.Sprintf("cancelled before stage %d", i))
			return
		}

		r.task.StageIndex = i
		r.task.Progress = 0
		msg := fmt.Sprintf("stage %d/%d %s started (budget %v)", i+1, len(stages), stage.Name, stage.Budget)
		if !r.transition(models.StateCracking, models.EventStageStarted, msg) {
			return
		}

		req := engine.Request{
			SessionID: fmt.Sprintf("%s_%d", r.attemptID, i),
			Algorithm: r.algorithm,
			Hash:      r.hash.Value,
			HashFile:  hashFile,
			Stage:     stage,
			Timeout:   stage.Budget,
		}
		res, err := c.deps.Runner.Run(r.ctx, req, r.onLine)
		if err != nil {
			r.fail(err)
			return
		}

		switch res.Outcome {
		case engine.OutcomeFound:
			r.succeed(stage, res)
			return
		case engine.OutcomeCancelled:
			r.finish(models.StateCancelled, models.KindCancelled, fmt.Sprintf("cancelled during stage %s", stage.Name))
			return
		case engine.OutcomeTimeout:
			r.log("WARNING", models.EventStageFinished, fmt.Sprintf("stage %s: %s after %v", stage.Name, models.KindStageTimeout, res.Duration.Round(time.Second)))
		default:
			detail := ""
			if res.ExitErr != nil {
				detail = fmt.Sprintf(" (%v)", res.ExitErr)
			}
			r.log("INFO", models.EventStageFinished, fmt.Sprintf("stage %s exhausted without result%s", stage.Name, detail))
		}
	}
	r.finish(models.StateFailed, "", FailedMessage)
}

// onLine records engine output and throttles progress persistence.
func (r *run) onLine(ev engine.LineEvent) {
	level := "INFO"
	switch ev.Kind {
	case engine.LineFatal:
		level = "WARNING"
	case engine.LineSuccess:
		lr := engine.ClassifyLine(ev.Text, r.hash.Value)
		r.log("INFO", models.EventEngineOutput, redactResult(ev.Text, lr.Password))
		return
	}
	r.log(level, models.EventEngineOutput, ev.Text)

	if !ev.HasProgress {
		return
	}
	r.task.Progress = ev.Progress
	now := r.c.now()
	if now.Sub(r.lastPersist) < r.c.progressInterval {
		return
	}
	r.lastPersist = now
	r.persist()
}

func (r *run) succeed(stage models.AttackStage, res engine.Result) {
	c := r.c
	now := c.now()
	result := &models.Result{
		Password:   res.Password,
		StageIndex: r.task.StageIndex,
		StageName:  stage.Name,
		Algorithm:  r.algorithm,
		Elapsed:    now.Sub(*r.task.StartedAt),
	}

	if c.verifyPasswords && c.deps.Verifier != nil {
		ok, err := c.deps.Verifier.Verify(r.ctx, r.task.FilePath, r.container, res.Password)
		switch {
		case errors.Is(err, verify.ErrUnsupported):
			debug.Debug("Task %s: no local verification for %s", r.task.ID, r.container)
		case err != nil:
			r.log("WARNING", models.EventVerify, fmt.Sprintf("verification could not run: %v", err))
		default:
			result.Verified = &ok
			if ok {
				r.log("INFO", models.EventVerify, "recovered password opens the file")
			} else {
				r.log("WARNING", models.EventVerify, "recovered password did not open the file")
			}
		}
	}

	r.task.Result = result
	r.task.Progress = 100
	r.finish(models.StateSuccess, "", fmt.Sprintf("password recovered at stage %d (%s) after %v", r.task.StageIndex, stage.Name, result.Elapsed.Round(time.Second)))
}

// fail moves the task to Error keeping the kind of err.
func (r *run) fail(err error) {
	kind := models.KindOf(err)
	if kind == models.KindCancelled {
		r.finish(models.StateCancelled, kind, err.Error())
		return
	}
	r.finish(models.StateError, kind, err.Error())
}

// finish logs and persists a terminal state, then notifies.
func (r *run) finish(state models.State, kind models.ErrorKind, message string) {
	c := r.c
	event := models.EventError
	level := "ERROR"
	switch state {
	case models.StateSuccess:
		event, level = models.EventSuccess, "INFO"
	case models.StateFailed, models.StateCancelled:
		level = "WARNING"
	}

	if state != models.StateSuccess {
		r.task.ErrorKind = kind
		r.task.ErrorMessage = message
	}
	r.task.CompletedAt = timePtr(c.now())
	if !r.transition(state, event, message, level) {
		return
	}
	debug.Info("Task %s finished: %s %s", r.task.ID, state, message)
	c.notify(r.task)
}

func (c *Controller) notify(task *models.Task) {
	if c.deps.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := c.deps.Notifier.Notify(ctx, task.Status(c.now())); err != nil {
		debug.Warning("Failed to notify status of task %s: %v", task.ID, err)
	}
}

// transition appends the log entry, then moves and persists the task. It
// reports false if next is not a legal successor.
func (r *run) transition(next models.State, event models.LogEvent, message string, level ...string) bool {
	if !r.task.State.CanTransitionTo(next) {
		debug.Error("Task %s: illegal transition %s -> %s", r.task.ID, r.task.State, next)
		return false
	}
	lvl := "INFO"
	if len(level) > 0 {
		lvl = level[0]
	}
	r.log(lvl, event, message)
	r.task.State = next
	r.persist()
	return true
}

func (r *run) persist() {
	c := r.c
	r.task.UpdatedAt = c.now()
	// the attempt context may be cancelled; the final state must still land
	if err := c.deps.Store.Update(context.WithoutCancel(r.ctx), r.task); err != nil {
		debug.Error("Failed to persist task %s: %v", r.task.ID, err)
	}

	c.mu.Lock()
	observer := c.observer
	c.mu.Unlock()
	if observer != nil {
		observer(r.task.Status(c.now()))
	}
}

func (r *run) log(level string, event models.LogEvent, message string) {
	r.c.appendLog(context.WithoutCancel(r.ctx), r.task, level, event, message)
}

func (c *Controller) appendLog(ctx context.Context, task *models.Task, level string, event models.LogEvent, message string) {
	entry := &models.LogEntry{
		TaskID:     task.ID,
		Time:       c.now(),
		Level:      level,
		Event:      event,
		Message:    message,
		StageIndex: task.StageIndex,
	}
	if err := c.deps.Store.AppendLog(ctx, entry); err != nil {
		debug.Error("Failed to append log for task %s: %v", task.ID, err)
	}
}

// redactResult hides the password on a result line. Only the trailing
// field is replaced when it matches, so characters the password shares with
// the hash survive.
func redactResult(line, password string) string {
	if password != "" && strings.HasSuffix(line, ":"+password) {
		return strings.TrimSuffix(line, password) + debug.Redacted
	}
	return debug.Redact(line, password)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
