// Package engine drives the external password recovery engine one attack
// stage at a time.
package engine

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// Outcome is how a stage run ended
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeFound
	OutcomeTimeout
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "not_found"
}

const (
	defaultKillGrace = 3 * time.Second
	// large archive hashes are echoed back on the result line
	maxLineSize = 16 * 1024 * 1024
)

// LineEvent is delivered for every engine output line as it is read.
type LineEvent struct {
	Text     string
	Kind     LineKind
	Progress float64
	// HasProgress is set when Text was a progress status line
	HasProgress bool
}

// Result describes a finished stage run.
type Result struct {
	Outcome  Outcome
	Password string
	Lines    int
	ExitErr  error
	Duration time.Duration
}

// Runner runs one stage. Supervisor is the real implementation, MockRunner
// the simulated one.
type Runner interface {
	Run(ctx context.Context, req Request, onLine func(LineEvent)) (Result, error)
}

// Supervisor launches the engine as a child process and watches its output.
type Supervisor struct {
	opts Options

	// newCommand builds the engine process; tests replace it
	newCommand func(name string, args ...string) *exec.Cmd
	maxLine    int
}

// NewSupervisor creates a Supervisor for the engine described by opts.
func NewSupervisor(opts Options) *Supervisor {
	if opts.KillGrace <= 0 {
		opts.KillGrace = defaultKillGrace
	}
	return &Supervisor{opts: opts, newCommand: exec.Command, maxLine: maxLineSize}
}

// Run executes req and returns as soon as a result line appears, the stage
// timeout elapses, ctx is cancelled, or the engine exits. The engine and its
// process group are always gone when Run returns.
func (s *Supervisor) Run(ctx context.Context, req Request, onLine func(LineEvent)) (Result, error) {
	start := time.Now()
	args := BuildArgs(req, s.opts)

	stageCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return Result{}, models.WrapError(models.KindEngineLaunchFailed, err, "failed to create output pipe")
	}
	defer pr.Close()

	cmd := s.newCommand(s.opts.Binary, args...)
	cmd.Dir = filepath.Dir(s.opts.Binary)
	cmd.Stdout = pw
	cmd.Stderr = pw
	configureProcessGroup(cmd)

	debug.Info("Starting engine for session %s: %s %s", req.SessionID, filepath.Base(s.opts.Binary), strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		pw.Close()
		return Result{}, models.WrapError(models.KindEngineLaunchFailed, err, "failed to start recovery engine %s", s.opts.Binary)
	}
	pw.Close()
	pid := cmd.Process.Pid

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		if err := readLines(pr, s.maxLine, lines, stop); err != nil {
			debug.Warning("Reading output of engine session %s failed: %v", req.SessionID, err)
			// keep the pipe drained so the engine never blocks on write
			_, _ = io.Copy(io.Discard, pr)
		}
	}()

	res := Result{Outcome: OutcomeNotFound}
	finish := func(o Outcome) (Result, error) {
		if o == OutcomeNotFound {
			// output is closed but the engine may still be running
			select {
			case res.ExitErr = <-waitCh:
			case <-stageCtx.Done():
				o = stageOutcome(ctx)
				s.terminate(pid, waitCh)
			}
		} else {
			s.terminate(pid, waitCh)
		}
		res.Outcome = o
		res.Duration = time.Since(start)
		debug.Info("Engine session %s finished: %s after %v (%d lines)", req.SessionID, o, res.Duration, res.Lines)
		return res, nil
	}

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return finish(OutcomeNotFound)
			}
			res.Lines++
			lr := ClassifyLine(line, req.Hash)
			ev := LineEvent{Text: line, Kind: lr.Kind}
			ev.Progress, ev.HasProgress = ParseProgress(line)
			if lr.Kind == LineSuccess {
				res.Password = lr.Password
			}
			if onLine != nil {
				onLine(ev)
			}
			switch lr.Kind {
			case LineSuccess:
				return finish(OutcomeFound)
			case LineFatal:
				debug.Warning("Engine session %s reported: %s", req.SessionID, line)
			}
		case <-stageCtx.Done():
			return finish(stageOutcome(ctx))
		}
	}
}

// stageOutcome tells a cancelled parent apart from an expired stage timeout.
func stageOutcome(parent context.Context) Outcome {
	if errors.Is(parent.Err(), context.Canceled) {
		return OutcomeCancelled
	}
	return OutcomeTimeout
}

// readLines sends each line of r to out. Lines longer than limit are dropped
// whole and reading carries on with the next one.
func readLines(r io.Reader, limit int, out chan<- string, stop <-chan struct{}) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	oversized := false
	for {
		frag, more, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !oversized && len(buf)+len(frag) > limit {
			oversized = true
			buf = buf[:0]
		}
		if !oversized {
			buf = append(buf, frag...)
		}
		if more {
			continue
		}
		if oversized {
			debug.Warning("Skipped engine output line longer than %d bytes", limit)
			oversized = false
			continue
		}
		line := string(buf)
		buf = buf[:0]
		select {
		case out <- line:
		case <-stop:
			return nil
		}
	}
}

// terminate asks the engine tree to stop, escalates to SIGKILL after the
// grace period, and reaps the child.
func (s *Supervisor) terminate(pid int, waitCh <-chan error) {
	signalTree(pid, false)
	select {
	case <-waitCh:
		// leader is gone; make sure nothing it forked survives
		signalTree(pid, true)
		return
	case <-time.After(s.opts.KillGrace):
	}
	debug.Warning("Engine process %d ignored termination, killing", pid)
	signalTree(pid, true)
	<-waitCh
}
