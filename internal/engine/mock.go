package engine

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// MockRunner simulates the engine so the whole pipeline can run on machines
// without hashcat or a GPU.
type MockRunner struct {
	// Password is reported when a stage succeeds
	Password string
	// FoundAtStage is the stage index that succeeds; negative never succeeds
	FoundAtStage int
	// StageDuration is how long each simulated stage takes
	StageDuration time.Duration
	// Ticks is the number of progress lines emitted per stage
	Ticks int
}

// NewMockRunnerFromEnv reads MOCK_PASSWORD, MOCK_FOUND_AT_STAGE and
// MOCK_STAGE_DURATION.
func NewMockRunnerFromEnv() *MockRunner {
	m := &MockRunner{
		Password:      getEnvString("MOCK_PASSWORD", "Summer2024!"),
		FoundAtStage:  getEnvInt("MOCK_FOUND_AT_STAGE", 1),
		StageDuration: getEnvDuration("MOCK_STAGE_DURATION", 2*time.Second),
		Ticks:         10,
	}
	debug.Info("Creating mock engine: found at stage %d, stage duration %v", m.FoundAtStage, m.StageDuration)
	return m
}

// Run emits progress lines for one stage and then either a result line or a
// natural exit. Timeout and cancellation behave like the real Supervisor.
func (m *MockRunner) Run(ctx context.Context, req Request, onLine func(LineEvent)) (Result, error) {
	start := time.Now()
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	ticks := m.Ticks
	if ticks <= 0 {
		ticks = 1
	}
	interval := m.StageDuration / time.Duration(ticks)
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	res := Result{Outcome: OutcomeNotFound}
	emit := func(text string) {
		res.Lines++
		if onLine == nil {
			return
		}
		lr := ClassifyLine(text, req.Hash)
		ev := LineEvent{Text: text, Kind: lr.Kind}
		ev.Progress, ev.HasProgress = ParseProgress(text)
		onLine(ev)
	}

	emit(fmt.Sprintf("Session..........: %s", req.SessionID))
	for i := 1; i <= ticks; i++ {
		select {
		case <-ctx.Done():
			res.Duration = time.Since(start)
			if ctx.Err() == context.DeadlineExceeded {
				res.Outcome = OutcomeTimeout
			} else {
				res.Outcome = OutcomeCancelled
			}
			return res, nil
		case <-ticker.C:
			emit(fmt.Sprintf("Progress.........: %d/%d (%.2f%%)", i, ticks, float64(i)*100/float64(ticks)))
		}
	}

	if req.Stage.Index == m.FoundAtStage {
		emit(req.Hash + ":" + m.Password)
		res.Outcome = OutcomeFound
		res.Password = m.Password
	} else {
		emit("Status...........: Exhausted")
	}
	res.Duration = time.Since(start)
	return res, nil
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
