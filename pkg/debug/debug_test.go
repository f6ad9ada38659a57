package debug

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureState swaps the output for a buffer and restores everything on cleanup.
func captureState(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer

	mu.Lock()
	origEnabled, origLevel, origOut, origBase := enabled, minLevel, out, basePath
	out = log.New(&buf, "", 0)
	mu.Unlock()
	ClearBuffer()

	t.Cleanup(func() {
		mu.Lock()
		enabled, minLevel, out, basePath = origEnabled, origLevel, origOut, origBase
		mu.Unlock()
		ClearBuffer()
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		level   LogLevel
		logFn   func(string, ...interface{})
		expect  bool
	}{
		{"disabled drops everything", false, LevelDebug, Error, false},
		{"debug passes at debug", true, LevelDebug, Debug, true},
		{"debug dropped at info", true, LevelInfo, Debug, false},
		{"warning passes at info", true, LevelInfo, Warning, true},
		{"info dropped at error", true, LevelError, Info, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureState(t)
			SetEnabled(tt.enabled)
			SetLevel(tt.level)

			tt.logFn("hello %d", 42)

			assert.Equal(t, tt.expect, bytes.Contains(buf.Bytes(), []byte("hello 42")))
		})
	}
}

func TestReinitializeFromEnv(t *testing.T) {
	captureState(t)
	t.Setenv("DEBUG", "1")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("LOG_DIR", "")

	Reinitialize()
	assert.True(t, IsEnabled())
	mu.RLock()
	assert.Equal(t, LevelWarning, minLevel)
	mu.RUnlock()

	t.Setenv("DEBUG", "false")
	Reinitialize()
	assert.False(t, IsEnabled())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestSanitizeMessage(t *testing.T) {
	captureState(t)
	base := filepath.Join(string(os.PathSeparator), "srv", "filecrack")
	SetBasePath(base)

	got := SanitizeMessage("wrote " + filepath.Join(base, "work", "a.hash"))
	assert.Equal(t, "wrote "+filepath.Join("work", "a.hash"), got)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "hash:[REDACTED]", Redact("hash:hunter2", "hunter2"))
	assert.Equal(t, "hash:hunter2", Redact("hash:hunter2", ""))

	// nothing carries over to the next message
	msg := "stage 1/3 numeric-mask started (budget 10m0s)"
	Redact("hash:1", "1")
	assert.Equal(t, msg, SanitizeMessage(msg))
}

func TestBufferedEntries(t *testing.T) {
	buf := captureState(t)
	SetEnabled(true)
	SetLevel(LevelDebug)

	Info("[task t-1] stage started")
	Info("[task t-2] stage started")
	Error("[task t-1] engine failed")

	entries := Search("[task t-1]")
	require.Len(t, entries, 2)
	assert.Equal(t, "ERROR", entries[1].Level)
	assert.Contains(t, entries[0].Caller, "debug_test.go")
	assert.Contains(t, buf.String(), "[INFO]")
}

func TestFileLogging(t *testing.T) {
	captureState(t)
	dir := t.TempDir()

	require.NoError(t, EnableFileLogging(dir))
	assert.Equal(t, filepath.Join(dir, LogFileName), LogFilePath())

	SetEnabled(true)
	SetLevel(LevelInfo)
	Info("persisted line")
	require.NoError(t, DisableFileLogging())
	assert.Empty(t, LogFilePath())

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "persisted line")
}
