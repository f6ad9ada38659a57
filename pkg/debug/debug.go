package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZerkerEOD/filecrack/internal/logbuffer"
)

// LogLevel is the severity of a message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

// LogFileName is created inside LOG_DIR when file logging is on
const LogFileName = "filecrack.log"

// Redacted replaces secrets in log messages
const Redacted = "[REDACTED]"

var (
	mu           sync.RWMutex
	enabled      bool
	minLevel     LogLevel
	out          *log.Logger
	logFile      *os.File
	logFilePath  string
	buffer       *logbuffer.Ring
	basePath     string
	levelNames   = map[LogLevel]string{LevelDebug: "DEBUG", LevelInfo: "INFO", LevelWarning: "WARNING", LevelError: "ERROR"}
	levelsByName = map[string]LogLevel{"DEBUG": LevelDebug, "INFO": LevelInfo, "WARNING": LevelWarning, "ERROR": LevelError}
)

func init() {
	size := logbuffer.DefaultCapacity
	if s, err := strconv.Atoi(os.Getenv("LOG_BUFFER_SIZE")); err == nil && s > 0 {
		size = s
	}
	buffer = logbuffer.New(size)
	out = log.New(os.Stdout, "", 0)
	Reinitialize()
}

// Reinitialize re-reads DEBUG, LOG_LEVEL and LOG_DIR from the environment.
// The CLI calls it after applying -v and loading .env.
func Reinitialize() {
	env := os.Getenv("DEBUG")
	on := env == "true" || env == "1"
	level := LevelInfo
	if l, ok := levelsByName[strings.ToUpper(os.Getenv("LOG_LEVEL"))]; ok {
		level = l
	}

	mu.Lock()
	enabled = on
	minLevel = level
	mu.Unlock()

	if on {
		if dir := os.Getenv("LOG_DIR"); dir != "" {
			if err := EnableFileLogging(dir); err != nil {
				fmt.Fprintf(os.Stderr, "file logging disabled: %v\n", err)
			}
		}
	} else {
		_ = DisableFileLogging()
	}
}

// SetEnabled toggles output at runtime
func SetEnabled(on bool) {
	mu.Lock()
	enabled = on
	mu.Unlock()
}

// SetLevel changes the minimum level at runtime
func SetLevel(level LogLevel) {
	mu.Lock()
	minLevel = level
	mu.Unlock()
}

// IsEnabled reports whether messages are emitted
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// ParseLevel maps a level name to a LogLevel, defaulting to LevelInfo.
func ParseLevel(name string) LogLevel {
	if l, ok := levelsByName[strings.ToUpper(name)]; ok {
		return l
	}
	return LevelInfo
}

// EnableFileLogging tees output to dir/filecrack.log.
func EnableFileLogging(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	path := filepath.Join(dir, LogFileName)
	if logFile != nil && logFilePath == path {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logFilePath = path
	out = log.New(io.MultiWriter(os.Stdout, f), "", 0)
	return nil
}

// DisableFileLogging closes the log file and goes back to stdout only.
func DisableFileLogging() error {
	mu.Lock()
	defer mu.Unlock()

	out = log.New(os.Stdout, "", 0)
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	logFilePath = ""
	return err
}

// LogFilePath is empty when file logging is off
func LogFilePath() string {
	mu.RLock()
	defer mu.RUnlock()
	return logFilePath
}

// SetBasePath strips path from logged messages so work directories are
// logged relative to it.
func SetBasePath(path string) {
	mu.Lock()
	defer mu.Unlock()
	if path != "" && !strings.HasSuffix(path, string(os.PathSeparator)) {
		path += string(os.PathSeparator)
	}
	basePath = path
}

// Redact replaces every occurrence of secret in msg. It is applied per
// message by the caller that owns the secret; nothing is remembered.
func Redact(msg, secret string) string {
	if secret == "" {
		return msg
	}
	return strings.ReplaceAll(msg, secret, Redacted)
}

// SanitizeMessage applies base path stripping.
func SanitizeMessage(msg string) string {
	mu.RLock()
	defer mu.RUnlock()

	if basePath != "" {
		msg = strings.ReplaceAll(msg, basePath, "")
		if dir := strings.TrimSuffix(basePath, string(os.PathSeparator)); dir != "" {
			msg = strings.ReplaceAll(msg, dir, ".")
		}
	}
	return msg
}

// Log writes one message if level passes the current filter.
func Log(level LogLevel, format string, v ...interface{}) {
	mu.RLock()
	on, threshold := enabled, minLevel
	mu.RUnlock()
	if !on || level < threshold {
		return
	}

	pc, file, line, _ := runtime.Caller(2)
	fn := ""
	if f := runtime.FuncForPC(pc); f != nil {
		fn = f.Name()
	}
	now := time.Now()
	msg := SanitizeMessage(fmt.Sprintf(format, v...))
	caller := fmt.Sprintf("%s:%d", filepath.Base(file), line)

	buffer.Add(logbuffer.Entry{Time: now, Level: levelNames[level], Message: msg, Caller: caller, Function: fn})

	mu.RLock()
	out.Printf("[%s] [%s] [%s] [%s] %s", levelNames[level], now.Format("2006-01-02 15:04:05.000"), caller, fn, msg)
	mu.RUnlock()
}

func Debug(format string, v ...interface{}) {
	Log(LevelDebug, format, v...)
}

func Info(format string, v ...interface{}) {
	Log(LevelInfo, format, v...)
}

func Warning(format string, v ...interface{}) {
	Log(LevelWarning, format, v...)
}

func Error(format string, v ...interface{}) {
	Log(LevelError, format, v...)
}

// Recent returns buffered entries since t
func Recent(t time.Time) []logbuffer.Entry {
	return buffer.Since(t)
}

// Search returns buffered entries containing substr
func Search(substr string) []logbuffer.Entry {
	return buffer.Search(substr)
}

// ClearBuffer empties the in-memory buffer
func ClearBuffer() {
	buffer.Reset()
}
