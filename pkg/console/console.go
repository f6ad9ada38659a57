// Package console prints human-readable progress for the filecrack CLI.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

var (
	mu    sync.Mutex
	w     io.Writer = os.Stdout
	color           = term.IsTerminal(int(os.Stdout.Fd()))
)

// SetOutput redirects console output and turns off color. Used by tests.
func SetOutput(out io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	w = out
	color = false
}

// IsTerminal reports whether console output goes to a terminal
func IsTerminal() bool {
	mu.Lock()
	defer mu.Unlock()
	return color
}

func emit(code, tag, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	if color {
		fmt.Fprintf(w, "%s%s%s %s\n", code, tag, colorReset, msg)
		return
	}
	fmt.Fprintf(w, "%s %s\n", tag, msg)
}

func Status(format string, args ...interface{}) {
	emit(colorCyan, "[*]", format, args...)
}

func Info(format string, args ...interface{}) {
	emit("", "[i]", format, args...)
}

func Success(format string, args ...interface{}) {
	emit(colorGreen, "[+]", format, args...)
}

func Warning(format string, args ...interface{}) {
	emit(colorYellow, "[!]", format, args...)
}

func Error(format string, args ...interface{}) {
	emit(colorRed, "[-]", format, args...)
}

// Progress prints a single stage progress line.
func Progress(stage string, percent float64) {
	emit(colorCyan, "[~]", "%s %.1f%%", stage, percent)
}

// Bar wraps a pb progress bar that only renders on a terminal.
type Bar struct {
	bar *pb.ProgressBar
}

// NewBar starts a percentage bar labelled with the stage name. On a
// non-terminal it returns a Bar whose methods do nothing.
func NewBar(label string) *Bar {
	if !IsTerminal() {
		return &Bar{}
	}
	tmpl := pb.ProgressBarTemplate(`{{string . "label"}} {{bar . }} {{percent . }} {{etime . }}`)
	bar := tmpl.Start64(1000)
	bar.Set("label", label)
	return &Bar{bar: bar}
}

// Set moves the bar to percent (0-100).
func (b *Bar) Set(percent float64) {
	if b.bar == nil {
		return
	}
	b.bar.SetCurrent(int64(percent * 10))
}

// Finish stops rendering.
func (b *Bar) Finish() {
	if b.bar == nil {
		return
	}
	b.bar.Finish()
}
