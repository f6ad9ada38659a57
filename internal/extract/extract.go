// Package extract runs the *2john family of tools to turn an encrypted file
// into a canonical hash string.
package extract

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZerkerEOD/filecrack/internal/config"
	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// DefaultTimeout bounds a whole extraction chain
const DefaultTimeout = 30 * time.Second

// waitDelay caps how long we wait for pipes held open by grandchildren after
// the tool itself has been killed.
const waitDelay = 2 * time.Second

// Extractor runs extraction chains with a hard timeout.
type Extractor struct {
	locator *Locator
	timeout time.Duration

	// newCommand builds the process for one step; tests replace it
	newCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New creates an Extractor from the tool and timeout settings in cfg.
func New(cfg *config.Config) *Extractor {
	timeout := cfg.ExtractionTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{
		locator: &Locator{
			ToolsDir:   cfg.ToolsDir,
			PerlPath:   cfg.PerlPath,
			PythonPath: cfg.PythonPath,
		},
		timeout:    timeout,
		newCommand: exec.CommandContext,
	}
}

// Locator exposes the tool locator for availability checks.
func (e *Extractor) Locator() *Locator {
	return e.locator
}

// Extract produces the canonical hash for filePath. Intermediate artifacts
// are written to scratchDir, which the caller owns and removes.
func (e *Extractor) Extract(ctx context.Context, filePath string, container models.ContainerType, scratchDir string) (models.CanonicalHash, error) {
	chain, ok := ToolTable[container]
	if !ok {
		return models.CanonicalHash{}, models.NewError(models.KindUnsupportedFormat, "no extraction tool for container type %s", container)
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return models.CanonicalHash{}, models.WrapError(models.KindExtractionFailed, err, "invalid file path")
	}
	if _, err := os.Stat(absPath); err != nil {
		return models.CanonicalHash{}, models.WrapError(models.KindExtractionFailed, err, "input file unavailable")
	}

	vars := map[string]string{argInput: absPath}
	if chain.Companion {
		companion := CompanionPath(absPath)
		if companion == absPath {
			return models.CanonicalHash{}, models.NewError(models.KindMissingCompanionFile, "cannot derive companion file for %s", filepath.Base(absPath))
		}
		if _, err := os.Stat(companion); err != nil {
			return models.CanonicalHash{}, models.NewError(models.KindMissingCompanionFile, "companion file %s not found", filepath.Base(companion))
		}
		vars[argCompanion] = companion
	}
	if chain.Artifact != "" {
		vars[argOutput] = filepath.Join(scratchDir, chain.Artifact)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var output string
	for _, step := range chain.Steps {
		output, err = e.runStep(ctx, step, vars)
		if err != nil {
			return models.CanonicalHash{}, err
		}
	}

	hash, err := ParseOutput(output)
	if err != nil {
		return models.CanonicalHash{}, err
	}
	debug.Debug("Extracted %s hash from %s (%d chars)", container, filepath.Base(absPath), len(hash))
	return models.CanonicalHash{Value: hash, Container: container}, nil
}

func (e *Extractor) runStep(ctx context.Context, step ToolStep, vars map[string]string) (string, error) {
	program, lead, err := e.locator.Find(step.Tool)
	if err != nil {
		return "", models.WrapError(models.KindExtractionFailed, err, "extraction tool %s not found", step.Tool)
	}

	args := append([]string{}, lead...)
	for _, a := range step.Args {
		if v, ok := vars[a]; ok {
			a = v
		}
		args = append(args, a)
	}

	cmd := e.newCommand(ctx, program, args...)
	cmd.WaitDelay = waitDelay

	debug.Debug("Running extraction step: %s %s", step.Tool, strings.Join(args, " "))
	start := time.Now()
	out, err := cmd.CombinedOutput()

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", models.NewError(models.KindExtractionTimeout, "%s did not finish within %v", step.Tool, e.timeout)
		}
		return "", models.WrapError(models.KindCancelled, ctxErr, "extraction cancelled")
	}
	if err != nil {
		reason := lastLine(string(out))
		if reason == "" {
			reason = err.Error()
		}
		return "", models.WrapError(models.KindExtractionFailed, err, "%s failed: %s", step.Tool, reason)
	}

	debug.Debug("Extraction step %s finished in %v", step.Tool, time.Since(start))
	return string(out), nil
}

// ParseOutput picks the canonical hash from tool output: the last non-empty
// line, then, for colon-separated records, the first field with a known
// hash prefix or else the last field.
func ParseOutput(output string) (string, error) {
	line := lastLine(output)
	if line == "" {
		return "", models.NewError(models.KindEmptyExtraction, "extraction produced no output")
	}
	if !strings.Contains(line, ":") {
		return line, nil
	}

	parts := strings.Split(line, ":")
	for _, p := range parts {
		if models.HasHashPrefix(p) {
			return p, nil
		}
	}
	last := strings.TrimSpace(parts[len(parts)-1])
	if last == "" {
		return "", models.NewError(models.KindEmptyExtraction, "extraction record has no hash field")
	}
	return last, nil
}

func lastLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// SupportedTypes lists container types with an extraction chain.
func SupportedTypes() []models.ContainerType {
	out := make([]models.ContainerType, 0, len(ToolTable))
	for _, c := range models.ContainerTypes {
		if _, ok := ToolTable[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// String renders a chain for logs and help output.
func (s ToolSpec) String() string {
	names := make([]string, len(s.Steps))
	for i, st := range s.Steps {
		names[i] = st.Tool
	}
	return strings.Join(names, " -> ")
}
