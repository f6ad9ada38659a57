package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

const detectTimeout = 30 * time.Second

func binaryName() string {
	if runtime.GOOS == "windows" {
		return "hashcat.exe"
	}
	return "hashcat.bin"
}

// Locate finds the engine binary: an explicit path, the newest numbered
// version under dataDir/binaries, then hashcat on PATH.
func Locate(explicit, dataDir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", models.WrapError(models.KindEngineLaunchFailed, err, "configured engine %s not found", explicit)
		}
		return filepath.Abs(explicit)
	}

	path, err := latestBinary(filepath.Join(dataDir, "binaries"))
	if err == nil {
		return filepath.Abs(path)
	}
	debug.Debug("No managed engine binary: %v", err)

	if path, err = exec.LookPath("hashcat"); err == nil {
		return path, nil
	}
	return "", models.NewError(models.KindEngineLaunchFailed, "recovery engine binary not found")
}

func latestBinary(binariesDir string) (string, error) {
	entries, err := os.ReadDir(binariesDir)
	if err != nil {
		return "", fmt.Errorf("failed to read binaries directory: %w", err)
	}

	latest := -1
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if v, err := strconv.Atoi(e.Name()); err == nil && v > latest {
			latest = v
		}
	}
	if latest < 0 {
		return "", fmt.Errorf("no engine versions in %s", binariesDir)
	}

	path := filepath.Join(binariesDir, strconv.Itoa(latest), binaryName())
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("engine binary not found at %s", path)
	}
	return path, nil
}

// Device is one compute backend device reported by the engine.
type Device struct {
	ID      int
	Name    string
	Type    string
	Backend string
}

// IsGPU reports whether the engine lists the device as a GPU
func (d Device) IsGPU() bool {
	return strings.EqualFold(d.Type, "GPU")
}

var (
	backendRe  = regexp.MustCompile(`^(HIP|OpenCL|CUDA|Metal) Info:`)
	deviceIDRe = regexp.MustCompile(`^\s*Backend Device ID #(\d+)`)
	nameRe     = regexp.MustCompile(`^\s*Name\.+:\s+(.+)`)
	typeRe     = regexp.MustCompile(`^\s*Type\.+:\s+(.+)`)
)

// DetectDevices runs the engine's device listing and parses it.
func DetectDevices(ctx context.Context, binary string) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, "-I")
	cmd.Dir = filepath.Dir(binary)
	out, err := cmd.CombinedOutput()
	if err != nil {
		// the engine exits non-zero on driver warnings while still listing devices
		debug.Warning("Device listing returned error (may be warnings only): %v", err)
	}

	devices := ParseDevices(string(out))
	if len(devices) == 0 && err != nil {
		return nil, fmt.Errorf("failed to detect devices: %w", err)
	}
	return devices, nil
}

// ParseDevices reads device blocks from the engine's -I output.
func ParseDevices(output string) []Device {
	var (
		devices []Device
		cur     *Device
		backend string
	)
	for _, line := range strings.Split(output, "\n") {
		if m := backendRe.FindStringSubmatch(line); m != nil {
			backend = m[1]
			continue
		}
		if m := deviceIDRe.FindStringSubmatch(line); m != nil {
			if cur != nil {
				devices = append(devices, *cur)
			}
			id, _ := strconv.Atoi(m[1])
			cur = &Device{ID: id, Backend: backend}
			continue
		}
		if cur == nil {
			continue
		}
		if m := nameRe.FindStringSubmatch(line); m != nil {
			cur.Name = strings.TrimSpace(m[1])
		} else if m := typeRe.FindStringSubmatch(line); m != nil {
			cur.Type = strings.TrimSpace(m[1])
		}
	}
	if cur != nil {
		devices = append(devices, *cur)
	}
	return devices
}

// HasGPU reports whether any device is a GPU
func HasGPU(devices []Device) bool {
	for _, d := range devices {
		if d.IsGPU() {
			return true
		}
	}
	return false
}
