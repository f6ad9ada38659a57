package engine

import (
	"context"

	"github.com/ZerkerEOD/filecrack/internal/config"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// NewRunner builds the Runner described by cfg for the requested device
// mode. It returns the simulated engine in test mode. A gpu request on a
// machine without a GPU falls back to cpu; the effective mode is returned.
func NewRunner(ctx context.Context, cfg *config.Config, mode string) (Runner, string, error) {
	if cfg.TestMode {
		return NewMockRunnerFromEnv(), mode, nil
	}

	binary, err := Locate(cfg.HashcatPath, cfg.DataDir)
	if err != nil {
		return nil, "", err
	}
	debug.Info("Using recovery engine at %s", binary)

	if mode == "gpu" {
		devices, err := DetectDevices(ctx, binary)
		if err != nil {
			debug.Warning("Device detection failed: %v", err)
		}
		if !HasGPU(devices) {
			debug.Warning("No GPU device found, falling back to cpu")
			mode = "cpu"
		}
	}

	return NewSupervisor(Options{
		Binary:      binary,
		DeviceMode:  mode,
		StatusTimer: cfg.StatusTimer,
		ExtraParams: cfg.HashcatExtraParams,
	}), mode, nil
}
