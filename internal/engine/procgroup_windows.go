//go:build windows

package engine

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

const createNewProcessGroup = 0x00000200

func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}

// signalTree kills the engine and its descendants. Windows has no SIGTERM
// so force is ignored.
func signalTree(pid int, force bool) {
	for _, p := range descendants(pid) {
		_ = p.Kill()
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := p.Kill(); err != nil {
		debug.Warning("Failed to kill engine process %d: %v", pid, err)
	}
}
