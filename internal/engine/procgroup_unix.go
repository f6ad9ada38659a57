//go:build !windows

package engine

import (
	"os/exec"
	"syscall"

	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// configureProcessGroup starts the engine as leader of its own group so
// everything it forks can be signalled at once.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalTree sends SIGTERM, or SIGKILL when force is set, to the engine's
// process group and to any descendant that left the group.
func signalTree(pid int, force bool) {
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}

	tree := descendants(pid)
	if err := syscall.Kill(-pid, sig); err != nil && err != syscall.ESRCH {
		debug.Warning("Failed to signal process group %d: %v", pid, err)
	}
	for _, p := range tree {
		_ = p.SendSignal(sig)
	}
}
