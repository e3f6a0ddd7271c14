//go:build !windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// setDetached puts the child in its own process group so signals sent to
// the launcher's group (Ctrl-C in a terminal) do not reach it.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGTERM to the child only, not to its group.
func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
