//go:build windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// setDetached starts the child in a new process group so console control
// events sent to the launcher do not reach it.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// terminate kills the child. Windows has no SIGTERM equivalent for
// arbitrary processes.
func terminate(p *os.Process) error {
	return p.Kill()
}
