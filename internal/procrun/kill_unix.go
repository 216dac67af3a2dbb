//go:build !windows

package procrun

import (
	"os/exec"
	"syscall"
)

// killGroup starts the child in its own process group and makes
// cancellation kill the whole group, so helpers it forked die with it.
func killGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
