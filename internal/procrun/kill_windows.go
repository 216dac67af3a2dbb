//go:build windows

package procrun

import "os/exec"

// killGroup is a no-op on Windows; cancellation kills the direct child and
// WaitDelay releases the output pipes.
func killGroup(cmd *exec.Cmd) {}
