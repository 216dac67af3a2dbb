// Package procrun runs the simulation executable as a child process.
package procrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// TimeoutExitCode is reported when a run is killed for exceeding its timeout.
const TimeoutExitCode = 124

// Runner executes `<executable> <config>` directly, without a shell.
// Stdout and stderr are captured together.
type Runner struct {
	// Dir is the working directory of the child. Empty = inherit.
	Dir string

	// Timeout bounds each run. Zero means no limit.
	Timeout time.Duration

	// Env is appended to the inherited environment.
	Env []string
}

// Run starts executable with configPath as its only argument and waits for
// it. A non-zero exit is reported through exitCode, not err; err is set only
// when the process could not be started.
func (r Runner) Run(ctx context.Context, executable, configPath string) ([]byte, int, error) {
	if strings.TrimSpace(executable) == "" {
		return nil, -1, errors.New("no executable configured")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	// #nosec G204 -- the executable is chosen by the operator running the suite.
	cmd := exec.CommandContext(ctx, executable, configPath)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	killGroup(cmd)
	// Grandchildren that survive the kill may still hold the output pipe.
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, -1, fmt.Errorf("starting %s: %w", executable, err)
	}
	waitErr := cmd.Wait()
	return out.Bytes(), exitCode(waitErr, ctx.Err()), nil
}

// waitDelay bounds how long Wait waits for output after the process exits
// or is killed.
const waitDelay = 2 * time.Second

// exitCode maps the result of Wait to the reported exit code. A clean exit
// wins over an expired deadline.
func exitCode(waitErr, ctxErr error) int {
	if waitErr == nil {
		return 0
	}
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return TimeoutExitCode
	}
	var ee *exec.ExitError
	if errors.As(waitErr, &ee) && ee.ProcessState != nil {
		if code := ee.ProcessState.ExitCode(); code >= 0 {
			return code
		}
	}
	// Killed by a signal, or output copying failed.
	return 1
}

// IsExecutable reports whether path names an existing executable file.
func IsExecutable(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	if !strings.ContainsRune(path, os.PathSeparator) && !strings.ContainsRune(path, '/') {
		if _, err := exec.LookPath(path); err == nil {
			return true
		}
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
