//go:build !windows

package procrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fakecamb.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestRunner_Success(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "echo \"using $1\"\necho warn >&2\n")

	out, code, err := Runner{}.Run(context.Background(), script, "params_base.ini")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(string(out), "using params_base.ini") || !strings.Contains(string(out), "warn") {
		t.Errorf("combined output = %q", out)
	}
}

func TestRunner_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "echo boom\nexit 3\n")

	out, code, err := Runner{}.Run(context.Background(), script, "x.ini")
	if err != nil {
		t.Fatalf("a non-zero exit must not be a start error: %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if strings.TrimSpace(string(out)) != "boom" {
		t.Errorf("output = %q, want boom", out)
	}
}

func TestRunner_StartFailure(t *testing.T) {
	_, code, err := Runner{}.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), "x.ini")
	if err == nil {
		t.Fatal("expected start error for a missing executable")
	}
	if code != -1 {
		t.Errorf("exit code = %d, want -1", code)
	}
}

func TestRunner_EmptyExecutable(t *testing.T) {
	if _, _, err := (Runner{}).Run(context.Background(), " ", "x.ini"); err == nil {
		t.Fatal("expected error for empty executable")
	}
}

func TestRunner_Timeout(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "exec sleep 5\n")

	_, code, err := Runner{Timeout: 100 * time.Millisecond}.Run(context.Background(), script, "x.ini")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != TimeoutExitCode {
		t.Errorf("exit code = %d, want %d", code, TimeoutExitCode)
	}
}

func TestRunner_TimeoutKillsForkedChildren(t *testing.T) {
	dir := t.TempDir()
	// Without exec, sh forks sleep, which inherits the output pipe.
	script := writeScript(t, dir, "sleep 5\necho done\n")

	start := time.Now()
	out, code, err := Runner{Timeout: 200 * time.Millisecond}.Run(context.Background(), script, "x.ini")
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != TimeoutExitCode {
		t.Errorf("exit code = %d, want %d", code, TimeoutExitCode)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Run returned after %v; forked child outlived the timeout", elapsed)
	}
	if strings.Contains(string(out), "done") {
		t.Errorf("script should not have finished, output %q", out)
	}
}

func TestRunner_TimeoutNotHitReportsExitCode(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "exit 0\n")

	_, code, err := Runner{Timeout: time.Minute}.Run(context.Background(), script, "x.ini")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestRunner_DirAndEnv(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "pwd\necho \"$CAMB_EXTRA\"\n")

	out, _, err := Runner{Dir: dir, Env: []string{"CAMB_EXTRA=hello"}}.Run(context.Background(), script, "x.ini")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	if !strings.Contains(string(out), resolved) && !strings.Contains(string(out), dir) {
		t.Errorf("output %q does not show working dir %s", out, dir)
	}
	if !strings.Contains(string(out), "hello") {
		t.Errorf("output %q does not show env", out)
	}
}

func TestIsExecutable(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "true\n")
	plain := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(plain, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{script, true},
		{plain, false},
		{dir, false},
		{filepath.Join(dir, "missing"), false},
		{"", false},
		{"sh", true},
	}
	for _, tt := range tests {
		if got := IsExecutable(tt.path); got != tt.want {
			t.Errorf("IsExecutable(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
