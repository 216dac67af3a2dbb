package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command with args and returns stdout, stderr and
// the returned error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// isolateEnv clears the CAMBTEST_* variables so the host environment cannot
// change defaults under test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CAMBTEST_PROG", "CAMBTEST_BASE_SETTINGS", "CAMBTEST_OUT_FILES_DIR",
		"CAMBTEST_DIFF_TOLERANCE", "CAMBTEST_LOG_LEVEL", "CAMBTEST_HISTORY",
	} {
		t.Setenv(name, "")
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	want := map[string]bool{"version": false, "overlays": false, "diff": false, "history": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	for _, flag := range []string{"make-ini", "out-files-dir", "base-settings", "no-run-test", "prog",
		"clean", "diff-to", "diff-tolerance", "verbose", "rules", "no-history"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("root flag --%s missing", flag)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "cambtest version "+version+"\n" {
		t.Errorf("version output = %q", out)
	}

	out, _, err = execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json failed: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("version --json is not JSON: %v", err)
	}
	if decoded["version"] != version {
		t.Errorf("version = %q", decoded["version"])
	}
}

func TestOverlaysCmd(t *testing.T) {
	out, _, err := execute(t, "overlays")
	if err != nil {
		t.Fatalf("overlays failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 85 {
		t.Errorf("expected 85 overlays, got %d", len(lines))
	}
	if lines[0] != "base" {
		t.Errorf("first overlay = %q, want base", lines[0])
	}

	out, _, err = execute(t, "overlays", "--json")
	if err != nil {
		t.Fatalf("overlays --json failed: %v", err)
	}
	var decoded struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("overlays --json is not JSON: %v", err)
	}
	if decoded.Count != 85 {
		t.Errorf("count = %d, want 85", decoded.Count)
	}
}

func TestOverlaysCmd_BadRules(t *testing.T) {
	_, _, err := execute(t, "overlays", "--rules", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for a missing rule catalogue")
	}
}

func TestRootCmd_RequiresIniDir(t *testing.T) {
	if _, _, err := execute(t); err == nil {
		t.Fatal("expected error without ini_dir")
	}
}

func TestRootCmd_InvalidTolerance(t *testing.T) {
	isolateEnv(t)
	_, _, err := execute(t, t.TempDir(), "--diff-to", "ref", "--diff-tolerance", "0")
	if err == nil || !strings.Contains(err.Error(), "diff_tolerance") {
		t.Fatalf("expected tolerance validation error, got %v", err)
	}
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiffCmd(t *testing.T) {
	root := t.TempDir()
	cur := filepath.Join(root, "cur")
	ref := filepath.Join(root, "ref")
	writeFiles(t, cur, map[string]string{"a.dat": "1.0 2.0\n", "b.dat": "5\n"})
	writeFiles(t, ref, map[string]string{"a.dat": "1.0 2.000001\n", "b.dat": "5\n"})

	out, _, err := execute(t, "diff", cur, ref)
	if err != nil {
		t.Fatalf("diff within tolerance should pass: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Done with 0 mismatches and 0 extra/missing files") {
		t.Errorf("diff output = %q", out)
	}

	out, _, err = execute(t, "diff", cur, ref, "--diff-tolerance", "1e-7", "--verbose")
	if !errors.Is(err, errChecksFailed) {
		t.Fatalf("expected errChecksFailed, got %v", err)
	}
	if !strings.Contains(out, "Files do not match:\n  a.dat\n    value mismatch at 1, 2") {
		t.Errorf("verbose diff output = %q", out)
	}

	if _, _, err := execute(t, "diff", cur, ref, "--diff-tolerance", "-1"); err == nil {
		t.Error("expected error for negative tolerance")
	}
}
