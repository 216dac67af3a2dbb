//go:build !windows

package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/cambtest/internal/procrun"
)

func TestRunAll_InterruptWaitsForChild(t *testing.T) {
	tmpDir := t.TempDir()
	out := filepath.Join(tmpDir, "out")
	marker := filepath.Join(out, "slow_done.dat")
	script := filepath.Join(tmpDir, "camb.sh")
	body := "#!/bin/sh\nsleep 0.5\ntouch \"" + marker + "\"\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	timer := time.AfterFunc(100*time.Millisecond, cancel)
	defer timer.Stop()

	report, err := RunAll(ctx, configsFor(tmpDir, "slow", "never"), procrun.Runner{}, Options{
		Executable: script,
		OutputDir:  out,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, statErr := os.Stat(marker); statErr != nil {
		t.Fatalf("child was killed before finishing: %v", statErr)
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(report.Results))
	}
	if res := report.Results[0]; res.Failed || res.ExitCode != 0 || res.Produced != 1 {
		t.Errorf("interrupted run should complete normally, got %+v", res)
	}
}
