package procrun

import (
	"context"
	"errors"
	"testing"
)

func TestExitCode(t *testing.T) {
	failed := errors.New("copying output: broken pipe")

	tests := []struct {
		name    string
		waitErr error
		ctxErr  error
		want    int
	}{
		{"clean exit", nil, nil, 0},
		{"clean exit right at the deadline", nil, context.DeadlineExceeded, 0},
		{"killed at the deadline", failed, context.DeadlineExceeded, TimeoutExitCode},
		{"parent cancelled", failed, context.Canceled, 1},
		{"non-exit error", failed, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.waitErr, tt.ctxErr); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
