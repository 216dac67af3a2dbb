// Package orchestrator runs the simulation executable against each
// materialized configuration in turn and records what every run produced.
//
// Runs are strictly sequential. The only evidence of success the
// orchestrator trusts is new files appearing in the output directory: a run
// that exits 0 but writes nothing is still a failure. Output content is never
// inspected here; that is the diff engine's job.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/cambtest/internal/logging"
	"github.com/nvandessel/cambtest/internal/materialize"
)

// Runner executes the simulation once. exitCode carries the process status
// and output whatever it printed, also for failing runs. err is reserved for
// runs that could not be started at all.
type Runner interface {
	Run(ctx context.Context, executable, configPath string) (output []byte, exitCode int, err error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, executable, configPath string) ([]byte, int, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, executable, configPath string) ([]byte, int, error) {
	return f(ctx, executable, configPath)
}

// Options configures RunAll.
type Options struct {
	// Executable is passed to the Runner unchanged.
	Executable string

	// OutputDir is where the executable writes its outputs.
	OutputDir string

	// Clean removes previous contents of OutputDir before the batch starts.
	// Without it a non-empty OutputDir is a precondition failure.
	Clean bool

	// OnStart is called before each config runs. Optional.
	OnStart func(cfg materialize.Config)

	// OnResult is called after each config ran. Optional.
	OnResult func(res Result)

	// Now returns the current time. nil = time.Now.
	Now func() time.Time

	Logger *slog.Logger
	Events *logging.EventLogger
}

// Result is the immutable record of one run.
type Result struct {
	OverlayName string        `json:"overlay_name"`
	ConfigPath  string        `json:"config_path"`
	Duration    time.Duration `json:"duration_ns"`
	ExitCode    int           `json:"exit_code"`

	// Produced is the change in output file count caused by this run.
	Produced int `json:"produced"`

	// Output is the captured output of the executable.
	Output []byte `json:"-"`

	// Err is set when the executable could not be started.
	Err error `json:"-"`

	// Failed is true on a non-zero exit code, a start error, or when the
	// output file count did not increase.
	Failed bool `json:"failed"`
}

// Reason describes why a run failed, or returns "" for a successful run.
func (r Result) Reason() string {
	switch {
	case !r.Failed:
		return ""
	case r.Err != nil:
		return fmt.Sprintf("could not start: %v", r.Err)
	case r.ExitCode != 0 && r.Produced <= 0:
		return fmt.Sprintf("exit code %d, no files produced", r.ExitCode)
	case r.ExitCode != 0:
		return fmt.Sprintf("exit code %d", r.ExitCode)
	default:
		return "no files produced"
	}
}

// Report aggregates a batch.
type Report struct {
	Results []Result      `json:"results"`
	Errors  int           `json:"errors"`
	Failing []string      `json:"failing"`
	Elapsed time.Duration `json:"elapsed_ns"`

	// Interrupted is true when the context was cancelled between runs.
	Interrupted bool `json:"interrupted,omitempty"`
}

// RunAll runs every config in order against runner. Individual failures are
// recorded and the batch continues. RunAll returns an error only when the
// output directory precondition fails, the output directory cannot be
// scanned, or ctx is cancelled; in the last two cases the partial report is
// returned alongside the error.
func RunAll(ctx context.Context, configs []materialize.Config, runner Runner, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	if err := PrepareOutputDir(opts.OutputDir, opts.Clean); err != nil {
		return nil, err
	}
	files, err := CountOutputFiles(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	logger.Info("starting run batch", "configs", len(configs), "executable", opts.Executable)
	opts.Events.Emit("run_start", "configs", len(configs), "executable", opts.Executable, "output_dir", opts.OutputDir)

	report := &Report{Results: make([]Result, 0, len(configs))}
	start := now()
	defer func() { report.Elapsed = now().Sub(start) }()

	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			logger.Warn("run batch interrupted", "completed", len(report.Results), "remaining", len(configs)-len(report.Results))
			return report, fmt.Errorf("run batch interrupted: %w", err)
		}
		if opts.OnStart != nil {
			opts.OnStart(cfg)
		}

		runStart := now()
		// A run in flight is never interrupted; cancellation only stops the
		// loop before the next config.
		output, code, runErr := runner.Run(context.WithoutCancel(ctx), opts.Executable, cfg.Path)
		res := Result{
			OverlayName: cfg.OverlayName,
			ConfigPath:  cfg.Path,
			Duration:    now().Sub(runStart),
			ExitCode:    code,
			Output:      output,
			Err:         runErr,
		}

		nfiles, err := CountOutputFiles(opts.OutputDir)
		if err != nil {
			return report, err
		}
		res.Produced = nfiles - files
		res.Failed = runErr != nil || code != 0 || nfiles <= files
		files = nfiles

		report.Results = append(report.Results, res)
		if res.Failed {
			report.Errors++
			report.Failing = append(report.Failing, cfg.OverlayName)
			logger.Debug("overlay failed", "overlay", cfg.OverlayName, "reason", res.Reason())
		}
		logger.Log(ctx, logging.LevelTrace, "run output", "overlay", cfg.OverlayName, "output", string(output))
		opts.Events.Emit("overlay_result",
			"overlay", res.OverlayName,
			"exit_code", res.ExitCode,
			"produced", res.Produced,
			"duration_ms", res.Duration.Milliseconds(),
			"failed", res.Failed)

		if opts.OnResult != nil {
			opts.OnResult(res)
		}
	}

	logger.Info("run batch finished", "errors", report.Errors)
	opts.Events.Emit("run_done", "errors", report.Errors, "failing", report.Failing)
	return report, nil
}
