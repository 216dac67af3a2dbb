package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/cambtest/internal/config"
	"github.com/nvandessel/cambtest/internal/constants"
	"github.com/nvandessel/cambtest/internal/history"
	"github.com/nvandessel/cambtest/internal/logging"
	"github.com/nvandessel/cambtest/internal/materialize"
	"github.com/nvandessel/cambtest/internal/numdiff"
	"github.com/nvandessel/cambtest/internal/orchestrator"
	"github.com/nvandessel/cambtest/internal/procrun"
	"github.com/nvandessel/cambtest/internal/report"
)

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("make-ini", false, "Generate the config files into ini_dir before running")
	f.String("out-files-dir", constants.DefaultOutFilesDir, "Output files directory, relative to ini_dir")
	f.String("base-settings", constants.DefaultBaseSettings, "Settings every generated config inherits as defaults")
	f.Bool("no-run-test", false, "Do not run the executable on the configs")
	f.String("prog", constants.DefaultProg, "Executable to run")
	f.Bool("clean", false, "Delete the output directory before running")
	f.String("diff-to", "", "Output directory to compare to, e.g. test_outputs2; only the comparison is performed")
	f.Float64("diff-tolerance", constants.DefaultDiffTolerance, "Absolute tolerance for the numeric diff")
	f.Bool("verbose", false, "Print where each mismatching file differs")
	f.String("rules", "", "YAML or HCL rule catalogue replacing the built-in overlay table")
	f.Bool("no-history", false, "Do not record this invocation in the run history")
}

// rootResult is the --json output of the root command.
type rootResult struct {
	IniDir  string               `json:"ini_dir"`
	Configs []materialize.Config `json:"configs,omitempty"`
	Run     *orchestrator.Report `json:"run,omitempty"`
	Diff    *numdiff.Report      `json:"diff,omitempty"`
	Passed  *bool                `json:"passed,omitempty"`
}

func runRoot(cmd *cobra.Command, args []string) error {
	iniDir := args[0]
	ctx := cmd.Context()
	jsonOut, _ := cmd.Flags().GetBool("json")
	makeIni, _ := cmd.Flags().GetBool("make-ini")
	noRun, _ := cmd.Flags().GetBool("no-run-test")
	clean, _ := cmd.Flags().GetBool("clean")
	diffTo, _ := cmd.Flags().GetString("diff-to")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := loadConfig(cmd, iniDir)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg.Logging.Level)

	if err := ensureDir(iniDir); err != nil {
		return &materialize.FileSystemError{Op: "create ini directory", Path: iniDir, Err: err}
	}
	events := logging.NewEventLogger(cfg.StateDir(), cfg.Logging.Level)
	defer events.Close()

	store := openHistory(ctx, cfg, logger)
	defer store.Close()

	out := cmd.OutOrStdout()
	if jsonOut {
		out = io.Discard
	}
	result := rootResult{IniDir: iniDir}

	if diffTo != "" {
		rep, err := numdiff.Comparer{Tolerance: cfg.DiffTolerance, Logger: logger, Events: events}.
			Compare(cfg.OutputDir(), cfg.ReferenceDir(diffTo))
		if err != nil {
			return err
		}
		report.Diff(out, rep, verbose)
		recordDiff(cmd, store, cfg, rep, logger)

		passed := rep.Passed()
		result.Diff, result.Passed = rep, &passed
		if jsonOut {
			if err := writeJSON(cmd, result); err != nil {
				return err
			}
		}
		if !passed {
			return errChecksFailed
		}
		return nil
	}

	var configs []materialize.Config
	if makeIni {
		cat, err := loadCatalogue(cfg)
		if err != nil {
			return err
		}
		overlays, err := cat.Generate()
		if err != nil {
			return err
		}
		configs, err = materialize.Materialize(overlays, cfg.BaseSettings, iniDir, cfg.OutputDir())
		if err != nil {
			return err
		}
		logger.Info("generated configs", "count", len(configs), "dir", iniDir)
	} else {
		configs, err = materialize.Discover(iniDir, cfg.OutputDir())
		if err != nil {
			return err
		}
	}
	result.Configs = configs

	if noRun {
		fmt.Fprintf(out, "%d config files in %s (not run)\n", len(configs), iniDir)
		if jsonOut {
			return writeJSON(cmd, result)
		}
		return nil
	}

	prog := resolveProg(cfg.Prog)
	if !procrun.IsExecutable(prog) {
		logger.Warn("executable not found or not executable; every run will fail", "prog", prog)
	}
	runner := procrun.Runner{Timeout: cfg.Run.Timeout, Env: cfg.RunEnv()}

	started := time.Now()
	rep, runErr := orchestrator.RunAll(ctx, configs, runner, orchestrator.Options{
		Executable: prog,
		OutputDir:  cfg.OutputDir(),
		Clean:      clean,
		OnStart:    func(c materialize.Config) { report.RunStart(out, c) },
		OnResult:   func(r orchestrator.Result) { report.RunResult(out, r) },
		Logger:     logger,
		Events:     events,
	})
	if rep == nil {
		// Precondition failure: nothing ran.
		return runErr
	}

	report.RunSummary(out, rep)
	recordRun(ctx, store, cfg, history.Meta{IniDir: iniDir, Executable: prog, At: started}, rep, logger)

	result.Run = rep
	if jsonOut {
		if err := writeJSON(cmd, result); err != nil {
			return err
		}
	}
	return runErr
}

// recordRun stores rep and prunes the history. It runs on a context detached
// from cancellation so an interrupted batch is still recorded.
func recordRun(ctx context.Context, store *history.Store, cfg *config.Config, meta history.Meta, rep *orchestrator.Report, logger *slog.Logger) {
	if store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if _, err := store.RecordRun(ctx, meta, rep); err != nil {
		logger.Warn("failed to record run", "error", err)
	}
	pruneHistory(ctx, store, cfg.History.Retention(), logger)
}

func recordDiff(cmd *cobra.Command, store *history.Store, cfg *config.Config, rep *numdiff.Report, logger *slog.Logger) {
	if store == nil {
		return
	}
	ctx := context.WithoutCancel(cmd.Context())
	id, digest, err := store.RecordDiff(ctx, history.Meta{IniDir: cfg.IniDir, At: time.Now()}, rep)
	if err != nil {
		logger.Warn("failed to record diff", "error", err)
		return
	}
	logger.Debug("recorded diff", "id", id, "sha256", digest)
	pruneHistory(ctx, store, cfg.History.Retention(), logger)
}
