package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/cambtest/internal/config"
	"github.com/nvandessel/cambtest/internal/history"
	"github.com/nvandessel/cambtest/internal/logging"
	"github.com/nvandessel/cambtest/internal/overlay"
	"github.com/nvandessel/cambtest/internal/report"
)

// loadConfig builds the configuration for iniDir: defaults, config file,
// environment, then any flag the user set explicitly.
func loadConfig(cmd *cobra.Command, iniDir string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(iniDir, configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if f := flags.Lookup("prog"); f != nil && f.Changed {
		cfg.Prog = f.Value.String()
	}
	if f := flags.Lookup("base-settings"); f != nil && f.Changed {
		cfg.BaseSettings = f.Value.String()
	}
	if f := flags.Lookup("out-files-dir"); f != nil && f.Changed {
		cfg.OutFilesDir = f.Value.String()
	}
	if f := flags.Lookup("diff-tolerance"); f != nil && f.Changed {
		cfg.DiffTolerance, _ = flags.GetFloat64("diff-tolerance")
	}
	if f := flags.Lookup("rules"); f != nil && f.Changed {
		cfg.Rules = f.Value.String()
	}
	if f := flags.Lookup("no-history"); f != nil && f.Changed {
		if noHistory, _ := flags.GetBool("no-history"); noHistory {
			cfg.History.Enabled = false
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, level string) *slog.Logger {
	return logging.NewLogger(level, cmd.ErrOrStderr())
}

// openHistory opens the history database when enabled. Failing to open it
// is logged and otherwise ignored; history never blocks a test run.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(ctx, cfg.StateDir())
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		return nil
	}
	return store
}

// pruneHistory applies policy to the store. Like recording, it only warns on
// failure.
func pruneHistory(ctx context.Context, store *history.Store, policy history.RetentionPolicy, logger *slog.Logger) {
	if store == nil || policy == nil {
		return
	}
	res, err := store.Prune(ctx, policy)
	if err != nil {
		logger.Warn("failed to prune run history", "error", err)
		return
	}
	if res.Runs+res.Diffs > 0 {
		logger.Debug("pruned run history", "runs", res.Runs, "diffs", res.Diffs)
	}
}

// loadCatalogue returns the rule catalogue named by cfg, or the built-in
// CAMB table.
func loadCatalogue(cfg *config.Config) (overlay.Catalogue, error) {
	if cfg.Rules == "" {
		return overlay.Default(), nil
	}
	return overlay.LoadCatalogue(cfg.Rules)
}

// resolveProg makes a path-like executable absolute so runs do not depend on
// the child's working directory. Bare names are left for PATH lookup.
func resolveProg(prog string) string {
	if !strings.ContainsRune(prog, '/') && !strings.ContainsRune(prog, filepath.Separator) {
		return prog
	}
	abs, err := filepath.Abs(prog)
	if err != nil {
		return prog
	}
	return abs
}

func writeJSON(cmd *cobra.Command, v any) error {
	return report.JSON(cmd.OutOrStdout(), v)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
