// Package config provides unified configuration loading for cambtest.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/cambtest/internal/constants"
	"github.com/nvandessel/cambtest/internal/history"
	"github.com/nvandessel/cambtest/internal/pathutil"
)

// Config contains all cambtest configuration settings.
type Config struct {
	// IniDir is the directory configs are generated into. It comes from the
	// command line, never from the file.
	IniDir string `json:"ini_dir" yaml:"-"`

	// Prog is the simulation executable.
	Prog string `json:"prog" yaml:"prog"`

	// BaseSettings is the settings file every generated config inherits from.
	BaseSettings string `json:"base_settings" yaml:"base_settings"`

	// OutFilesDir is the output subdirectory of IniDir.
	OutFilesDir string `json:"out_files_dir" yaml:"out_files_dir"`

	// DiffTolerance is the absolute tolerance of the numeric diff.
	DiffTolerance float64 `json:"diff_tolerance" yaml:"diff_tolerance"`

	// Rules is an optional YAML or HCL rule catalogue replacing the
	// built-in overlay table.
	Rules string `json:"rules,omitempty" yaml:"rules,omitempty"`

	// Run contains settings for executing the simulation.
	Run RunConfig `json:"run" yaml:"run"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// History contains settings for the run history database.
	History HistoryConfig `json:"history" yaml:"history"`
}

// RunConfig configures how the executable is started.
type RunConfig struct {
	// Timeout bounds each run. Zero (the default) waits indefinitely.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Env is appended to the environment of every run. Values support
	// ${VAR} expansion.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// LoggingConfig configures cambtest's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event logging to .cambtest/events.jsonl.
	// "trace" additionally logs the captured output of every run.
	Level string `json:"level" yaml:"level"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	// Enabled records runs and diffs in .cambtest/history.db.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Limit is the number of entries `cambtest history` lists.
	Limit int `json:"limit" yaml:"limit"`

	// Keep prunes all but the newest Keep runs and diffs after each
	// recording. Zero keeps everything unless MaxAge is set.
	Keep int `json:"keep,omitempty" yaml:"keep,omitempty"`

	// MaxAge also keeps records younger than this ("30d", "2w", "720h").
	MaxAge string `json:"max_age,omitempty" yaml:"max_age,omitempty"`
}

// Default returns a Config with the stock CAMB test defaults.
func Default() *Config {
	return &Config{
		Prog:          constants.DefaultProg,
		BaseSettings:  constants.DefaultBaseSettings,
		OutFilesDir:   constants.DefaultOutFilesDir,
		DiffTolerance: constants.DefaultDiffTolerance,
		Logging: LoggingConfig{
			Level: "info",
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   constants.DefaultHistoryLimit,
		},
	}
}

// Load loads configuration for iniDir.
// Order: defaults -> config file -> environment variables.
// The config file is path when set, else <iniDir>/cambtest.yaml if present.
func Load(iniDir, path string) (*Config, error) {
	config := Default()

	if path == "" {
		candidate := filepath.Join(iniDir, constants.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}
	config.IniDir = iniDir

	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	for k, v := range config.Run.Env {
		config.Run.Env[k] = expandEnvVars(v)
	}

	// A relative rules path is relative to the file that names it.
	if config.Rules != "" && !filepath.IsAbs(config.Rules) {
		config.Rules = filepath.Join(filepath.Dir(path), config.Rules)
	}
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.IniDir) == "" {
		return fmt.Errorf("ini directory must be set")
	}
	if strings.TrimSpace(c.Prog) == "" {
		return fmt.Errorf("prog must be set")
	}
	if strings.TrimSpace(c.BaseSettings) == "" {
		return fmt.Errorf("base_settings must be set")
	}
	if math.IsNaN(c.DiffTolerance) || c.DiffTolerance <= 0 {
		return fmt.Errorf("diff_tolerance must be positive, got %v", c.DiffTolerance)
	}
	if c.Run.Timeout < 0 {
		return fmt.Errorf("run timeout must be non-negative, got %v", c.Run.Timeout)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history limit must be non-negative, got %d", c.History.Limit)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("history keep must be non-negative, got %d", c.History.Keep)
	}
	if c.History.MaxAge != "" {
		if _, err := history.ParseAge(c.History.MaxAge); err != nil {
			return fmt.Errorf("history max_age: %w", err)
		}
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if strings.TrimSpace(c.OutFilesDir) == "" {
		return fmt.Errorf("out_files_dir must be set")
	}
	if err := pathutil.ValidateSubdir(c.OutputDir(), c.IniDir); err != nil {
		return fmt.Errorf("out_files_dir %q: %w", c.OutFilesDir, err)
	}
	return nil
}

// OutputDir returns the directory the executable writes its outputs to.
func (c *Config) OutputDir() string {
	return filepath.Join(c.IniDir, c.OutFilesDir)
}

// ReferenceDir resolves a --diff-to value relative to the ini directory.
func (c *Config) ReferenceDir(diffTo string) string {
	if filepath.IsAbs(diffTo) {
		return diffTo
	}
	return filepath.Join(c.IniDir, diffTo)
}

// Retention returns the policy automatic pruning applies, or nil when
// neither keep nor max_age is set. Call Validate first.
func (h HistoryConfig) Retention() history.RetentionPolicy {
	var policies []history.RetentionPolicy
	if h.Keep > 0 {
		policies = append(policies, &history.CountPolicy{MaxCount: h.Keep})
	}
	if age, err := history.ParseAge(h.MaxAge); err == nil {
		policies = append(policies, &history.AgePolicy{MaxAge: age})
	}
	switch len(policies) {
	case 0:
		return nil
	case 1:
		return policies[0]
	default:
		return &history.CompositePolicy{Policies: policies}
	}
}

// StateDir returns the directory holding the history database and event log.
func (c *Config) StateDir() string {
	return filepath.Join(c.IniDir, constants.StateDirName)
}

// RunEnv returns Run.Env as sorted KEY=VALUE pairs.
func (c *Config) RunEnv() []string {
	if len(c.Run.Env) == 0 {
		return nil
	}
	env := make([]string, 0, len(c.Run.Env))
	for k, v := range c.Run.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CAMBTEST_PROG"); v != "" {
		config.Prog = v
	}
	if v := os.Getenv("CAMBTEST_BASE_SETTINGS"); v != "" {
		config.BaseSettings = v
	}
	if v := os.Getenv("CAMBTEST_OUT_FILES_DIR"); v != "" {
		config.OutFilesDir = v
	}
	if v := os.Getenv("CAMBTEST_DIFF_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.DiffTolerance = f
		}
	}
	if v := os.Getenv("CAMBTEST_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("CAMBTEST_HISTORY"); v != "" {
		config.History.Enabled = v == "true" || v == "1"
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
