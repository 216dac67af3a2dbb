package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/cambtest/internal/history"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.Prog != "./camb" {
		t.Errorf("expected Prog './camb', got '%s'", config.Prog)
	}
	if config.BaseSettings != "params.ini" {
		t.Errorf("expected BaseSettings 'params.ini', got '%s'", config.BaseSettings)
	}
	if config.OutFilesDir != "test_outputs" {
		t.Errorf("expected OutFilesDir 'test_outputs', got '%s'", config.OutFilesDir)
	}
	if config.DiffTolerance != 1e-5 {
		t.Errorf("expected DiffTolerance 1e-5, got %g", config.DiffTolerance)
	}
	if config.Run.Timeout != 0 {
		t.Errorf("expected no run timeout by default, got %v", config.Run.Timeout)
	}

	// Logging defaults
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}

	// History defaults
	if !config.History.Enabled {
		t.Error("expected History.Enabled to be true by default")
	}
	if config.History.Limit != 10 {
		t.Errorf("expected History.Limit 10, got %d", config.History.Limit)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cambtest.yaml")

	configContent := `
prog: /opt/camb/camb
base_settings: inifiles/params.ini
out_files_dir: outputs
diff_tolerance: 1e-4
rules: rules.hcl

run:
  timeout: 10m
  env:
    OMP_NUM_THREADS: "4"

history:
  enabled: false
  limit: 5
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Prog != "/opt/camb/camb" {
		t.Errorf("expected Prog '/opt/camb/camb', got '%s'", config.Prog)
	}
	if config.BaseSettings != "inifiles/params.ini" {
		t.Errorf("expected BaseSettings 'inifiles/params.ini', got '%s'", config.BaseSettings)
	}
	if config.OutFilesDir != "outputs" {
		t.Errorf("expected OutFilesDir 'outputs', got '%s'", config.OutFilesDir)
	}
	if config.DiffTolerance != 1e-4 {
		t.Errorf("expected DiffTolerance 1e-4, got %g", config.DiffTolerance)
	}
	if config.Rules != filepath.Join(tmpDir, "rules.hcl") {
		t.Errorf("expected Rules relative to the config file, got '%s'", config.Rules)
	}
	if config.Run.Timeout != 10*time.Minute {
		t.Errorf("expected Timeout 10m, got %v", config.Run.Timeout)
	}
	if config.History.Enabled {
		t.Error("expected History.Enabled to be false")
	}
	if config.History.Limit != 5 {
		t.Errorf("expected History.Limit 5, got %d", config.History.Limit)
	}
	// Unset keys keep their defaults.
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cambtest.yaml")

	configContent := `
run:
  env:
    CAMB_DATA: ${TEST_CAMB_DATA}/hyrec
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("TEST_CAMB_DATA", "/data")

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Run.Env["CAMB_DATA"] != "/data/hyrec" {
		t.Errorf("expected CAMB_DATA '/data/hyrec', got '%s'", config.Run.Env["CAMB_DATA"])
	}
	config.IniDir = tmpDir
	if env := strings.Join(config.RunEnv(), ";"); env != "CAMB_DATA=/data/hyrec" {
		t.Errorf("RunEnv() = %q", env)
	}
}

func TestLoad_DiscoversFileInIniDir(t *testing.T) {
	iniDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(iniDir, "cambtest.yaml"), []byte("prog: ./camb_debug\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := Load(iniDir, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Prog != "./camb_debug" {
		t.Errorf("expected Prog './camb_debug', got '%s'", config.Prog)
	}
	if config.IniDir != iniDir {
		t.Errorf("expected IniDir %s, got %s", iniDir, config.IniDir)
	}
}

func TestLoad_NoFile(t *testing.T) {
	iniDir := t.TempDir()
	config, err := Load(iniDir, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Prog != "./camb" {
		t.Errorf("expected default Prog, got '%s'", config.Prog)
	}

	if _, err := Load(iniDir, filepath.Join(iniDir, "missing.yaml")); err == nil {
		t.Error("expected error for an explicit config path that does not exist")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CAMBTEST_PROG", "/usr/local/bin/camb")
	t.Setenv("CAMBTEST_BASE_SETTINGS", "base.ini")
	t.Setenv("CAMBTEST_OUT_FILES_DIR", "out2")
	t.Setenv("CAMBTEST_DIFF_TOLERANCE", "0.001")
	t.Setenv("CAMBTEST_HISTORY", "false")

	config := Default()
	applyEnvOverrides(config)

	if config.Prog != "/usr/local/bin/camb" {
		t.Errorf("expected Prog '/usr/local/bin/camb', got '%s'", config.Prog)
	}
	if config.BaseSettings != "base.ini" {
		t.Errorf("expected BaseSettings 'base.ini', got '%s'", config.BaseSettings)
	}
	if config.OutFilesDir != "out2" {
		t.Errorf("expected OutFilesDir 'out2', got '%s'", config.OutFilesDir)
	}
	if config.DiffTolerance != 0.001 {
		t.Errorf("expected DiffTolerance 0.001, got %g", config.DiffTolerance)
	}
	if config.History.Enabled {
		t.Error("expected History.Enabled to be false")
	}
}

func TestEnvOverrides_BadToleranceIgnored(t *testing.T) {
	t.Setenv("CAMBTEST_DIFF_TOLERANCE", "tiny")

	config := Default()
	applyEnvOverrides(config)

	if config.DiffTolerance != 1e-5 {
		t.Errorf("expected DiffTolerance to stay 1e-5, got %g", config.DiffTolerance)
	}
}

func TestEnvOverrides_LogLevel(t *testing.T) {
	t.Setenv("CAMBTEST_LOG_LEVEL", "debug")

	config := Default()
	applyEnvOverrides(config)

	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	config := Default()
	config.IniDir = t.TempDir()
	return config
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig(t).Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"no ini dir", func(c *Config) { c.IniDir = "" }, "ini directory"},
		{"no prog", func(c *Config) { c.Prog = " " }, "prog"},
		{"no base settings", func(c *Config) { c.BaseSettings = "" }, "base_settings"},
		{"zero tolerance", func(c *Config) { c.DiffTolerance = 0 }, "diff_tolerance"},
		{"negative tolerance", func(c *Config) { c.DiffTolerance = -1e-5 }, "diff_tolerance"},
		{"negative timeout", func(c *Config) { c.Run.Timeout = -time.Second }, "timeout"},
		{"negative history limit", func(c *Config) { c.History.Limit = -1 }, "history limit"},
		{"negative history keep", func(c *Config) { c.History.Keep = -1 }, "history keep"},
		{"bad history max age", func(c *Config) { c.History.MaxAge = "3y" }, "history max_age"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"no out dir", func(c *Config) { c.OutFilesDir = "" }, "out_files_dir"},
		{"out dir escapes ini dir", func(c *Config) { c.OutFilesDir = "../elsewhere" }, "outside the ini directory"},
		{"out dir is ini dir", func(c *Config) { c.OutFilesDir = "." }, "subdirectory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig(t)
			tt.mutate(config)
			err := config.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ValidLogLevels(t *testing.T) {
	validLevels := []string{"", "info", "debug", "trace"}

	for _, level := range validLevels {
		t.Run(level, func(t *testing.T) {
			config := validConfig(t)
			config.Logging.Level = level
			if err := config.Validate(); err != nil {
				t.Errorf("expected log level '%s' to be valid, got error: %v", level, err)
			}
		})
	}
}

func TestDirs(t *testing.T) {
	config := Default()
	config.IniDir = "/work/inis"

	if got := config.OutputDir(); got != filepath.Join("/work/inis", "test_outputs") {
		t.Errorf("OutputDir() = %s", got)
	}
	if got := config.StateDir(); got != filepath.Join("/work/inis", ".cambtest") {
		t.Errorf("StateDir() = %s", got)
	}
	if got := config.ReferenceDir("ref_outputs"); got != filepath.Join("/work/inis", "ref_outputs") {
		t.Errorf("ReferenceDir(relative) = %s", got)
	}
	if got := config.ReferenceDir("/abs/ref"); got != "/abs/ref" {
		t.Errorf("ReferenceDir(absolute) = %s", got)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/cambtest.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cambtest.yaml")

	invalidYAML := `
run:
  env: [invalid yaml
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestHistoryConfig_Retention(t *testing.T) {
	if p := (HistoryConfig{}).Retention(); p != nil {
		t.Errorf("expected no policy by default, got %T", p)
	}
	if _, ok := (HistoryConfig{Keep: 5}).Retention().(*history.CountPolicy); !ok {
		t.Error("expected a count policy for keep")
	}
	if _, ok := (HistoryConfig{MaxAge: "30d"}).Retention().(*history.AgePolicy); !ok {
		t.Error("expected an age policy for max_age")
	}
	if _, ok := (HistoryConfig{Keep: 5, MaxAge: "2w"}).Retention().(*history.CompositePolicy); !ok {
		t.Error("expected a composite policy for keep and max_age")
	}
}
