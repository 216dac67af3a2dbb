// Package materialize turns overlays into configuration files on disk.
//
// Every generated file inherits from one staged copy of the base settings
// file and points the simulation at its own output root, so each config maps
// to exactly one set of output files.
package materialize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvandessel/cambtest/internal/constants"
	"github.com/nvandessel/cambtest/internal/overlay"
	"github.com/nvandessel/cambtest/internal/pathutil"
)

// Config is one configuration artifact written (or found) on disk.
type Config struct {
	// OverlayName is the overlay the file was generated from.
	OverlayName string `json:"overlay_name"`

	// Path is the configuration file handed to the executable.
	Path string `json:"path"`

	// OutputRoot is the prefix the executable writes its outputs under.
	OutputRoot string `json:"output_root"`
}

// FileSystemError reports a configuration problem found while staging or
// writing files. It is fatal: no run starts after it.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, pathutil.RedactPath(e.Path), e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// StagedBaseName returns the file name the base settings are staged under.
func StagedBaseName(basePath string) string {
	return constants.InheritPrefix + filepath.Base(basePath)
}

// Materialize writes one configuration file per overlay into targetDir.
//
// The base settings file is copied into targetDir once per call; repeated
// calls overwrite both the staged copy and the configs. Each file reads:
//
//	output_root=<abs outputDir>/<overlay name>
//	DEFAULT(inheritbase_<base file name>)
//	<overlay directives, in order>
func Materialize(overlays []overlay.Overlay, basePath, targetDir, outputDir string) ([]Config, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, &FileSystemError{Op: "create target directory", Path: targetDir, Err: err}
	}

	staged := StagedBaseName(basePath)
	if err := copyFile(basePath, filepath.Join(targetDir, staged)); err != nil {
		return nil, err
	}

	outAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, &FileSystemError{Op: "resolve output directory", Path: outputDir, Err: err}
	}

	configs := make([]Config, 0, len(overlays))
	for _, o := range overlays {
		if !pathutil.IsSafeName(o.Name) {
			return nil, fmt.Errorf("overlay name %q is not a safe file name", o.Name)
		}
		cfg := Config{
			OverlayName: o.Name,
			Path:        filepath.Join(targetDir, o.Name+constants.ConfigExt),
			OutputRoot:  filepath.Join(outAbs, o.Name),
		}
		if err := os.WriteFile(cfg.Path, []byte(Render(cfg.OutputRoot, staged, o.Directives)), 0644); err != nil {
			return nil, &FileSystemError{Op: "write config", Path: cfg.Path, Err: err}
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Render builds the text of one configuration file. No quoting or escaping
// is applied to any line.
func Render(outputRoot, stagedBase string, directives []string) string {
	lines := make([]string, 0, len(directives)+2)
	lines = append(lines, "output_root="+outputRoot, "DEFAULT("+stagedBase+")")
	lines = append(lines, directives...)
	return strings.Join(lines, "\n") + "\n"
}

// Discover lists the configuration files already present in targetDir, for
// runs that reuse previously generated configs. The staged base settings
// file is skipped. Results are sorted by file name.
func Discover(targetDir, outputDir string) ([]Config, error) {
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return nil, &FileSystemError{Op: "read target directory", Path: targetDir, Err: err}
	}
	outAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, &FileSystemError{Op: "resolve output directory", Path: outputDir, Err: err}
	}

	var configs []Config
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != constants.ConfigExt || strings.HasPrefix(name, constants.InheritPrefix) {
			continue
		}
		overlayName := strings.TrimSuffix(name, constants.ConfigExt)
		configs = append(configs, Config{
			OverlayName: overlayName,
			Path:        filepath.Join(targetDir, name),
			OutputRoot:  filepath.Join(outAbs, overlayName),
		})
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Path < configs[j].Path })
	return configs, nil
}

func copyFile(src, dst string) error {
	srcAbs, _ := filepath.Abs(src)
	dstAbs, _ := filepath.Abs(dst)
	if srcAbs == dstAbs {
		if _, err := os.Stat(src); err != nil {
			return &FileSystemError{Op: "open base settings", Path: src, Err: err}
		}
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return &FileSystemError{Op: "open base settings", Path: src, Err: err}
	}
	defer in.Close()

	if info, err := in.Stat(); err == nil && info.IsDir() {
		return &FileSystemError{Op: "open base settings", Path: src, Err: fmt.Errorf("is a directory")}
	}

	out, err := os.Create(dst)
	if err != nil {
		return &FileSystemError{Op: "stage base settings", Path: dst, Err: err}
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &FileSystemError{Op: "stage base settings", Path: dst, Err: err}
	}
	if err := out.Close(); err != nil {
		return &FileSystemError{Op: "stage base settings", Path: dst, Err: err}
	}
	return nil
}
