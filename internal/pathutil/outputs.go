package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvandessel/cambtest/internal/constants"
)

// IsOutputName reports whether a file name denotes a simulation output
// rather than a configuration descriptor.
func IsOutputName(name string) bool {
	return !strings.Contains(name, constants.ConfigMarker)
}

// ListOutputFiles returns the sorted names of the output files directly
// under dir. Subdirectories and configuration descriptors are skipped;
// symlinks count when they point at a regular file.
func ListOutputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing output files in %s: %w", RedactPath(dir), err)
	}
	var names []string
	for _, e := range entries {
		if !IsOutputName(e.Name()) {
			continue
		}
		if !e.Type().IsRegular() {
			if e.Type()&os.ModeSymlink == 0 {
				continue
			}
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
