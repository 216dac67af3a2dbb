package overlay

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadCatalogue reads a rule catalogue from a YAML (.yaml, .yml) or HCL
// (.hcl) file. Unlike the built-in catalogue, a catalogue file is operator
// input, so every problem is returned as an error.
func LoadCatalogue(path string) (Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("reading rule catalogue: %w", err)
	}

	var cat Catalogue
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cat, err = ParseYAML(data)
	case ".hcl":
		cat, err = ParseHCL(data, path)
	default:
		return Catalogue{}, fmt.Errorf("unsupported rule catalogue extension %q (want .yaml, .yml or .hcl)", ext)
	}
	if err != nil {
		return Catalogue{}, fmt.Errorf("parsing rule catalogue %s: %w", filepath.Base(path), err)
	}

	// Surface malformed rules at load time rather than at generation time.
	if _, err := cat.Generate(); err != nil {
		return Catalogue{}, fmt.Errorf("validating rule catalogue %s: %w", filepath.Base(path), err)
	}
	return cat, nil
}
