package orchestrator

import (
	"fmt"
	"os"

	"github.com/nvandessel/cambtest/internal/pathutil"
)

// PreconditionError is returned when the output directory already holds
// files and the caller did not ask for it to be cleaned.
type PreconditionError struct {
	Dir   string
	Files []string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("Output directory is not empty (run with --clean to force delete): %s", pathutil.RedactPath(e.Dir))
}

// PrepareOutputDir makes sure dir exists and holds no outputs. With clean
// set, any existing contents are removed first.
func PrepareOutputDir(dir string, clean bool) error {
	if clean {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("cleaning output directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	files, err := pathutil.ListOutputFiles(dir)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		return &PreconditionError{Dir: dir, Files: files}
	}
	return nil
}

// CountOutputFiles counts the output files directly under dir.
func CountOutputFiles(dir string) (int, error) {
	files, err := pathutil.ListOutputFiles(dir)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}
