// Package pathutil provides path validation and file-name helpers for the
// directories cambtest writes into.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideRoot is returned when a directory escapes its root.
	ErrOutsideRoot = errors.New("outside the ini directory")

	// ErrIsRoot is returned when a directory is the root itself.
	ErrIsRoot = errors.New("must be a subdirectory of the ini directory")
)

// RedactPath reduces a full path to .../<parent>/<basename> for compact messages.
// For example, "/home/user/camb/test_outputs" becomes ".../camb/test_outputs".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// ValidateSubdir checks that dir lies strictly below root. The output
// directory is wiped by --clean, so it may be neither root nor anything
// reached through "..", an absolute path, or a symlink leaving root.
// Neither path has to exist yet.
func ValidateSubdir(dir, root string) error {
	if dir == "" || root == "" {
		return errors.New("empty path")
	}
	if strings.ContainsRune(dir, '\x00') || strings.ContainsRune(root, '\x00') {
		return errors.New("path contains null byte")
	}

	rootReal, err := realPath(root)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", RedactPath(root), err)
	}
	dirReal, err := realPath(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", RedactPath(dir), err)
	}

	if dirReal == rootReal {
		return ErrIsRoot
	}
	// "/tmp/inis" must not contain "/tmp/inis2"
	if !strings.HasPrefix(dirReal, rootReal+string(os.PathSeparator)) {
		return fmt.Errorf("%s is %w", RedactPath(dirReal), ErrOutsideRoot)
	}
	return nil
}

// realPath makes p absolute and resolves symlinks on its deepest existing
// ancestor, keeping the not-yet-created tail as written.
func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	var tail []string
	for cur := abs; ; {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", err
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}
