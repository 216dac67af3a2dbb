// Package numdiff compares two output directories and decides, per file,
// whether the simulation's behavior changed.
//
// Files are compared byte for byte first. Files that differ are parsed as
// whitespace-separated numeric matrices and compared cell by cell within an
// absolute tolerance.
package numdiff

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/nvandessel/cambtest/internal/logging"
	"github.com/nvandessel/cambtest/internal/pathutil"
)

// Verdict classifies one file name of the compared pair.
type Verdict string

const (
	// Match means the two files are byte-identical.
	Match Verdict = "match"

	// MissingInCurrent means only the reference directory has the file.
	MissingInCurrent Verdict = "missing_in_current"

	// MissingInReference means only the current directory has the file.
	MissingInReference Verdict = "missing_in_reference"

	// NumericMatch means the bytes differ but every value agrees within the
	// tolerance.
	NumericMatch Verdict = "exact_mismatch_confirmed_numeric_equal"

	// NumericMismatch means the shapes differ or some value is off by at
	// least the tolerance.
	NumericMismatch Verdict = "numeric_mismatch"

	// ParseFailure means a file held a non-numeric token.
	ParseFailure Verdict = "parse_error"
)

// FileResult is the verdict for one file name.
type FileResult struct {
	Name    string  `json:"name"`
	Verdict Verdict `json:"verdict"`

	// Detail says where a mismatch was found. Empty unless Verdict is
	// NumericMismatch or ParseFailure.
	Detail string `json:"detail,omitempty"`

	Err *ParseError `json:"parse_error,omitempty"`
}

// Report is the outcome of one comparison.
type Report struct {
	Current   string       `json:"current"`
	Reference string       `json:"reference"`
	Tolerance float64      `json:"tolerance"`
	Files     []FileResult `json:"files"`
}

// Names returns the names of the files with verdict v, in report order.
func (r *Report) Names(v Verdict) []string {
	var names []string
	for _, f := range r.Files {
		if f.Verdict == v {
			names = append(names, f.Name)
		}
	}
	return names
}

// Count returns how many files have verdict v.
func (r *Report) Count(v Verdict) int {
	n := 0
	for _, f := range r.Files {
		if f.Verdict == v {
			n++
		}
	}
	return n
}

// MissingOrExtra returns the files present in only one directory.
func (r *Report) MissingOrExtra() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Verdict == MissingInCurrent || f.Verdict == MissingInReference {
			out = append(out, f)
		}
	}
	return out
}

// Passed reports whether the comparison found neither structural nor
// content differences.
func (r *Report) Passed() bool {
	for _, f := range r.Files {
		switch f.Verdict {
		case Match, NumericMatch:
		default:
			return false
		}
	}
	return true
}

// Comparer compares directories with a fixed tolerance.
type Comparer struct {
	// Tolerance is the absolute difference at or above which two values
	// are considered different. A cell holding NaN on either side (or Inf
	// on both) never reaches it, so such cells always match.
	Tolerance float64

	Logger *slog.Logger
	Events *logging.EventLogger
}

// Compare is shorthand for Comparer{Tolerance: tolerance}.Compare.
func Compare(current, reference string, tolerance float64) (*Report, error) {
	return Comparer{Tolerance: tolerance}.Compare(current, reference)
}

// Compare classifies every output file in the union of both directories.
// It returns an error only when the tolerance is invalid or a directory
// cannot be listed; per-file problems are verdicts. Neither directory is
// modified.
func (c Comparer) Compare(current, reference string) (*Report, error) {
	if math.IsNaN(c.Tolerance) || c.Tolerance < 0 {
		return nil, fmt.Errorf("invalid diff tolerance %v", c.Tolerance)
	}
	logger := c.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	curFiles, err := pathutil.ListOutputFiles(current)
	if err != nil {
		return nil, fmt.Errorf("reading current outputs: %w", err)
	}
	refFiles, err := pathutil.ListOutputFiles(reference)
	if err != nil {
		return nil, fmt.Errorf("reading reference outputs: %w", err)
	}

	inCur := toSet(curFiles)
	inRef := toSet(refFiles)
	union := make([]string, 0, len(curFiles)+len(refFiles))
	union = append(union, curFiles...)
	for _, name := range refFiles {
		if !inCur[name] {
			union = append(union, name)
		}
	}
	sort.Strings(union)

	report := &Report{
		Current:   current,
		Reference: reference,
		Tolerance: c.Tolerance,
		Files:     make([]FileResult, 0, len(union)),
	}
	for _, name := range union {
		var res FileResult
		switch {
		case !inCur[name]:
			res = FileResult{Name: name, Verdict: MissingInCurrent}
		case !inRef[name]:
			res = FileResult{Name: name, Verdict: MissingInReference}
		default:
			res = c.compareFile(name, filepath.Join(current, name), filepath.Join(reference, name))
		}
		report.Files = append(report.Files, res)

		if res.Verdict != Match {
			logger.Debug("file differs", "file", name, "verdict", res.Verdict, "detail", res.Detail)
		}
		c.Events.Emit("diff_file", "file", name, "verdict", string(res.Verdict), "detail", res.Detail)
	}
	return report, nil
}

func (c Comparer) compareFile(name, curPath, refPath string) FileResult {
	cur, err := os.ReadFile(curPath)
	if err != nil {
		return unreadable(name, curPath, err)
	}
	ref, err := os.ReadFile(refPath)
	if err != nil {
		return unreadable(name, refPath, err)
	}
	if bytes.Equal(cur, ref) {
		return FileResult{Name: name, Verdict: Match}
	}

	curMat, err := ParseMatrix(curPath, cur)
	if err != nil {
		return parseFailure(name, err)
	}
	refMat, err := ParseMatrix(refPath, ref)
	if err != nil {
		return parseFailure(name, err)
	}

	if detail, ok := c.equal(refMat, curMat); !ok {
		return FileResult{Name: name, Verdict: NumericMismatch, Detail: detail}
	}
	return FileResult{Name: name, Verdict: NumericMatch}
}

// equal compares ref and cur cell by cell. On the first difference it
// returns a description of it and false.
func (c Comparer) equal(ref, cur [][]float64) (string, bool) {
	if len(ref) != len(cur) {
		return fmt.Sprintf("num rows do not match (%d reference, %d current)", len(ref), len(cur)), false
	}
	for i := range ref {
		if len(ref[i]) != len(cur[i]) {
			return fmt.Sprintf("num columns do not match in row %d (%d reference, %d current)", i+1, len(ref[i]), len(cur[i])), false
		}
		for j := range ref[i] {
			o, n := ref[i][j], cur[i][j]
			if math.Abs(o-n) >= c.Tolerance {
				return fmt.Sprintf("value mismatch at %d, %d: |%g - %g| >= %g", i+1, j+1, o, n, c.Tolerance), false
			}
		}
	}
	return "", true
}

func parseFailure(name string, err error) FileResult {
	var pe *ParseError
	if !errors.As(err, &pe) {
		pe = &ParseError{File: name, Err: err}
	}
	return FileResult{Name: name, Verdict: ParseFailure, Detail: pe.Error(), Err: pe}
}

func unreadable(name, path string, err error) FileResult {
	pe := &ParseError{File: path, Err: err}
	return FileResult{Name: name, Verdict: ParseFailure, Detail: pe.Error(), Err: pe}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
