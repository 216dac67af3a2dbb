package numdiff

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/nvandessel/cambtest/internal/pathutil"
)

// ParseError reports a file that could not be read as a numeric matrix.
type ParseError struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	Token  string `json:"token,omitempty"`
	Err    error  `json:"-"`
}

func (e *ParseError) Error() string {
	file := pathutil.RedactPath(e.File)
	if e.Token != "" {
		return fmt.Sprintf("%s:%d: column %d: non-numeric token %q", file, e.Line, e.Column, e.Token)
	}
	return fmt.Sprintf("%s: %v", file, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseMatrix reads data as one row per line and one value per
// whitespace-separated token. Blank lines are empty rows; a trailing newline
// does not add a row. Values beyond float64 range become ±Inf. file is used
// in errors only.
func ParseMatrix(file string, data []byte) ([][]float64, error) {
	lines := bytes.Split(data, []byte("\n"))
	if n := len(lines); n > 0 && len(lines[n-1]) == 0 {
		lines = lines[:n-1]
	}

	mat := make([][]float64, len(lines))
	for i, line := range lines {
		fields := bytes.Fields(line)
		row := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(string(f), 64)
			if err != nil && !errors.Is(err, strconv.ErrRange) {
				return nil, &ParseError{File: file, Line: i + 1, Column: j + 1, Token: string(f), Err: err}
			}
			row[j] = v
		}
		mat[i] = row
	}
	return mat, nil
}
