// Package report renders run and diff results for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvandessel/cambtest/internal/history"
	"github.com/nvandessel/cambtest/internal/materialize"
	"github.com/nvandessel/cambtest/internal/numdiff"
	"github.com/nvandessel/cambtest/internal/orchestrator"
	"github.com/nvandessel/cambtest/internal/overlay"
)

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RunStart prints the line announcing a config before it runs.
func RunStart(w io.Writer, cfg materialize.Config) {
	fmt.Fprintf(w, "%s...\n", filepath.Base(cfg.Path))
}

// RunResult prints the outcome of one run.
func RunResult(w io.Writer, res orchestrator.Result) {
	if res.Err != nil {
		fmt.Fprintf(w, "error %v\n", res.Err)
	} else if res.ExitCode != 0 {
		fmt.Fprintf(w, "error %d\n", res.ExitCode)
	}
	if res.Produced > 0 {
		fmt.Fprintf(w, "..OK, produced %d files in %s\n", res.Produced, seconds(res.Duration))
	} else {
		fmt.Fprintf(w, "..no files in %s\n", seconds(res.Duration))
	}
}

// RunSummary prints the totals of a run batch.
func RunSummary(w io.Writer, rep *orchestrator.Report) {
	if rep.Interrupted {
		fmt.Fprintf(w, "Interrupted after %d configs\n", len(rep.Results))
	}
	fmt.Fprintf(w, "Done, %d errors in %s (outputs not checked)\n", rep.Errors, seconds(rep.Elapsed))
	if rep.Errors > 0 {
		fmt.Fprintf(w, "Fails in : %s\n", strings.Join(rep.Failing, ", "))
	}
}

// Diff prints a diff report. With verbose set, the location of each
// mismatch is printed as well.
func Diff(w io.Writer, rep *numdiff.Report, verbose bool) {
	missing := rep.MissingOrExtra()
	if len(missing) > 0 {
		fmt.Fprintln(w, "Missing/Extra files:")
		for _, f := range missing {
			side := "current"
			if f.Verdict == numdiff.MissingInReference {
				side = "reference"
			}
			fmt.Fprintf(w, "  %s (missing in %s)\n", f.Name, side)
		}
	}

	mismatches := filter(rep, numdiff.NumericMismatch)
	if len(mismatches) > 0 {
		fmt.Fprintln(w, "Files do not match:")
		for _, f := range mismatches {
			fmt.Fprintf(w, "  %s\n", f.Name)
			if verbose && f.Detail != "" {
				fmt.Fprintf(w, "    %s\n", f.Detail)
			}
		}
	}

	unparsable := filter(rep, numdiff.ParseFailure)
	if len(unparsable) > 0 {
		fmt.Fprintln(w, "Files could not be parsed:")
		for _, f := range unparsable {
			fmt.Fprintf(w, "  %s: %s\n", f.Name, f.Detail)
		}
	}

	if verbose {
		if n := rep.Count(numdiff.NumericMatch); n > 0 {
			fmt.Fprintf(w, "%d files differ only within tolerance %g\n", n, rep.Tolerance)
		}
	}

	fmt.Fprintf(w, "Done with %d mismatches and %d extra/missing files\n", len(mismatches), len(missing))
	if len(unparsable) > 0 {
		fmt.Fprintf(w, "%d files could not be parsed\n", len(unparsable))
	}
}

// Overlays lists overlay names, one per line, optionally followed by their
// directives.
func Overlays(w io.Writer, overlays []overlay.Overlay, directives bool) {
	for _, o := range overlays {
		fmt.Fprintln(w, o.Name)
		if !directives {
			continue
		}
		for _, d := range o.Directives {
			fmt.Fprintf(w, "    %s\n", d)
		}
	}
}

// History lists recorded runs and diffs.
func History(w io.Writer, runs []history.RunSummary, diffs []history.DiffSummary) {
	fmt.Fprintln(w, "Runs:")
	if len(runs) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, r := range runs {
		status := "ok"
		if r.Errors > 0 {
			status = fmt.Sprintf("%d errors", r.Errors)
		}
		if r.Interrupted {
			status += ", interrupted"
		}
		fmt.Fprintf(w, "  #%d %s  %d configs  %s  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Configs, seconds(r.Elapsed), status)
		if len(r.Failing) > 0 {
			fmt.Fprintf(w, "      fails in: %s\n", strings.Join(r.Failing, ", "))
		}
	}

	fmt.Fprintln(w, "Diffs:")
	if len(diffs) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, d := range diffs {
		status := "pass"
		if !d.Passed {
			status = "FAIL"
		}
		digest := d.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		fmt.Fprintf(w, "  #%d %s  %s  %d mismatches, %d extra/missing, %d unparsable  (tol %g, %s)\n",
			d.ID, d.ComparedAt.Local().Format(time.DateTime), status,
			d.Mismatches, d.Missing, d.ParseErrors, d.Tolerance, digest)
	}
}

func filter(rep *numdiff.Report, v numdiff.Verdict) []numdiff.FileResult {
	var out []numdiff.FileResult
	for _, f := range rep.Files {
		if f.Verdict == v {
			out = append(out, f)
		}
	}
	return out
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
