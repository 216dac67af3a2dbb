package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/nvandessel/cambtest/internal/constants"
	"github.com/nvandessel/cambtest/internal/logging"
	"github.com/nvandessel/cambtest/internal/numdiff"
	"github.com/nvandessel/cambtest/internal/report"
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <current> <reference>",
		Short: "Compare two output directories within a numeric tolerance",
		Long: `Compare the output files of two directories. Byte-identical files match;
other files are compared value by value and match when every value differs by
less than the tolerance. Exits 1 when any file is missing on one side, differs,
or cannot be parsed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			verbose, _ := cmd.Flags().GetBool("verbose")
			tolerance, _ := cmd.Flags().GetFloat64("diff-tolerance")
			level, _ := cmd.Flags().GetString("log-level")

			if math.IsNaN(tolerance) || tolerance <= 0 {
				return fmt.Errorf("diff tolerance must be positive, got %v", tolerance)
			}

			rep, err := numdiff.Comparer{Tolerance: tolerance, Logger: logging.NewLogger(level, cmd.ErrOrStderr())}.
				Compare(args[0], args[1])
			if err != nil {
				return err
			}

			if jsonOut {
				if err := writeJSON(cmd, rep); err != nil {
					return err
				}
			} else {
				report.Diff(cmd.OutOrStdout(), rep, verbose)
			}
			if !rep.Passed() {
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().Float64("diff-tolerance", constants.DefaultDiffTolerance, "Absolute tolerance for the numeric diff")
	cmd.Flags().Bool("verbose", false, "Print where each mismatching file differs")
	return cmd
}
