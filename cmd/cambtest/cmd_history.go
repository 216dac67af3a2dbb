package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/cambtest/internal/history"
	"github.com/nvandessel/cambtest/internal/report"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <ini_dir>",
		Short: "List recorded runs and diffs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			showID, _ := cmd.Flags().GetInt64("show")
			prune, _ := cmd.Flags().GetBool("prune")

			cfg, err := loadConfig(cmd, args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.History.Limit
			}
			if f := cmd.Flags().Lookup("keep"); f.Changed {
				cfg.History.Keep, _ = cmd.Flags().GetInt("keep")
			}
			if f := cmd.Flags().Lookup("max-age"); f.Changed {
				cfg.History.MaxAge = f.Value.String()
			}
			if prune {
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			store, err := history.Open(ctx, cfg.StateDir())
			if err != nil {
				return fmt.Errorf("opening run history: %w", err)
			}
			defer store.Close()

			if prune {
				policy := cfg.History.Retention()
				if policy == nil {
					return fmt.Errorf("nothing to prune by: set --keep or --max-age (or history.keep / history.max_age)")
				}
				res, err := store.Prune(ctx, policy)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d runs and %d diffs\n", res.Runs, res.Diffs)
				return nil
			}

			if showID > 0 {
				rep, err := store.LoadDiff(ctx, showID)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, rep)
				}
				report.Diff(cmd.OutOrStdout(), rep, true)
				return nil
			}

			runs, err := store.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			diffs, err := store.RecentDiffs(ctx, limit)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"runs":  runs,
					"diffs": diffs,
				})
			}
			report.History(cmd.OutOrStdout(), runs, diffs)
			return nil
		},
	}
	cmd.Flags().Int("limit", 0, "Number of runs and diffs to list (default from config)")
	cmd.Flags().Int64("show", 0, "Print the stored diff report with this id")
	cmd.Flags().Bool("prune", false, "Delete runs and diffs outside the retention settings")
	cmd.Flags().Int("keep", 0, "With --prune, keep this many of the newest runs and diffs")
	cmd.Flags().String("max-age", "", "With --prune, also keep records younger than this (e.g. 30d, 2w)")
	return cmd
}
