package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/cambtest/internal/config"
	"github.com/nvandessel/cambtest/internal/report"
)

func newOverlaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlays",
		Short: "List the overlays the rule catalogue generates",
		Long: `List the name of every overlay the built-in CAMB table (or the catalogue
given with --rules) generates, in generation order. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			directives, _ := cmd.Flags().GetBool("directives")
			rules, _ := cmd.Flags().GetString("rules")

			cat, err := loadCatalogue(&config.Config{Rules: rules})
			if err != nil {
				return err
			}
			overlays, err := cat.Generate()
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"count":    len(overlays),
					"overlays": overlays,
				})
			}
			report.Overlays(cmd.OutOrStdout(), overlays, directives)
			return nil
		},
	}
	cmd.Flags().String("rules", "", "YAML or HCL rule catalogue replacing the built-in overlay table")
	cmd.Flags().BoolP("directives", "d", false, "Print each overlay's directives")
	return cmd
}
