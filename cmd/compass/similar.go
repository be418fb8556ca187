package main

import (
	"github.com/spf13/cobra"

	"github.com/teleportme/compass/pkg/compass"
)

func newSimilarCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "similar <city-id>",
		Short: "Find the cities most like a given city",
		Long: `Find neighbours of a city by blending category-score distance with
vibe-tag overlap. Each result carries a short tag naming what it does
better than the target.

Examples:
  compass similar lisbon
  compass similar berlin --limit 3 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withEngine(ctx, opts, cmd.ErrOrStderr(), func(engine *compass.Engine) error {
				results, err := engine.Similar(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return write(cmd.OutOrStdout(), opts.format, results)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum cities to return")
	return cmd
}
