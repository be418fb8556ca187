package main

import (
	"github.com/spf13/cobra"

	"github.com/teleportme/compass/pkg/compass"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		minPercent float64
		pairs      int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report catalog coverage and tag drift",
		Long: `Summarise how well the catalog covers the comparison categories, which
common tags no compass signal maps to, which signal tags no city carries
and which tags tend to appear together.

Examples:
  compass stats
  compass stats --min-percent 20 --pairs 5 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withEngine(ctx, opts, cmd.ErrOrStderr(), func(engine *compass.Engine) error {
				sum, err := engine.Analyze(ctx, minPercent, pairs)
				if err != nil {
					return err
				}
				return write(cmd.OutOrStdout(), opts.format, sum)
			})
		},
	}
	cmd.Flags().Float64Var(&minPercent, "min-percent", 10, "Minimum share of cities for an orphan tag")
	cmd.Flags().IntVar(&pairs, "pairs", 10, "Maximum tag pairs to print")
	return cmd
}
