package main

import (
	"github.com/spf13/cobra"

	"github.com/teleportme/compass/pkg/compass"
)

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	var (
		signals map[string]string
		limit   int
		refresh bool
		tf      tripFlags
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Instant match estimates from the cached city pool",
		Long: `Estimate every city from signal intensities and trip constraints without
curation. Reads the cached pool snapshot; a stale snapshot is used as is
unless --refresh is given.

Examples:
  compass preview --signals nature=1,safety=0.8
  compass preview --signals food=1 --distance medium --budget affordable --limit 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := parseSignals(signals)
			if err != nil {
				return err
			}
			c, err := tf.constraints()
			if err != nil {
				return err
			}
			return withEngine(ctx, opts, cmd.ErrOrStderr(), func(engine *compass.Engine) error {
				res, err := engine.Preview(ctx, compass.PreviewRequest{
					Weights:     w,
					Constraints: c,
					Refresh:     refresh,
					Limit:       limit,
				})
				if err != nil {
					return err
				}
				return write(cmd.OutOrStdout(), opts.format, res)
			})
		},
	}
	cmd.Flags().StringToStringVar(&signals, "signals", nil, "Signal intensities as name=0-3 pairs")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum estimates to print (0 for all)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Reload the pool when the snapshot is stale")
	tf.bind(cmd)
	return cmd
}
