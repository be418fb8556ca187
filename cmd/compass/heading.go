package main

import (
	"github.com/spf13/cobra"

	"github.com/teleportme/compass/pkg/compass"
	"github.com/teleportme/compass/pkg/compass/signal"
)

func newHeadingCmd(opts *rootOptions) *cobra.Command {
	var (
		userID  string
		signals map[string]string
	)
	cmd := &cobra.Command{
		Use:   "heading",
		Short: "Show or evolve a user's compass heading",
		Long: `Print the user's persisted signal weights and the heading their two
strongest signals give. With --signals, the new intensities are blended
into the stored weights first.

Examples:
  compass heading --user u1
  compass heading --user u1 --signals culture=1,nightlife=0.6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			active, err := parseSignals(signals)
			if err != nil {
				return err
			}
			return withEngine(ctx, opts, cmd.ErrOrStderr(), func(engine *compass.Engine) error {
				var (
					w   signal.Weights
					h   signal.Heading
					err error
				)
				if len(active) > 0 {
					w, h, err = engine.EvolveHeading(ctx, userID, active)
				} else {
					w, h, err = engine.Heading(ctx, userID)
				}
				if err != nil {
					return err
				}
				return write(cmd.OutOrStdout(), opts.format, headingView{Weights: w.Encode(), Heading: h})
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (required)")
	cmd.Flags().StringToStringVar(&signals, "signals", nil, "Newly active signals as name=0-3 pairs")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
