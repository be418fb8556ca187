package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teleportme/compass/pkg/compass"
)

func newReportsCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "reports [report-id]",
		Short: "List a user's saved reports or show one",
		Long: `Without an argument, list the user's saved reports newest first.
With a report ID, print that report.

Examples:
  compass reports --user u1
  compass reports 01J9Z3Q4W8N6X2B5C7D9E1F3G5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 && userID == "" {
				return fmt.Errorf("either a report ID or --user is required")
			}
			return withEngine(ctx, opts, cmd.ErrOrStderr(), func(engine *compass.Engine) error {
				if len(args) == 1 {
					rep, err := engine.Report(ctx, args[0])
					if err != nil {
						return err
					}
					return write(cmd.OutOrStdout(), opts.format, rep)
				}
				reports, err := engine.Reports(ctx, userID, limit)
				if err != nil {
					return err
				}
				return write(cmd.OutOrStdout(), opts.format, reports)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID whose reports to list")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum reports to list")
	return cmd
}
