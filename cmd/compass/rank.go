package main

import (
	"github.com/spf13/cobra"

	"github.com/teleportme/compass/pkg/compass"
	"github.com/teleportme/compass/pkg/compass/rank"
)

func newRankCmd(opts *rootOptions) *cobra.Command {
	var (
		userID   string
		baseline string
		mode     string
		prefs    map[string]string
		signals  map[string]string
		tags     []string
		inferred bool
		tf       tripFlags
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank cities and produce a curated report",
		Long: `Score every city except the baseline, take the top of the ranking and
ask the configured language model to pick and explain 3-5 of them. When no
model is configured or its answer is unusable, the top four are used.

Legacy mode scores 0-10 preference sliders:
  cost, climate, culture, job_market, safety, outdoors, commute

Signals mode scores 0-3 compass signal intensities:
  climate, cost, culture, safety, career, nature, food, nightlife

Examples:
  compass rank --baseline london --prefs cost=9,safety=7,climate=6
  compass rank --prefs culture=8 --tags Foodie,Historic
  compass rank --mode signals --signals climate=1,food=0.8 --distance short
  compass rank --mode signals --user u1 --budget affordable --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req := compass.Request{
				UserID:     userID,
				BaselineID: baseline,
				Mode:       rank.Mode(mode),
			}
			var err error
			if req.Preferences, err = parsePreferences(prefs, tags); err != nil {
				return err
			}
			req.Preferences.TagsInferred = inferred
			if req.Signals, err = parseSignals(signals); err != nil {
				return err
			}
			if req.Constraints, err = tf.constraints(); err != nil {
				return err
			}

			return withEngine(ctx, opts, cmd.ErrOrStderr(), func(engine *compass.Engine) error {
				rep, err := engine.Generate(ctx, req)
				if err != nil {
					return err
				}
				return write(cmd.OutOrStdout(), opts.format, rep)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID; reports are saved when set")
	cmd.Flags().StringVar(&baseline, "baseline", "", "City ID to compare against and exclude")
	cmd.Flags().StringVar(&mode, "mode", string(rank.ModeLegacy), "Preference mode (legacy, signals)")
	cmd.Flags().StringToStringVar(&prefs, "prefs", nil, "Legacy sliders as name=0-10 pairs")
	cmd.Flags().StringToStringVar(&signals, "signals", nil, "Compass signals as name=0-3 pairs")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Vibe tags to score affinity against")
	cmd.Flags().BoolVar(&inferred, "tags-inferred", false, "Treat tags as inferred from a profile")
	tf.bind(cmd)
	return cmd
}
