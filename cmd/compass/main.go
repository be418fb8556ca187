package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	format     string
	metricsOut string

	// registry collects engine metrics for --metrics-out
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{registry: prometheus.NewRegistry()}
	root := &cobra.Command{
		Use:   "compass",
		Short: "Match, score and compare cities against a traveler's preferences",
		Long: `compass ranks cities from a local catalog against scalar preferences or
compass signals, curates the shortlist with an optional language model and
keeps the results per user.

Examples:
  compass import --catalog cities.yaml
  compass rank --baseline london --prefs cost=9,safety=7
  compass rank --mode signals --signals climate=1,food=0.8 --distance short
  compass similar lisbon --limit 5
  compass heading --user u1 --signals culture=1,nightlife=0.6
  compass preview --signals nature=1 --budget affordable
  compass stats --metrics-out compass.prom`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return writeMetrics(opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (YAML)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Database path (overrides config)")
	root.PersistentFlags().StringVar(&opts.format, "format", string(FormatHuman), "Output format (json, human)")
	root.PersistentFlags().StringVar(&opts.metricsOut, "metrics-out", "", "Write engine metrics to this file (Prometheus text format)")

	root.AddCommand(
		newImportCmd(opts),
		newRankCmd(opts),
		newSimilarCmd(opts),
		newHeadingCmd(opts),
		newPreviewCmd(opts),
		newReportsCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
