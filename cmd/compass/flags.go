package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teleportme/compass/pkg/compass/rank"
	"github.com/teleportme/compass/pkg/compass/signal"
	"github.com/teleportme/compass/pkg/compass/trip"
)

// tripFlags binds the three trip constraint flags.
type tripFlags struct {
	distance string
	safety   string
	budget   string
}

func (f *tripFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.distance, "distance", "", "Travel distance (short, medium, far)")
	cmd.Flags().StringVar(&f.safety, "safety", "", "Safety comfort (adventurous, street_smart, relaxed)")
	cmd.Flags().StringVar(&f.budget, "budget", "", "Budget vibe (affordable, moderate, splurge)")
}

func (f *tripFlags) constraints() (trip.Constraints, error) {
	return trip.Parse(f.distance, f.safety, f.budget)
}

// parseSignals converts name=intensity pairs into signal weights.
func parseSignals(raw map[string]string) (signal.Weights, error) {
	w := make(signal.Weights, len(raw))
	for name, val := range raw {
		sig, err := signal.Parse(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w", name, err)
		}
		if v < 0 || v > 3 {
			return nil, fmt.Errorf("signal %s: intensity %v outside 0-3", name, v)
		}
		w[sig] = v
	}
	return w, nil
}

// parsePreferences converts slider=value pairs into legacy preferences.
// Sliders left out stay at zero.
func parsePreferences(raw map[string]string, tags []string) (rank.Preferences, error) {
	p := rank.Preferences{Tags: tags}
	sliders := map[string]*float64{
		"cost":       &p.Cost,
		"climate":    &p.Climate,
		"culture":    &p.Culture,
		"job_market": &p.JobMarket,
		"safety":     &p.Safety,
		"outdoors":   &p.Outdoors,
		"commute":    &p.Commute,
	}
	for name, val := range raw {
		dst, ok := sliders[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return rank.Preferences{}, fmt.Errorf("unknown preference %q", name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return rank.Preferences{}, fmt.Errorf("preference %s: %w", name, err)
		}
		*dst = v
	}
	return p, nil
}
