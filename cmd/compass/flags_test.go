package main

import (
	"testing"

	"github.com/teleportme/compass/pkg/compass/signal"
	"github.com/teleportme/compass/pkg/compass/trip"
)

func TestParseSignals(t *testing.T) {
	w, err := parseSignals(map[string]string{"Climate": "1", " food ": "0.5"})
	if err != nil {
		t.Fatalf("parseSignals: %v", err)
	}
	if w[signal.Climate] != 1 || w[signal.Food] != 0.5 {
		t.Fatalf("unexpected weights %v", w)
	}

	for _, raw := range []map[string]string{
		{"weather": "1"},
		{"climate": "high"},
		{"climate": "4"},
	} {
		if _, err := parseSignals(raw); err == nil {
			t.Errorf("expected error for %v", raw)
		}
	}
}

func TestParsePreferences(t *testing.T) {
	p, err := parsePreferences(map[string]string{"cost": "9", "job_market": "4"}, []string{"Foodie"})
	if err != nil {
		t.Fatalf("parsePreferences: %v", err)
	}
	if p.Cost != 9 || p.JobMarket != 4 || p.Climate != 0 {
		t.Fatalf("unexpected preferences %+v", p)
	}
	if len(p.Tags) != 1 || p.Tags[0] != "Foodie" {
		t.Fatalf("expected tags carried through, got %v", p.Tags)
	}
	if _, err := parsePreferences(map[string]string{"nightlife": "3"}, nil); err == nil {
		t.Fatal("unknown slider should fail")
	}
}

func TestTripFlags(t *testing.T) {
	f := tripFlags{distance: "medium", budget: "splurge"}
	c, err := f.constraints()
	if err != nil {
		t.Fatalf("constraints: %v", err)
	}
	if c.TravelDistance != trip.DistanceMedium || c.BudgetVibe != trip.BudgetSplurge || c.SafetyComfort != "" {
		t.Fatalf("unexpected constraints %+v", c)
	}
	if _, err := (&tripFlags{safety: "reckless"}).constraints(); err == nil {
		t.Fatal("unknown safety comfort should fail")
	}
}
