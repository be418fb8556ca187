package trip

import (
	"fmt"

	"github.com/teleportme/compass/pkg/compass/internalerr"
)

// TravelDistance is how far the traveler is willing to fly.
type TravelDistance string

// SafetyComfort is the traveler's tolerance for lower safety scores.
type SafetyComfort string

// BudgetVibe is the spending posture for the trip.
type BudgetVibe string

const (
	DistanceShort  TravelDistance = "short"
	DistanceMedium TravelDistance = "medium"
	DistanceFar    TravelDistance = "far"

	SafetyAdventurous SafetyComfort = "adventurous"
	SafetyStreetSmart SafetyComfort = "street_smart"
	SafetyRelaxed     SafetyComfort = "relaxed"

	BudgetAffordable BudgetVibe = "affordable"
	BudgetModerate   BudgetVibe = "moderate"
	BudgetSplurge    BudgetVibe = "splurge"
)

// Constraints are the practical limits of one trip. Each field is optional;
// the empty string means "not set".
type Constraints struct {
	TravelDistance TravelDistance `json:"travel_distance,omitempty" yaml:"travel_distance" validate:"omitempty,oneof=short medium far"`
	SafetyComfort  SafetyComfort  `json:"safety_comfort,omitempty" yaml:"safety_comfort" validate:"omitempty,oneof=adventurous street_smart relaxed"`
	BudgetVibe     BudgetVibe     `json:"budget_vibe,omitempty" yaml:"budget_vibe" validate:"omitempty,oneof=affordable moderate splurge"`
}

// Count returns how many constraints are set (0-3).
func (c Constraints) Count() int {
	n := 0
	if c.TravelDistance != "" {
		n++
	}
	if c.SafetyComfort != "" {
		n++
	}
	if c.BudgetVibe != "" {
		n++
	}
	return n
}

// HasAny reports whether at least one constraint is set.
func (c Constraints) HasAny() bool { return c.Count() > 0 }

// SafetyThreshold is the minimum acceptable safety score (0-10) for a
// comfort level. Unset or unknown levels accept anything.
func SafetyThreshold(s SafetyComfort) float64 {
	switch s {
	case SafetyStreetSmart:
		return 5
	case SafetyRelaxed:
		return 7
	default:
		return 0
	}
}

// BudgetBand is the cost-of-living score (higher is cheaper) at which a
// budget vibe is comfortable.
func BudgetBand(b BudgetVibe) float64 {
	switch b {
	case BudgetAffordable:
		return 6
	case BudgetModerate:
		return 4
	default:
		return 0
	}
}

// ParseTravelDistance validates a travel distance identifier; "" is allowed.
func ParseTravelDistance(s string) (TravelDistance, error) {
	switch d := TravelDistance(s); d {
	case "", DistanceShort, DistanceMedium, DistanceFar:
		return d, nil
	}
	return "", fmt.Errorf("travel distance %q: %w", s, internalerr.ErrInvalidInput)
}

// ParseSafetyComfort validates a safety comfort identifier; "" is allowed.
func ParseSafetyComfort(s string) (SafetyComfort, error) {
	switch c := SafetyComfort(s); c {
	case "", SafetyAdventurous, SafetyStreetSmart, SafetyRelaxed:
		return c, nil
	}
	return "", fmt.Errorf("safety comfort %q: %w", s, internalerr.ErrInvalidInput)
}

// ParseBudgetVibe validates a budget identifier; "" is allowed.
func ParseBudgetVibe(s string) (BudgetVibe, error) {
	switch b := BudgetVibe(s); b {
	case "", BudgetAffordable, BudgetModerate, BudgetSplurge:
		return b, nil
	}
	return "", fmt.Errorf("budget vibe %q: %w", s, internalerr.ErrInvalidInput)
}

// Parse builds Constraints from raw identifiers.
func Parse(distance, safety, budget string) (Constraints, error) {
	d, err := ParseTravelDistance(distance)
	if err != nil {
		return Constraints{}, err
	}
	s, err := ParseSafetyComfort(safety)
	if err != nil {
		return Constraints{}, err
	}
	b, err := ParseBudgetVibe(budget)
	if err != nil {
		return Constraints{}, err
	}
	return Constraints{TravelDistance: d, SafetyComfort: s, BudgetVibe: b}, nil
}
