package preview

import (
	"math"
	"sort"

	"github.com/teleportme/compass/pkg/compass/catalog"
	"github.com/teleportme/compass/pkg/compass/geo"
	"github.com/teleportme/compass/pkg/compass/signal"
	"github.com/teleportme/compass/pkg/compass/trip"
)

const (
	// ModifierScale turns the averaged per-axis bonus into score points.
	ModifierScale = 15.0

	MinScore = 20
	MaxScore = 99

	shortHaulHours  = 5.0
	mediumHaulHours = 10.0
)

// VibeScore is the intensity-weighted average of the city's category
// scores for the active signals, on a 0-100 scale. A missing category
// counts as neutral and no active signal yields 50.
func VibeScore(w signal.Weights, scores map[string]float64) float64 {
	var sum, total float64
	for _, s := range w.Active() {
		weight := w[s]
		score, ok := scores[s.Info().Category]
		if !ok {
			score = catalog.NeutralScore
		}
		sum += (score / 10) * weight
		total += weight
	}
	if total == 0 {
		return 50
	}
	return sum / total * 100
}

// ConstraintModifier averages the bonus of every set trip constraint,
// each in roughly [-1, 1], and scales it by ModifierScale. at is the
// city's position, origin the traveler's.
func ConstraintModifier(c trip.Constraints, safety, cost float64, at, origin geo.Point) float64 {
	var sum float64
	n := 0

	if c.TravelDistance != "" {
		sum += distanceBonus(c.TravelDistance, geo.FlightHours(geo.Haversine(origin, at)))
		n++
	}
	if c.SafetyComfort != "" {
		sum += safetyBonus(c.SafetyComfort, safety)
		n++
	}
	if c.BudgetVibe != "" {
		sum += budgetBonus(c.BudgetVibe, cost)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * ModifierScale
}

func distanceBonus(d trip.TravelDistance, hours float64) float64 {
	switch d {
	case trip.DistanceShort:
		if hours <= shortHaulHours {
			return 1
		}
		return -math.Min(0.8, 0.1*(hours-shortHaulHours))
	case trip.DistanceMedium:
		if hours <= mediumHaulHours {
			return 1
		}
		return -0.3
	default:
		return 1
	}
}

func safetyBonus(s trip.SafetyComfort, safety float64) float64 {
	threshold := trip.SafetyThreshold(s)
	if safety >= threshold {
		return 1
	}
	return -(threshold - safety) / 10
}

// budgetBonus compares the cost-of-living score (higher is cheaper)
// against fixed bands. The moderate partial band above the full-credit
// threshold is never reached; its order is kept as is.
func budgetBonus(b trip.BudgetVibe, cost float64) float64 {
	switch b {
	case trip.BudgetAffordable:
		switch {
		case cost >= 6:
			return 1
		case cost >= 4:
			return 0.3
		default:
			return -0.5
		}
	case trip.BudgetModerate:
		switch {
		case cost >= 4:
			return 1
		case cost >= 6:
			return 0.8
		default:
			return -0.3
		}
	default:
		return 1
	}
}

// FinalScore combines a vibe score and constraint modifier into a match
// percentage in [MinScore, MaxScore].
func FinalScore(vibe, modifier float64) int {
	v := math.Round(vibe + modifier)
	if math.IsNaN(v) || v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return int(v)
}

// Estimate is the preview result for one city.
type Estimate struct {
	City     catalog.City `json:"city"`
	Vibe     float64      `json:"vibe"`
	Modifier float64      `json:"modifier"`
	Score    int          `json:"score"`
}

// Estimator computes instant match estimates relative to a fixed origin.
type Estimator struct {
	Origin geo.Point
}

// Estimate scores a single city.
func (e Estimator) Estimate(w signal.Weights, c trip.Constraints, city catalog.City) Estimate {
	vibe := VibeScore(w, city.Scores)
	mod := ConstraintModifier(c,
		city.ScoreOr("Safety", catalog.NeutralScore),
		city.ScoreOr("Cost of Living", catalog.NeutralScore),
		city.Location, e.Origin)
	return Estimate{City: city, Vibe: vibe, Modifier: mod, Score: FinalScore(vibe, mod)}
}

// Score returns only the match percentage for a city.
func (e Estimator) Score(w signal.Weights, c trip.Constraints, city catalog.City) int {
	return e.Estimate(w, c, city).Score
}

// Rank estimates every city and orders them by score, then name, then ID.
func (e Estimator) Rank(w signal.Weights, c trip.Constraints, cities []catalog.City) []Estimate {
	out := make([]Estimate, 0, len(cities))
	for _, city := range cities {
		out = append(out, e.Estimate(w, c, city))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].City.Name != out[j].City.Name {
			return out[i].City.Name < out[j].City.Name
		}
		return out[i].City.ID < out[j].City.ID
	})
	return out
}
