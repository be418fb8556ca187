package catalog

import (
	"sort"

	"github.com/teleportme/compass/pkg/compass/geo"
)

// NeutralScore is assumed for any category a city has no score for.
const NeutralScore = 5.0

// City is a city profile as the engine sees it: identity, location,
// category scores (0-10) and vibe tags with strengths (0-1).
type City struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	FullName   string             `json:"full_name,omitempty"`
	Country    string             `json:"country,omitempty"`
	Continent  string             `json:"continent,omitempty"`
	Location   geo.Point          `json:"location"`
	Population int64              `json:"population,omitempty"`
	ImageURL   string             `json:"image_url,omitempty"`
	Scores     map[string]float64 `json:"scores"`
	Tags       map[string]float64 `json:"tags"`
}

// Score returns the city's score for a category.
func (c City) Score(category string) (float64, bool) {
	v, ok := c.Scores[category]
	return v, ok
}

// ScoreOr returns the score for category, or def when it is missing.
func (c City) ScoreOr(category string, def float64) float64 {
	if v, ok := c.Scores[category]; ok {
		return v
	}
	return def
}

// TagStrength returns the strength of a tag on the city.
func (c City) TagStrength(tag string) (float64, bool) {
	v, ok := c.Tags[tag]
	return v, ok
}

// HasTag reports whether the city carries tag.
func (c City) HasTag(tag string) bool {
	_, ok := c.Tags[tag]
	return ok
}

// TagNames returns the city's tags sorted by name.
func (c City) TagNames() []string {
	out := make([]string, 0, len(c.Tags))
	for t := range c.Tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Pool is an ordered set of cities.
type Pool []City

// Find returns the city with id.
func (p Pool) Find(id string) (City, bool) {
	for _, c := range p {
		if c.ID == id {
			return c, true
		}
	}
	return City{}, false
}

// Without returns the pool minus the city with id.
func (p Pool) Without(id string) Pool {
	out := make(Pool, 0, len(p))
	for _, c := range p {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// MetricLabel turns a category score into the short label shown next to it.
func MetricLabel(category string, score float64) string {
	switch category {
	case "Cost of Living":
		return band(score, "Affordable", "Moderate", "High Cost")
	case "Environmental Quality":
		return band(score, "Optimal", "Moderate", "Challenging")
	case "Leisure & Culture":
		return band(score, "Vibrant", "Moderate", "Limited")
	case "Economy":
		return band(score, "High Growth", "Stable", "Developing")
	case "Commute":
		return band(score, "Excellent Public Transit", "Moderate", "Car Dependent")
	default:
		return band(score, "Strong", "Average", "Limited")
	}
}

func band(score float64, high, mid, low string) string {
	switch {
	case score >= 7:
		return high
	case score >= 4:
		return mid
	default:
		return low
	}
}
