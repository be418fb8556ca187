package similar

import "github.com/teleportme/compass/pkg/compass/catalog"

// notableTags are checked in order when describing a neighbour.
var notableTags = []string{
	"Beach Life",
	"Walkable",
	"Nightlife",
	"Foodie",
	"Outdoorsy",
	"Coffee Culture",
	"Luxury",
	"Arts & Music",
	"Historic",
	"Cosmopolitan",
	"Bohemian",
	"Fast-Paced",
	"Quiet & Peaceful",
	"LGBTQ+ Friendly",
	"Family Friendly",
	"Eco-Conscious",
	"Startup Hub",
	"Digital Nomad",
	"Student Friendly",
	"Affordable",
}

var improvementLabels = map[string]string{
	"Cost of Living":        "More affordable",
	"Environmental Quality": "Better climate",
	"Leisure & Culture":     "More cultural",
	"Economy":               "Stronger economy",
	"Safety":                "Safer",
	"Outdoors":              "More outdoorsy",
	"Commute":               "Easier commute",
	"Healthcare":            "Better healthcare",
}

// minImprovement is the score gap (0-10) a category needs to be called out.
const minImprovement = 0.3

// ComparisonTag describes candidate relative to target in a few words.
func ComparisonTag(target, candidate catalog.City) string {
	for _, tag := range notableTags {
		if target.HasTag(tag) && candidate.HasTag(tag) {
			return "Also " + tag
		}
	}

	best, bestDelta := "", 0.0
	for _, cat := range Categories {
		t, tok := target.Score(cat)
		c, cok := candidate.Score(cat)
		if !tok || !cok {
			continue
		}
		if d := c - t; d > bestDelta {
			best, bestDelta = cat, d
		}
	}
	if best != "" && bestDelta > minImprovement {
		return improvementLabels[best]
	}
	return "Very similar"
}
