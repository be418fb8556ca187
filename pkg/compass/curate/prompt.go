package curate

import (
	"fmt"
	"strings"

	"github.com/teleportme/compass/pkg/compass/catalog"
	"github.com/teleportme/compass/pkg/compass/rank"
	"github.com/teleportme/compass/pkg/compass/signal"
	"github.com/teleportme/compass/pkg/compass/trip"
)

// SystemPrompt frames the generator as a relocation advisor that answers in JSON.
const SystemPrompt = "You are a city relocation advisor. Answer with a JSON array only, no markdown."

// Brief is the natural-language context handed to the generator alongside
// the refinement set.
type Brief struct {
	Mode        rank.Mode
	Baseline    *catalog.City
	Preferences rank.Preferences
	Weights     signal.Weights
	Heading     signal.Heading
	Constraints trip.Constraints
}

var summaryCategories = []struct{ key, label string }{
	{"Cost of Living", "Cost"},
	{"Environmental Quality", "Climate"},
	{"Leisure & Culture", "Culture"},
	{"Economy", "Jobs"},
	{"Safety", "Safety"},
}

// Prompt renders the user message for a refinement set.
func (b Brief) Prompt(refinement []Candidate) string {
	var buf strings.Builder

	if b.Baseline != nil {
		fmt.Fprintf(&buf, "The user currently lives in %s, %s.\n", b.Baseline.Name, b.Baseline.Country)
		fmt.Fprintf(&buf, "Current city scores: %s\n\n", formatScores(b.Baseline.Scores))
	} else {
		buf.WriteString("The user has not told us where they live now.\n\n")
	}

	if b.Mode == rank.ModeSignals {
		fmt.Fprintf(&buf, "Their travel personality is %s %s.\n", b.Heading.Emoji, b.Heading.Name)
		buf.WriteString("What they care about (intensity 1-3):\n")
		for _, s := range b.Weights.Active() {
			fmt.Fprintf(&buf, "- %s: %.0f\n", s.Info().Label, b.Weights[s])
		}
	} else {
		p := b.Preferences
		buf.WriteString("Their preferences (0-10, 10 = most important):\n")
		fmt.Fprintf(&buf, "- Affordable cost of living: %.0f/10\n", p.Cost)
		fmt.Fprintf(&buf, "- Good climate/environment: %.0f/10\n", p.Climate)
		fmt.Fprintf(&buf, "- Rich culture & leisure: %.0f/10\n", p.Culture)
		fmt.Fprintf(&buf, "- Strong job market: %.0f/10\n", p.JobMarket)
		fmt.Fprintf(&buf, "- Safety: %.0f/10\n", p.Safety)
		fmt.Fprintf(&buf, "- Outdoors: %.0f/10\n", p.Outdoors)
		fmt.Fprintf(&buf, "- Commute: %.0f/10\n", p.Commute)
		if len(p.Tags) > 0 {
			fmt.Fprintf(&buf, "- Vibes: %s\n", strings.Join(p.Tags, ", "))
		}
	}

	if c := b.Constraints; c.HasAny() {
		buf.WriteString("Trip constraints:\n")
		if c.TravelDistance != "" {
			fmt.Fprintf(&buf, "- Travel distance: %s\n", c.TravelDistance)
		}
		if c.SafetyComfort != "" {
			fmt.Fprintf(&buf, "- Safety comfort: %s\n", c.SafetyComfort)
		}
		if c.BudgetVibe != "" {
			fmt.Fprintf(&buf, "- Budget: %s\n", c.BudgetVibe)
		}
	}

	buf.WriteString("\nTop algorithmic candidates:\n")
	ids := make([]string, 0, len(refinement))
	for _, c := range refinement {
		ids = append(ids, fmt.Sprintf("%q", c.ID))
		fmt.Fprintf(&buf, "id=%q %s (%s) algo score: %d, key scores: ", c.ID, c.Name, c.Country, c.Score)
		parts := make([]string, 0, len(summaryCategories))
		for _, sc := range summaryCategories {
			if v, ok := c.Scores[sc.key]; ok {
				parts = append(parts, fmt.Sprintf("%s=%.1f", sc.label, v))
			} else {
				parts = append(parts, sc.label+"=?")
			}
		}
		buf.WriteString(strings.Join(parts, ", "))
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "\nPick the best 3 to 5 cities from the candidates. For each, write one sentence in \"ai_insight\" "+
		"explaining why it suits this user's priorities. Use the exact id values for city_id. Valid ids: [%s]\n", strings.Join(ids, ", "))
	buf.WriteString(`Respond with only a JSON array: [{"city_id": "...", "ai_insight": "..."}]`)
	return buf.String()
}

func formatScores(scores map[string]float64) string {
	parts := make([]string, 0, len(summaryCategories))
	for _, sc := range summaryCategories {
		if v, ok := scores[sc.key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%.1f", sc.label, v))
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ", ")
}
