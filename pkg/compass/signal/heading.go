package signal

import (
	"sort"
	"strings"
)

// DefaultRetain is the share of the existing weight kept by Evolve.
const DefaultRetain = 0.7

// Heading is the personality label derived from the two strongest signals.
type Heading struct {
	Name       string   `json:"name" yaml:"name"`
	Emoji      string   `json:"emoji" yaml:"emoji"`
	TopSignals []Signal `json:"top_signals" yaml:"top_signals"`
	ColorHex   string   `json:"color" yaml:"color"`
}

// Explorer is returned when fewer than two signals are active.
var Explorer = Heading{Name: "Explorer", Emoji: "🧭", TopSignals: []Signal{}, ColorHex: "888888"}

// Personality is a named heading for one unordered pair of signals.
type Personality struct {
	Name  string
	Emoji string
}

// pairTable holds exactly one entry per unordered pair of the eight signals
// (28 entries), keyed by the two identifiers sorted and joined with "+".
var pairTable = map[string]Personality{
	"climate+cost":      {"Nomad Soul", "🌴"},
	"climate+culture":   {"Sunset Chaser", "🌅"},
	"climate+nature":    {"Tropic Explorer", "🦜"},
	"climate+safety":    {"Warm Harbor", "🏝️"},
	"climate+food":      {"Spice Route", "🌶️"},
	"climate+nightlife": {"Moonlit Wanderer", "🌙"},
	"career+climate":    {"Sun & Hustle", "🌞"},

	"cost+culture":   {"Free Spirit", "✨"},
	"cost+nature":    {"Off-Grid Dreamer", "🏕️"},
	"cost+food":      {"Street Food Soul", "🥘"},
	"cost+safety":    {"Smart Traveler", "🎒"},
	"cost+nightlife": {"Budget Nighthawk", "🦇"},
	"career+cost":    {"Lean Builder", "🔧"},

	"culture+safety":    {"Old World Seeker", "🏛️"},
	"culture+food":      {"Bon Vivant", "🥂"},
	"culture+nightlife": {"Night Owl", "🦉"},
	"culture+nature":    {"Renaissance Soul", "🎨"},
	"career+culture":    {"Urban Achiever", "🌃"},

	"career+safety":    {"Career Builder", "📈"},
	"nature+safety":    {"Quiet Strength", "🌿"},
	"food+safety":      {"Comfort Seeker", "🍵"},
	"nightlife+safety": {"Safe Nighthawk", "🎶"},

	"career+nature":    {"Mountain Climber", "⛰️"},
	"career+food":      {"Power Lunch", "🏙️"},
	"career+nightlife": {"After Hours", "🍸"},

	"food+nature":      {"Forager", "🌾"},
	"nature+nightlife": {"Wild & Free", "🐺"},

	"food+nightlife": {"Late Night Foodie", "🍷"},
}

// PairKey builds the lookup key for an unordered pair of signals.
func PairKey(a, b Signal) string {
	pair := []string{string(a), string(b)}
	sort.Strings(pair)
	return strings.Join(pair, "+")
}

// PairTable returns a copy of the personality table.
func PairTable() map[string]Personality {
	out := make(map[string]Personality, len(pairTable))
	for k, v := range pairTable {
		out[k] = v
	}
	return out
}

// HeadingFor derives the heading from the two strongest active signals.
// The primary signal comes first in TopSignals and supplies the color.
func HeadingFor(w Weights) Heading {
	active := w.Active()
	if len(active) < 2 {
		return Explorer
	}

	primary, secondary := active[0], active[1]
	p, ok := pairTable[PairKey(primary, secondary)]
	if !ok {
		p = Personality{Name: Explorer.Name, Emoji: Explorer.Emoji}
	}
	return Heading{
		Name:       p.Name,
		Emoji:      p.Emoji,
		TopSignals: []Signal{primary, secondary},
		ColorHex:   infos[primary].ColorHex,
	}
}

// Evolve blends newly active weights into existing ones by exponential
// smoothing. Signals in active become old*retain + new*(1-retain); signals
// only in existing pass through. Neither input is modified.
func Evolve(existing, active Weights, retain float64) Weights {
	out := existing.Clone()
	for sig, v := range active {
		merged := existing[sig]*retain + v*(1-retain)
		if merged < 0 {
			merged = 0
		}
		out[sig] = merged
	}
	return out
}
