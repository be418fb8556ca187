package signal

import (
	"fmt"
	"sort"

	"github.com/teleportme/compass/pkg/compass/internalerr"
)

// Signal is one of the eight lifestyle axes a traveler can weight.
type Signal string

const (
	Climate   Signal = "climate"
	Cost      Signal = "cost"
	Culture   Signal = "culture"
	Safety    Signal = "safety"
	Career    Signal = "career"
	Nature    Signal = "nature"
	Food      Signal = "food"
	Nightlife Signal = "nightlife"
)

// Info is the immutable reference data attached to a signal.
type Info struct {
	Label    string
	Emoji    string
	ColorHex string
	// Category is the city score category the signal reads, empty when
	// the signal is judged on vibe tags alone.
	Category string
	Tags     []string
}

var all = []Signal{Climate, Cost, Culture, Safety, Career, Nature, Food, Nightlife}

var infos = map[Signal]Info{
	Climate: {
		Label: "Climate", Emoji: "☀️", ColorHex: "E8855D",
		Category: "Environmental Quality",
		Tags:     []string{"Beach Life", "Outdoorsy"},
	},
	Cost: {
		Label: "Affordability", Emoji: "💰", ColorHex: "4ECB71",
		Category: "Cost of Living",
		Tags:     []string{"Affordable", "Digital Nomad"},
	},
	Culture: {
		Label: "Culture", Emoji: "🎭", ColorHex: "D4A056",
		Category: "Leisure & Culture",
		Tags:     []string{"Arts & Music", "Historic", "Bohemian"},
	},
	Safety: {
		Label: "Safety", Emoji: "🛡️", ColorHex: "5B9BD5",
		Category: "Safety",
		Tags:     []string{"Family Friendly", "Quiet & Peaceful"},
	},
	Career: {
		Label: "Career", Emoji: "💼", ColorHex: "9B6FB6",
		Category: "Economy",
		Tags:     []string{"Startup Hub", "Fast-Paced"},
	},
	Nature: {
		Label: "Nature", Emoji: "🏔️", ColorHex: "1ABC9C",
		Category: "Outdoors",
		Tags:     []string{"Outdoorsy", "Eco-Conscious"},
	},
	Food: {
		Label: "Food", Emoji: "🍜", ColorHex: "E6922E",
		Tags: []string{"Foodie", "Coffee Culture"},
	},
	Nightlife: {
		Label: "Nightlife", Emoji: "🌙", ColorHex: "8B7EC8",
		Tags: []string{"Nightlife", "Cosmopolitan"},
	},
}

// All returns the signals in their canonical display order.
func All() []Signal {
	out := make([]Signal, len(all))
	copy(out, all)
	return out
}

// Parse converts an identifier into a Signal.
func Parse(s string) (Signal, error) {
	sig := Signal(s)
	if _, ok := infos[sig]; !ok {
		return "", fmt.Errorf("signal %q: %w", s, internalerr.ErrInvalidInput)
	}
	return sig, nil
}

// Valid reports whether s is one of the eight known signals.
func (s Signal) Valid() bool {
	_, ok := infos[s]
	return ok
}

// Info returns the reference data for s. Unknown signals yield a zero Info.
func (s Signal) Info() Info {
	info := infos[s]
	info.Tags = append([]string(nil), info.Tags...)
	return info
}

func (s Signal) String() string { return string(s) }

// Weights maps signals to an intensity in the practical range 0..3.
// Absent signals are inactive.
type Weights map[Signal]float64

// Active returns the signals with a positive weight, strongest first.
// Equal weights are ordered by identifier so the result never depends on
// map iteration order.
func (w Weights) Active() []Signal {
	out := make([]Signal, 0, len(w))
	for sig, v := range w {
		if v > 0 {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		wi, wj := w[out[i]], w[out[j]]
		if wi != wj {
			return wi > wj
		}
		return out[i] < out[j]
	})
	return out
}

// Total sums the positive weights.
func (w Weights) Total() float64 {
	total := 0.0
	for _, v := range w {
		if v > 0 {
			total += v
		}
	}
	return total
}

// Clone returns an independent copy of w.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Encode converts w to its persisted form keyed by identifier.
func (w Weights) Encode() map[string]float64 {
	out := make(map[string]float64, len(w))
	for sig, v := range w {
		out[string(sig)] = v
	}
	return out
}

// Decode reads persisted weights. Unknown identifiers are dropped and
// negative values are clamped to zero.
func Decode(raw map[string]float64) Weights {
	out := make(Weights, len(raw))
	for key, v := range raw {
		sig := Signal(key)
		if !sig.Valid() {
			continue
		}
		if v < 0 {
			v = 0
		}
		out[sig] = v
	}
	return out
}

// FromCityScores derives starting weights from a city the traveler already
// loves: a category score of 7+ maps to 3, 4+ to 2, 2+ to 1. Signals
// without a category are left inactive.
func FromCityScores(scores map[string]float64) Weights {
	out := make(Weights)
	for _, sig := range all {
		cat := infos[sig].Category
		if cat == "" {
			continue
		}
		score := scores[cat]
		switch {
		case score >= 7:
			out[sig] = 3
		case score >= 4:
			out[sig] = 2
		case score >= 2:
			out[sig] = 1
		}
	}
	return out
}
