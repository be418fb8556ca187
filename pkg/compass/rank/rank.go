package rank

import (
	"math"
	"sort"

	"github.com/teleportme/compass/pkg/compass/catalog"
	"github.com/teleportme/compass/pkg/compass/signal"
	"github.com/teleportme/compass/pkg/compass/trip"
)

// Mode selects how a request expresses preferences.
type Mode string

const (
	// ModeLegacy scores scalar preference sliders.
	ModeLegacy Mode = "legacy"
	// ModeSignals scores compass signal weights.
	ModeSignals Mode = "signals"
)

const (
	MinScore       = 20
	MaxScore       = 99
	MinLegacyScore = 40
	neutralPercent = 50.0
)

// Scorer calculates canonical match scores for cities
type Scorer struct {
	weights Weights
}

// Weights defines the blend constants
type Weights struct {
	CategoryShare    float64 // category share of a tag-corroborated signal
	TagShare         float64 // tag share of a tag-corroborated signal
	Uncorroborated   float64 // category discount when no mapped tag matches
	ExplicitTagMix   float64 // tag affinity share when tags were chosen
	InferredTagBonus float64 // tag affinity bonus when tags were inferred
	BonusWeight      float64 // fixed weight of the legacy bonus categories
}

// DefaultWeights returns the production blend constants.
func DefaultWeights() Weights {
	return Weights{
		CategoryShare:    0.3,
		TagShare:         0.7,
		Uncorroborated:   0.3,
		ExplicitTagMix:   0.4,
		InferredTagBonus: 0.05,
		BonusWeight:      0.1,
	}
}

// NewScorer creates a new scorer with the given weights
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Preferences are the legacy 0-10 importance sliders plus optional vibe tags.
type Preferences struct {
	Cost      float64 `json:"cost" yaml:"cost" validate:"gte=0,lte=10"`
	Climate   float64 `json:"climate" yaml:"climate" validate:"gte=0,lte=10"`
	Culture   float64 `json:"culture" yaml:"culture" validate:"gte=0,lte=10"`
	JobMarket float64 `json:"job_market" yaml:"job_market" validate:"gte=0,lte=10"`
	Safety    float64 `json:"safety" yaml:"safety" validate:"gte=0,lte=10"`
	Outdoors  float64 `json:"outdoors" yaml:"outdoors" validate:"gte=0,lte=10"`
	Commute   float64 `json:"commute" yaml:"commute" validate:"gte=0,lte=10"`

	// Tags are vibe tags to score affinity against. TagsInferred marks
	// tags derived from a profile rather than chosen by the user.
	Tags         []string `json:"vibe_tags,omitempty" yaml:"vibe_tags"`
	TagsInferred bool     `json:"tags_inferred,omitempty" yaml:"tags_inferred"`
}

type preferencePair struct {
	category string
	slider   func(Preferences) float64
}

var legacyPairs = []preferencePair{
	{"Cost of Living", func(p Preferences) float64 { return p.Cost }},
	{"Environmental Quality", func(p Preferences) float64 { return p.Climate }},
	{"Leisure & Culture", func(p Preferences) float64 { return p.Culture }},
	{"Economy", func(p Preferences) float64 { return p.JobMarket }},
	{"Safety", func(p Preferences) float64 { return p.Safety }},
	{"Outdoors", func(p Preferences) float64 { return p.Outdoors }},
	{"Commute", func(p Preferences) float64 { return p.Commute }},
}

// BonusCategories always contribute to legacy scores at a small fixed weight.
var BonusCategories = []string{"Healthcare", "Internet Access"}

// Breakdown provides detailed scoring information
type Breakdown struct {
	Category    float64 // category contribution, 0-100
	Tags        float64 // tag contribution, 0-100
	TagAffinity float64 // legacy tag affinity, 0-100
	Blended     float64 // score before constraint multipliers
	SafetyMult  float64
	BudgetMult  float64
	Total       int
}

// ScoreLegacy scores a city against preference sliders
//
// base = Σ w·(score/10)·100 / Σ w, clamped to [40, 99]
func (s *Scorer) ScoreLegacy(p Preferences, city catalog.City) Breakdown {
	var sum, total float64
	for _, pair := range legacyPairs {
		w := pair.slider(p) / 10
		sum += w * city.ScoreOr(pair.category, catalog.NeutralScore) / 10 * 100
		total += w
	}
	for _, cat := range BonusCategories {
		w := s.weights.BonusWeight
		sum += w * city.ScoreOr(cat, catalog.NeutralScore) / 10 * 100
		total += w
	}

	base := neutralPercent
	if total > 0 {
		base = clamp(sum/total, MinLegacyScore, MaxScore)
	}

	b := Breakdown{Category: base, SafetyMult: 1, BudgetMult: 1}
	blended := base
	if len(p.Tags) > 0 {
		b.TagAffinity = TagAffinity(p.Tags, city)
		if p.TagsInferred {
			blended = base + s.weights.InferredTagBonus*b.TagAffinity
		} else {
			mix := s.weights.ExplicitTagMix
			blended = base*(1-mix) + b.TagAffinity*mix
		}
		b.Tags = blended - base
	}
	b.Blended = clamp(blended, MinLegacyScore, MaxScore)
	b.Total = int(math.Round(b.Blended))
	return b
}

// TagAffinity is the average strength of the chosen tags present on the
// city, scaled by how many of them are present, on a 0-100 scale.
func TagAffinity(chosen []string, city catalog.City) float64 {
	if len(chosen) == 0 {
		return 0
	}
	var strength float64
	matched := 0
	for _, tag := range chosen {
		if v, ok := city.TagStrength(tag); ok {
			strength += v
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	avg := strength / float64(matched)
	return avg * float64(matched) / float64(len(chosen)) * 100
}

// ScoreSignals scores a city against compass signal weights and applies
// the trip's safety and budget multipliers.
func (s *Scorer) ScoreSignals(w signal.Weights, c trip.Constraints, city catalog.City) Breakdown {
	var catSum, tagSum, total float64
	for _, sig := range w.Active() {
		weight := w[sig]
		cat, tag := s.signalParts(sig.Info(), city)
		catSum += cat * weight
		tagSum += tag * weight
		total += weight
	}

	b := Breakdown{Blended: neutralPercent}
	if total > 0 {
		b.Category = catSum / total * 100
		b.Tags = tagSum / total * 100
		b.Blended = b.Category + b.Tags
	}
	b.SafetyMult = SafetyMultiplier(c.SafetyComfort, city.ScoreOr("Safety", catalog.NeutralScore))
	b.BudgetMult = BudgetMultiplier(c.BudgetVibe, city.ScoreOr("Cost of Living", catalog.NeutralScore))
	b.Total = int(clamp(math.Round(b.Blended*b.SafetyMult*b.BudgetMult), MinScore, MaxScore))
	return b
}

// signalParts returns the category and tag shares of one signal's blended
// score, each on a 0-1 scale.
func (s *Scorer) signalParts(info signal.Info, city catalog.City) (float64, float64) {
	categoryComponent := 0.5
	if info.Category != "" {
		categoryComponent = city.ScoreOr(info.Category, catalog.NeutralScore) / 10
	}
	if len(info.Tags) == 0 {
		return categoryComponent, 0
	}

	var strength float64
	matched := 0
	for _, tag := range info.Tags {
		if v, ok := city.TagStrength(tag); ok {
			strength += v
			matched++
		}
	}
	tagComponent := 0.0
	if matched > 0 {
		tagComponent = strength / float64(matched)
	}
	coverage := float64(matched) / float64(len(info.Tags))

	if info.Category == "" {
		return 0, tagComponent * (0.5 + coverage*0.5)
	}
	if matched == 0 {
		return categoryComponent * s.weights.Uncorroborated, 0
	}
	return categoryComponent * s.weights.CategoryShare, tagComponent * coverage * s.weights.TagShare
}

// SafetyMultiplier shrinks a score when the city's safety is below the
// comfort threshold, by 5% per point of deficit down to 0.5.
func SafetyMultiplier(comfort trip.SafetyComfort, safety float64) float64 {
	if comfort == "" {
		return 1
	}
	threshold := trip.SafetyThreshold(comfort)
	if safety >= threshold {
		return 1
	}
	return math.Max(0.5, 1-0.05*(threshold-safety))
}

// BudgetMultiplier shrinks a score when the city's cost-of-living score is
// below the budget's comfort band, by 4% per point down to 0.6.
func BudgetMultiplier(budget trip.BudgetVibe, cost float64) float64 {
	if budget == "" {
		return 1
	}
	band := trip.BudgetBand(budget)
	if cost >= band {
		return 1
	}
	return math.Max(0.6, 1-0.04*(band-cost))
}

// Scored is a city with its canonical score.
type Scored struct {
	City      catalog.City
	Score     int
	Breakdown Breakdown
}

// Rank sorts scored cities by score descending, then name, then ID.
func Rank(scored []Scored) []Scored {
	out := make([]Scored, len(scored))
	copy(out, scored)
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

// Top returns at most n leading entries.
func Top(scored []Scored, n int) []Scored {
	if n < 0 || n >= len(scored) {
		return scored
	}
	return scored[:n]
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
