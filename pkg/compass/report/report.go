package report

import (
	"crypto/rand"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"

	"github.com/teleportme/compass/pkg/compass/catalog"
	"github.com/teleportme/compass/pkg/compass/curate"
	"github.com/teleportme/compass/pkg/compass/rank"
	"github.com/teleportme/compass/pkg/compass/signal"
	"github.com/teleportme/compass/pkg/compass/store"
)

// ComparisonCategories are compared against the baseline city for every match.
var ComparisonCategories = []string{
	"Cost of Living",
	"Environmental Quality",
	"Leisure & Culture",
	"Economy",
	"Commute",
}

// Builder constructs ranked reports
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a new report builder
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Report is a ranked, explained shortlist
type Report struct {
	ID           string          `json:"id"`
	BaselineID   string          `json:"baseline_id,omitempty"`
	Mode         rank.Mode       `json:"mode"`
	Heading      *signal.Heading `json:"heading,omitempty"`
	Matches      []Match         `json:"matches"`
	UsedFallback bool            `json:"used_fallback"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Match is one ranked city in a report
type Match struct {
	CityID       string                `json:"city_id"`
	CityName     string                `json:"city_name"`
	CityFullName string                `json:"city_full_name,omitempty"`
	CityCountry  string                `json:"city_country,omitempty"`
	CityImageURL string                `json:"city_image_url,omitempty"`
	MatchPercent int                   `json:"match_percent"`
	Rank         int                   `json:"rank"`
	Comparison   map[string]Comparison `json:"comparison"`
	Rationale    string                `json:"ai_insight"`
	Scores       map[string]float64    `json:"scores"`
}

// Comparison contrasts one category between a match and the baseline
type Comparison struct {
	MatchScore   float64 `json:"match_score"`
	CurrentScore float64 `json:"current_score"`
	Delta        float64 `json:"delta"`
}

// Build creates a report from picks, resolving each against scored. Picks
// naming a city outside scored are dropped. baseline may be nil, in which
// case comparisons use neutral scores.
func (b *Builder) Build(baseline *catalog.City, scored []rank.Scored, picks []curate.Pick) Report {
	b.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(b.now()), b.entropy).String()
	created := b.now()
	b.mu.Unlock()

	rep := Report{
		ID:        id,
		Matches:   make([]Match, 0, len(picks)),
		CreatedAt: created.UTC(),
	}
	current := map[string]float64{}
	if baseline != nil {
		rep.BaselineID = baseline.ID
		current = baseline.Scores
	}

	byID := make(map[string]rank.Scored, len(scored))
	for _, s := range scored {
		byID[s.City.ID] = s
	}

	for _, p := range picks {
		s, ok := byID[p.CityID]
		if !ok {
			continue
		}
		rep.Matches = append(rep.Matches, Match{
			CityID:       s.City.ID,
			CityName:     s.City.Name,
			CityFullName: s.City.FullName,
			CityCountry:  s.City.Country,
			CityImageURL: s.City.ImageURL,
			MatchPercent: s.Score,
			Rank:         len(rep.Matches) + 1,
			Comparison:   Compare(s.City.Scores, current),
			Rationale:    p.Rationale,
			Scores:       s.City.Scores,
		})
	}
	return rep
}

// Compare builds the per-category comparison of match against current,
// treating missing scores as neutral. Deltas are rounded to one decimal.
func Compare(match, current map[string]float64) map[string]Comparison {
	out := make(map[string]Comparison, len(ComparisonCategories))
	for _, cat := range ComparisonCategories {
		m := scoreOr(match, cat)
		c := scoreOr(current, cat)
		out[cat] = Comparison{
			MatchScore:   m,
			CurrentScore: c,
			Delta:        math.Round((m-c)*10) / 10,
		}
	}
	return out
}

func scoreOr(scores map[string]float64, cat string) float64 {
	if v, ok := scores[cat]; ok {
		return v
	}
	return catalog.NeutralScore
}

// Record converts a report into its persisted form. request is the
// request snapshot stored alongside the results.
func (r Report) Record(userID string, request any) (store.Report, error) {
	req, err := json.Marshal(request)
	if err != nil {
		return store.Report{}, fmt.Errorf("encode request: %w", err)
	}
	res, err := json.Marshal(r.Matches)
	if err != nil {
		return store.Report{}, fmt.Errorf("encode matches: %w", err)
	}
	rec := store.Report{
		ID:           r.ID,
		UserID:       userID,
		BaselineID:   r.BaselineID,
		Mode:         string(r.Mode),
		RequestJSON:  string(req),
		ResultsJSON:  string(res),
		UsedFallback: r.UsedFallback,
		CreatedAt:    r.CreatedAt,
	}
	if r.Heading != nil {
		rec.HeadingName = r.Heading.Name
	}
	return rec, nil
}

// FromRecord restores a report from its persisted form. The heading is
// restored by name only.
func FromRecord(rec store.Report) (Report, error) {
	r := Report{
		ID:           rec.ID,
		BaselineID:   rec.BaselineID,
		Mode:         rank.Mode(rec.Mode),
		UsedFallback: rec.UsedFallback,
		CreatedAt:    rec.CreatedAt,
	}
	if rec.ResultsJSON != "" {
		if err := json.Unmarshal([]byte(rec.ResultsJSON), &r.Matches); err != nil {
			return Report{}, fmt.Errorf("decode matches: %w", err)
		}
	}
	if rec.HeadingName != "" {
		r.Heading = &signal.Heading{Name: rec.HeadingName}
	}
	return r, nil
}
