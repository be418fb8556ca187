package curate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/teleportme/compass/pkg/compass/catalog"
	"github.com/teleportme/compass/pkg/compass/internalerr"
	"github.com/teleportme/compass/pkg/compass/rank"
	"github.com/teleportme/compass/pkg/compass/signal"
	"github.com/teleportme/compass/pkg/compass/trip"
)

type stubGenerator struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (s *stubGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	s.prompt = user
	return s.reply, s.err
}

func refinementSet() []Candidate {
	names := []string{"Lisbon", "Porto", "Valencia", "Athens", "Split", "Seville"}
	out := make([]Candidate, 0, len(names))
	for i, n := range names {
		out = append(out, Candidate{
			ID:     strings.ToLower(n),
			Name:   n,
			Score:  90 - i,
			Scores: map[string]float64{"Cost of Living": 6},
		})
	}
	return out
}

func TestParseValid(t *testing.T) {
	raw := "```json\n[{\"city_id\":\"porto\",\"ai_insight\":\"Great food.\"},{\"id\":\"split\",\"rationale\":\"Sunny coast.\"}]\n```"
	out := Parse(raw, refinementSet())
	if out.Kind != Curated {
		t.Fatalf("expected curated, got %s (%s)", out.Kind, out.Reason)
	}
	if len(out.Picks) != 2 || out.Picks[0].CityID != "porto" || out.Picks[1].CityID != "split" {
		t.Fatalf("unexpected picks %+v", out.Picks)
	}
	if out.Picks[1].Rationale != "Sunny coast." {
		t.Fatalf("alternate keys not honoured: %+v", out.Picks[1])
	}
}

func TestParseDropsUnknownDuplicateAndEmpty(t *testing.T) {
	raw := `[
		{"city_id":"atlantis","ai_insight":"Made up."},
		{"city_id":"lisbon","ai_insight":"Hills and light."},
		{"city_id":"lisbon","ai_insight":"Again."},
		{"city_id":"athens","ai_insight":"   "}
	]`
	out := Parse(raw, refinementSet())
	if out.Kind != Curated || len(out.Picks) != 1 || out.Picks[0].CityID != "lisbon" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Dropped != 3 {
		t.Fatalf("expected 3 dropped, got %d", out.Dropped)
	}

	// a wrongly typed entry is dropped on its own
	raw = `[
		{"city_id":"lisbon","ai_insight":"Hills and light."},
		{"city_id":42,"ai_insight":"Not a string id."},
		{"city_id":"athens","ai_insight":"Old stones."},
		"lisbon"
	]`
	out = Parse(raw, refinementSet())
	if out.Kind != Curated || len(out.Picks) != 2 {
		t.Fatalf("expected the two valid picks, got %+v", out)
	}
	if out.Picks[0].CityID != "lisbon" || out.Picks[1].CityID != "athens" {
		t.Fatalf("unexpected picks %+v", out.Picks)
	}
	if out.Dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", out.Dropped)
	}
}

func TestParseCapsPicks(t *testing.T) {
	var parts []string
	for _, c := range refinementSet() {
		parts = append(parts, `{"city_id":"`+c.ID+`","ai_insight":"Good."}`)
	}
	out := Parse("["+strings.Join(parts, ",")+"]", refinementSet())
	if len(out.Picks) != MaxPicks {
		t.Fatalf("expected %d picks, got %d", MaxPicks, len(out.Picks))
	}
}

func TestParseNeedsFallback(t *testing.T) {
	cases := []struct {
		raw  string
		want Reason
	}{
		{"", ReasonEmpty},
		{"```json\n```", ReasonEmpty},
		{"[]", ReasonEmpty},
		{"Sure! Here are some cities:", ReasonMalformed},
		{`{"city_id":"lisbon"}`, ReasonMalformed},
		{`[{"city_id":"nowhere","ai_insight":"x"}]`, ReasonAllInvalid},
	}
	for _, tc := range cases {
		out := Parse(tc.raw, refinementSet())
		if out.Kind != NeedsFallback || out.Reason != tc.want {
			t.Errorf("Parse(%q) = %s/%s, want needs_fallback/%s", tc.raw, out.Kind, out.Reason, tc.want)
		}
		if len(out.Picks) != 0 {
			t.Errorf("Parse(%q) returned picks on fallback", tc.raw)
		}
	}
}

func TestFallbackTopFour(t *testing.T) {
	ref := refinementSet()
	picks := Fallback(ref, FallbackSize)
	if len(picks) != 4 {
		t.Fatalf("expected 4 picks, got %d", len(picks))
	}
	for i, p := range picks {
		if p.CityID != ref[i].ID {
			t.Fatalf("pick %d: expected %s, got %s", i, ref[i].ID, p.CityID)
		}
		want := ref[i].Name + " scores well across your priorities with strong marks in the categories you care about most."
		if p.Rationale != want {
			t.Fatalf("unexpected rationale %q", p.Rationale)
		}
	}
	if got := Fallback(ref[:2], FallbackSize); len(got) != 2 {
		t.Fatalf("fallback over a short set should keep all, got %d", len(got))
	}
}

func TestCuratorFallsBackOnGeneratorError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("upstream 500")}
	c := NewCurator(gen, DefaultBreakerConfig(), zerolog.Nop())

	out := c.Curate(context.Background(), Brief{Mode: rank.ModeLegacy}, refinementSet())
	if out.Kind != NeedsFallback || out.Reason != ReasonGenerator {
		t.Fatalf("expected generator fallback, got %+v", out)
	}
	if !errors.Is(out.Err, internalerr.ErrCuration) {
		t.Fatalf("expected curation error, got %v", out.Err)
	}
	picks := out.PicksOr(refinementSet(), FallbackSize)
	if len(picks) != 4 || picks[0].CityID != "lisbon" {
		t.Fatalf("unexpected fallback picks %+v", picks)
	}
}

func TestCuratorBreakerOpens(t *testing.T) {
	gen := &stubGenerator{err: errors.New("timeout")}
	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 2
	c := NewCurator(gen, cfg, zerolog.Nop())

	for i := 0; i < 2; i++ {
		c.Curate(context.Background(), Brief{}, refinementSet())
	}
	out := c.Curate(context.Background(), Brief{}, refinementSet())
	if out.Reason != ReasonBreakerOpen {
		t.Fatalf("expected breaker open, got %s", out.Reason)
	}
	if gen.calls != 2 {
		t.Fatalf("open breaker must not call the generator, calls=%d", gen.calls)
	}
}

func TestCuratorNoGenerator(t *testing.T) {
	c := NewCurator(nil, DefaultBreakerConfig(), zerolog.Nop())
	out := c.Curate(context.Background(), Brief{}, refinementSet())
	if out.Reason != ReasonNoGenerator {
		t.Fatalf("expected no_generator, got %s", out.Reason)
	}
}

func TestCuratorCurated(t *testing.T) {
	gen := &stubGenerator{reply: `[{"city_id":"valencia","ai_insight":"Beach and paella."},{"city_id":"seville","ai_insight":"Warm and historic."},{"city_id":"porto","ai_insight":"Cheap and charming."}]`}
	c := NewCurator(gen, DefaultBreakerConfig(), zerolog.Nop())

	base := catalog.City{ID: "ldn", Name: "London", Country: "UK", Scores: map[string]float64{"Cost of Living": 2}}
	brief := Brief{
		Mode:        rank.ModeSignals,
		Baseline:    &base,
		Weights:     signal.Weights{signal.Climate: 3, signal.Food: 2},
		Heading:     signal.HeadingFor(signal.Weights{signal.Climate: 3, signal.Food: 2}),
		Constraints: trip.Constraints{BudgetVibe: trip.BudgetAffordable},
	}
	out := c.Curate(context.Background(), brief, refinementSet())
	if out.Kind != Curated || len(out.Picks) != 3 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Picks[0].CityID != "valencia" {
		t.Fatalf("curated order must be preserved, got %s", out.Picks[0].CityID)
	}
	for _, want := range []string{"London", "Climate", "Budget: affordable", `id="lisbon"`, "Cost=6.0"} {
		if !strings.Contains(gen.prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gen.prompt)
		}
	}
}

func TestBriefLegacyPrompt(t *testing.T) {
	p := Brief{Mode: rank.ModeLegacy, Preferences: rank.Preferences{Cost: 8, Tags: []string{"Foodie"}}}.Prompt(refinementSet()[:1])
	for _, want := range []string{"not told us", "Affordable cost of living: 8/10", "Vibes: Foodie", "Jobs=?"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}
