package curate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/teleportme/compass/pkg/compass/internalerr"
	"github.com/teleportme/compass/pkg/compass/rank"
)

const (
	// RefinementSize is how many top-scored cities are offered for curation.
	RefinementSize = 8
	// FallbackSize is how many cities the algorithmic fallback keeps.
	FallbackSize = 4
	// MaxPicks caps how many curated picks are accepted.
	MaxPicks = 5
)

// Generator is the external text-generation collaborator.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Candidate is a refinement-set entry as described to the generator.
type Candidate struct {
	ID      string
	Name    string
	Country string
	Score   int
	Scores  map[string]float64
}

// Candidates converts ranked cities to curation candidates.
func Candidates(scored []rank.Scored) []Candidate {
	out := make([]Candidate, 0, len(scored))
	for _, s := range scored {
		out = append(out, Candidate{
			ID:      s.City.ID,
			Name:    s.City.Name,
			Country: s.City.Country,
			Score:   s.Score,
			Scores:  s.City.Scores,
		})
	}
	return out
}

// Pick is one curated city with its one-sentence rationale.
type Pick struct {
	CityID    string `json:"city_id"`
	Rationale string `json:"ai_insight"`
}

// Kind tags the result of a curation attempt.
type Kind string

const (
	Curated       Kind = "curated"
	NeedsFallback Kind = "needs_fallback"
)

// Reason explains why a curation attempt needs the fallback.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonNoGenerator Reason = "no_generator"
	ReasonGenerator   Reason = "generator_error"
	ReasonBreakerOpen Reason = "breaker_open"
	ReasonMalformed   Reason = "malformed"
	ReasonEmpty       Reason = "empty"
	ReasonAllInvalid  Reason = "all_invalid"
)

// Outcome is the validated result of asking the generator for picks.
// Picks is non-empty only when Kind is Curated.
type Outcome struct {
	Kind    Kind
	Reason  Reason
	Picks   []Pick
	Dropped int // returned entries discarded during validation
	// Err wraps internalerr.ErrCuration when the generator call failed.
	Err error
}

// PicksOr returns the curated picks, or the deterministic fallback over
// refinement when curation did not produce any.
func (o Outcome) PicksOr(refinement []Candidate, n int) []Pick {
	if o.Kind == Curated && len(o.Picks) > 0 {
		return o.Picks
	}
	return Fallback(refinement, n)
}

// Fallback picks the first n candidates with a templated rationale.
func Fallback(refinement []Candidate, n int) []Pick {
	if n > len(refinement) {
		n = len(refinement)
	}
	picks := make([]Pick, 0, n)
	for _, c := range refinement[:n] {
		picks = append(picks, Pick{CityID: c.ID, Rationale: FallbackRationale(c.Name)})
	}
	return picks
}

// FallbackRationale is the sentence attached to algorithmic picks.
func FallbackRationale(name string) string {
	return name + " scores well across your priorities with strong marks in the categories you care about most."
}

type rawPick struct {
	CityID    string `json:"city_id"`
	ID        string `json:"id"`
	AIInsight string `json:"ai_insight"`
	Rationale string `json:"rationale"`
}

// Parse validates raw generator output against the refinement set. The
// output is untrusted: fenced or not, it must be a JSON array of picks,
// and only ids from allowed survive.
func Parse(raw string, allowed []Candidate) Outcome {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return Outcome{Kind: NeedsFallback, Reason: ReasonEmpty}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &elems); err != nil {
		return Outcome{Kind: NeedsFallback, Reason: ReasonMalformed}
	}
	if len(elems) == 0 {
		return Outcome{Kind: NeedsFallback, Reason: ReasonEmpty}
	}

	valid := make(map[string]struct{}, len(allowed))
	for _, c := range allowed {
		valid[c.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(elems))
	picks := make([]Pick, 0, MaxPicks)
	dropped := 0
	for _, elem := range elems {
		// a badly typed entry is dropped on its own
		var e rawPick
		if err := json.Unmarshal(elem, &e); err != nil {
			dropped++
			continue
		}
		id := strings.TrimSpace(firstNonEmpty(e.CityID, e.ID))
		text := strings.TrimSpace(firstNonEmpty(e.AIInsight, e.Rationale))
		_, ok := valid[id]
		_, dup := seen[id]
		if !ok || dup || text == "" || len(picks) == MaxPicks {
			dropped++
			continue
		}
		seen[id] = struct{}{}
		picks = append(picks, Pick{CityID: id, Rationale: text})
	}

	if len(picks) == 0 {
		return Outcome{Kind: NeedsFallback, Reason: ReasonAllInvalid, Dropped: dropped}
	}
	return Outcome{Kind: Curated, Picks: picks, Dropped: dropped}
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// BreakerConfig configures the circuit breaker around the generator.
type BreakerConfig struct {
	Name string
	// MaxRequests is the number of requests allowed in half-open state.
	MaxRequests uint32
	// Interval is the cyclic reset period for counts.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "curation",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 3,
	}
}

// Curator asks the generator to curate a refinement set and validates
// what comes back. It never returns an error: every failure becomes an
// Outcome that needs the fallback.
type Curator struct {
	gen     Generator
	breaker *gobreaker.CircuitBreaker[string]
	logger  zerolog.Logger
}

// NewCurator creates a curator. gen may be nil, in which case every
// attempt needs the fallback.
func NewCurator(gen Generator, cfg BreakerConfig, logger zerolog.Logger) *Curator {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// a caller giving up is not a generator failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("curation breaker state changed")
		},
	}
	return &Curator{
		gen:     gen,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		logger:  logger,
	}
}

// Curate asks for 3-5 picks from refinement and validates them.
func (c *Curator) Curate(ctx context.Context, brief Brief, refinement []Candidate) Outcome {
	if c.gen == nil {
		return Outcome{Kind: NeedsFallback, Reason: ReasonNoGenerator}
	}
	if len(refinement) == 0 {
		return Outcome{Kind: NeedsFallback, Reason: ReasonEmpty}
	}

	prompt := brief.Prompt(refinement)
	raw, err := c.breaker.Execute(func() (string, error) {
		return c.gen.Complete(ctx, SystemPrompt, prompt)
	})
	if err != nil {
		reason := ReasonGenerator
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = ReasonBreakerOpen
		}
		c.logger.Warn().Err(err).Str("reason", string(reason)).Msg("curation failed, using algorithmic picks")
		return Outcome{Kind: NeedsFallback, Reason: reason, Err: fmt.Errorf("%w: %v", internalerr.ErrCuration, err)}
	}

	out := Parse(raw, refinement)
	if out.Kind == NeedsFallback {
		c.logger.Warn().Str("reason", string(out.Reason)).Int("dropped", out.Dropped).Msg("curation output unusable, using algorithmic picks")
	} else if out.Dropped > 0 {
		c.logger.Info().Int("dropped", out.Dropped).Int("kept", len(out.Picks)).Msg("discarded invalid curation entries")
	}
	return out
}
