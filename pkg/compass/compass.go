package compass

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/teleportme/compass/pkg/compass/analytics"
	"github.com/teleportme/compass/pkg/compass/catalog"
	"github.com/teleportme/compass/pkg/compass/curate"
	"github.com/teleportme/compass/pkg/compass/geo"
	"github.com/teleportme/compass/pkg/compass/internalerr"
	"github.com/teleportme/compass/pkg/compass/metrics"
	"github.com/teleportme/compass/pkg/compass/preview"
	"github.com/teleportme/compass/pkg/compass/rank"
	"github.com/teleportme/compass/pkg/compass/report"
	"github.com/teleportme/compass/pkg/compass/signal"
	"github.com/teleportme/compass/pkg/compass/similar"
	"github.com/teleportme/compass/pkg/compass/store"
	"github.com/teleportme/compass/pkg/compass/trip"
)

var validate = validator.New()

// Engine is the matching engine facade
type Engine struct {
	store     store.Store
	loader    *catalog.Loader
	scorer    *rank.Scorer
	curator   *curate.Curator
	builder   *report.Builder
	finder    similar.Finder
	estimator preview.Estimator
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	refinementSize int
	fallbackSize   int
	retain         float64
	snapshotTTL    time.Duration
}

// Options configures an Engine
type Options struct {
	Store store.Store
	// Cache backs the preview snapshot; nil reads through to Store.
	Cache store.Cache
	// Generator curates the refinement set; nil always uses the fallback.
	Generator curate.Generator
	Breaker   curate.BreakerConfig
	Weights   rank.Weights
	// Origin is the traveler's position for preview distance scoring.
	Origin geo.Point

	RefinementSize int
	FallbackSize   int
	// Retain is the heading smoothing factor; values outside (0, 1] use
	// signal.DefaultRetain.
	Retain      float64
	SnapshotTTL time.Duration

	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	if opts.RefinementSize <= 0 {
		opts.RefinementSize = curate.RefinementSize
	}
	if opts.FallbackSize <= 0 {
		opts.FallbackSize = curate.FallbackSize
	}
	if opts.Retain <= 0 || opts.Retain > 1 {
		opts.Retain = signal.DefaultRetain
	}
	if opts.Weights == (rank.Weights{}) {
		opts.Weights = rank.DefaultWeights()
	}
	if opts.Breaker == (curate.BreakerConfig{}) {
		opts.Breaker = curate.DefaultBreakerConfig()
	}
	return &Engine{
		store:          opts.Store,
		loader:         catalog.NewLoader(opts.Store, opts.Cache, opts.Logger),
		scorer:         rank.NewScorer(opts.Weights),
		curator:        curate.NewCurator(opts.Generator, opts.Breaker, opts.Logger),
		builder:        report.New(),
		finder:         similar.NewFinder(),
		estimator:      preview.Estimator{Origin: opts.Origin},
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		refinementSize: opts.RefinementSize,
		fallbackSize:   opts.FallbackSize,
		retain:         opts.Retain,
		snapshotTTL:    opts.SnapshotTTL,
	}
}

// Close cleanly shuts down the Engine
func (e *Engine) Close() error {
	return e.store.Close()
}

// Request defines a ranking request
type Request struct {
	UserID     string    `json:"user_id,omitempty"`
	BaselineID string    `json:"baseline_id,omitempty"`
	Mode       rank.Mode `json:"mode" validate:"required,oneof=legacy signals"`

	Preferences rank.Preferences `json:"preferences"`
	// Signals are the compass weights for signal mode. When empty, the
	// user's persisted weights are used, then the baseline city's profile.
	Signals     signal.Weights   `json:"signals,omitempty" validate:"dive,gte=0"`
	Constraints trip.Constraints `json:"constraints"`
}

// Generate runs the canonical pipeline: score every non-baseline city,
// curate the top of the ranking, fall back when curation is unusable and
// persist the result for the user. Nothing is written once ctx is done.
func (e *Engine) Generate(ctx context.Context, req Request) (report.Report, error) {
	if err := validate.Struct(req); err != nil {
		return report.Report{}, fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
	}
	for s := range req.Signals {
		if !s.Valid() {
			return report.Report{}, fmt.Errorf("%w: unknown signal %q", internalerr.ErrInvalidInput, s)
		}
	}

	var pool catalog.Pool
	var err error
	if req.Mode == rank.ModeLegacy && len(req.Preferences.Tags) > 0 {
		pool, err = e.loader.LoadTagged(ctx, req.Preferences.Tags)
	} else {
		pool, err = e.loader.Load(ctx)
	}
	if err != nil {
		return report.Report{}, err
	}
	e.metrics.SetPoolSize(len(pool))

	var baseline *catalog.City
	if req.BaselineID != "" {
		if c, ok := pool.Find(req.BaselineID); ok {
			baseline = &c
		} else {
			e.logger.Warn().Str("baseline_id", req.BaselineID).Msg("baseline city not found, comparing against neutral scores")
		}
	}

	candidates := pool.Without(req.BaselineID)
	if len(candidates) == 0 {
		return report.Report{}, fmt.Errorf("%w: no candidate cities", internalerr.ErrNotFound)
	}

	brief := curate.Brief{
		Mode:        req.Mode,
		Baseline:    baseline,
		Preferences: req.Preferences,
		Constraints: req.Constraints,
	}
	var scored []rank.Scored
	switch req.Mode {
	case rank.ModeSignals:
		weights, err := e.requestWeights(ctx, req, baseline)
		if err != nil {
			return report.Report{}, err
		}
		brief.Weights = weights
		brief.Heading = signal.HeadingFor(weights)
		scored = e.scoreSignals(weights, req.Constraints, candidates)
	default:
		scored = e.scoreLegacy(req.Preferences, candidates)
	}

	ranked := rank.Rank(scored)
	refinement := rank.Top(ranked, e.refinementSize)
	offered := curate.Candidates(refinement)

	start := time.Now()
	outcome := e.curator.Curate(ctx, brief, offered)
	e.metrics.RecordCuration(string(outcome.Kind), string(outcome.Reason), time.Since(start))
	picks := outcome.PicksOr(offered, e.fallbackSize)

	rep := e.builder.Build(baseline, refinement, picks)
	rep.Mode = req.Mode
	rep.UsedFallback = outcome.Kind != curate.Curated
	if req.Mode == rank.ModeSignals {
		h := brief.Heading
		rep.Heading = &h
	}

	if err := ctx.Err(); err != nil {
		return report.Report{}, err
	}
	if req.UserID != "" {
		rec, err := rep.Record(req.UserID, req)
		if err != nil {
			return report.Report{}, err
		}
		if err := e.store.SaveReport(ctx, rec); err != nil {
			return report.Report{}, fmt.Errorf("save report: %w", err)
		}
	}

	e.metrics.RecordReport(string(req.Mode), rep.UsedFallback)
	e.logger.Info().
		Str("report_id", rep.ID).
		Str("mode", string(req.Mode)).
		Int("candidates", len(candidates)).
		Int("matches", len(rep.Matches)).
		Bool("fallback", rep.UsedFallback).
		Str("reason", string(outcome.Reason)).
		Msg("report generated")
	return rep, nil
}

// requestWeights resolves the signal weights for a request.
func (e *Engine) requestWeights(ctx context.Context, req Request, baseline *catalog.City) (signal.Weights, error) {
	if len(req.Signals.Active()) > 0 {
		return req.Signals, nil
	}
	if req.UserID != "" {
		raw, found, err := e.store.GetSignalWeights(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
		}
		if w := signal.Decode(raw); found && len(w.Active()) > 0 {
			return w, nil
		}
	}
	if baseline != nil {
		return signal.FromCityScores(baseline.Scores), nil
	}
	return signal.Weights{}, nil
}

func (e *Engine) scoreSignals(w signal.Weights, c trip.Constraints, cities catalog.Pool) []rank.Scored {
	out := make([]rank.Scored, 0, len(cities))
	for _, city := range cities {
		b := e.scorer.ScoreSignals(w, c, city)
		out = append(out, rank.Scored{City: city, Score: b.Total, Breakdown: b})
	}
	return out
}

func (e *Engine) scoreLegacy(p rank.Preferences, cities catalog.Pool) []rank.Scored {
	out := make([]rank.Scored, 0, len(cities))
	for _, city := range cities {
		b := e.scorer.ScoreLegacy(p, city)
		out = append(out, rank.Scored{City: city, Score: b.Total, Breakdown: b})
	}
	return out
}

// Similar returns the k cities most similar to cityID.
func (e *Engine) Similar(ctx context.Context, cityID string, k int) ([]similar.Result, error) {
	pool, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	target, ok := pool.Find(cityID)
	if !ok {
		return nil, fmt.Errorf("%w: city %q", internalerr.ErrNotFound, cityID)
	}
	e.metrics.RecordSimilarity()
	return e.finder.Similar(target, pool, k), nil
}

// PreviewRequest asks for instant estimates over the cached pool
type PreviewRequest struct {
	Weights     signal.Weights
	Constraints trip.Constraints
	// Refresh reloads the pool when the cached snapshot is stale.
	Refresh bool
	Limit   int
}

// PreviewResult carries estimates and whether they came from a stale snapshot
type PreviewResult struct {
	Estimates []preview.Estimate `json:"estimates"`
	Stale     bool               `json:"stale"`
}

// Preview estimates every city against req using the cached pool.
func (e *Engine) Preview(ctx context.Context, req PreviewRequest) (PreviewResult, error) {
	pool, stale, err := e.loader.Snapshot(ctx, e.snapshotTTL)
	if err != nil {
		return PreviewResult{}, err
	}
	if stale && req.Refresh {
		if pool, err = e.loader.Refresh(ctx); err != nil {
			return PreviewResult{}, err
		}
		stale = false
	}
	e.metrics.RecordSnapshot(stale)
	if stale {
		e.logger.Debug().Msg("preview served from stale snapshot")
	}

	estimates := e.estimator.Rank(req.Weights, req.Constraints, pool)
	if req.Limit > 0 && len(estimates) > req.Limit {
		estimates = estimates[:req.Limit]
	}
	return PreviewResult{Estimates: estimates, Stale: stale}, nil
}

// Analyze summarises catalog coverage over the similarity categories.
// Orphan tags must be carried by at least minPercent of cities.
func (e *Engine) Analyze(ctx context.Context, minPercent float64, pairLimit int) (analytics.Summary, error) {
	pool, err := e.loader.Load(ctx)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Analyze(pool).Summarize(similar.Categories, minPercent, pairLimit), nil
}

// Refresh reloads the city pool and replaces the preview snapshot. It
// returns the number of cities loaded.
func (e *Engine) Refresh(ctx context.Context) (int, error) {
	pool, err := e.loader.Refresh(ctx)
	if err != nil {
		return 0, err
	}
	e.metrics.SetPoolSize(len(pool))
	return len(pool), nil
}

// Heading returns the user's persisted weights and the heading they give.
func (e *Engine) Heading(ctx context.Context, userID string) (signal.Weights, signal.Heading, error) {
	raw, _, err := e.store.GetSignalWeights(ctx, userID)
	if err != nil {
		return nil, signal.Heading{}, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	w := signal.Decode(raw)
	return w, signal.HeadingFor(w), nil
}

// EvolveHeading blends newly active signals into the user's persisted
// weights and stores the result.
func (e *Engine) EvolveHeading(ctx context.Context, userID string, active signal.Weights) (signal.Weights, signal.Heading, error) {
	if userID == "" {
		return nil, signal.Heading{}, fmt.Errorf("%w: user id required", internalerr.ErrInvalidInput)
	}
	existing, _, err := e.Heading(ctx, userID)
	if err != nil {
		return nil, signal.Heading{}, err
	}
	merged := signal.Evolve(existing, signal.Decode(active.Encode()), e.retain)
	if err := ctx.Err(); err != nil {
		return nil, signal.Heading{}, err
	}
	if err := e.store.PutSignalWeights(ctx, userID, merged.Encode()); err != nil {
		return nil, signal.Heading{}, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	return merged, signal.HeadingFor(merged), nil
}

// Report returns a persisted report by ID.
func (e *Engine) Report(ctx context.Context, id string) (report.Report, error) {
	rec, found, err := e.store.GetReport(ctx, id)
	if err != nil {
		return report.Report{}, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if !found {
		return report.Report{}, fmt.Errorf("%w: report %q", internalerr.ErrNotFound, id)
	}
	return report.FromRecord(rec)
}

// Reports lists a user's persisted reports, newest first.
func (e *Engine) Reports(ctx context.Context, userID string, limit int) ([]report.Report, error) {
	recs, err := e.store.ListReports(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	out := make([]report.Report, 0, len(recs))
	for _, rec := range recs {
		r, err := report.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
