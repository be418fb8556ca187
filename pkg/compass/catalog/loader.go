package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/teleportme/compass/pkg/compass/geo"
	"github.com/teleportme/compass/pkg/compass/internalerr"
	"github.com/teleportme/compass/pkg/compass/store"
)

// PoolSnapshotKey is the cache key of the serialized city pool.
const PoolSnapshotKey = "city_pool"

// Loader assembles city profiles from the backing store.
type Loader struct {
	store  store.Store
	cache  store.Cache
	logger zerolog.Logger
}

// NewLoader creates a loader. cache may be nil, in which case Snapshot
// always reads through to the store.
func NewLoader(st store.Store, cache store.Cache, logger zerolog.Logger) *Loader {
	return &Loader{store: st, cache: cache, logger: logger}
}

// Load reads the current pool. Cities with their scores and the tag rows
// are fetched concurrently and merged once both fetches complete.
func (l *Loader) Load(ctx context.Context) (Pool, error) {
	return l.load(ctx, l.store.ListCityTags)
}

// LoadTagged reads the current pool keeping only the tag rows named in
// tags. Scoring against chosen vibe tags needs nothing else.
func (l *Loader) LoadTagged(ctx context.Context, tags []string) (Pool, error) {
	return l.load(ctx, func(ctx context.Context) ([]store.CityTag, error) {
		return l.store.ListCityTagsByName(ctx, tags)
	})
}

func (l *Loader) load(ctx context.Context, listTags func(context.Context) ([]store.CityTag, error)) (Pool, error) {
	var (
		cities []store.City
		scores []store.CityScore
		tags   []store.CityTag
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cities, err = l.store.ListCities(gctx)
		if err != nil {
			return fmt.Errorf("list cities: %w", err)
		}
		scores, err = l.store.ListCityScores(gctx)
		if err != nil {
			return fmt.Errorf("list city scores: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tags, err = listTags(gctx)
		if err != nil {
			return fmt.Errorf("list city tags: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	pool := Merge(cities, scores, tags)
	l.logger.Debug().Int("cities", len(pool)).Int("scores", len(scores)).Int("tags", len(tags)).Msg("city pool loaded")
	return pool, nil
}

// Snapshot returns the cached pool and whether it is older than ttl. When
// nothing is cached the pool is loaded from the store and saved. Stale
// data is returned as-is; the caller decides whether to Refresh.
func (l *Loader) Snapshot(ctx context.Context, ttl time.Duration) (Pool, bool, error) {
	if l.cache == nil {
		pool, err := l.Load(ctx)
		return pool, false, err
	}

	snap, stale, found, err := l.cache.LoadSnapshot(ctx, PoolSnapshotKey, ttl)
	if err != nil {
		l.logger.Warn().Err(err).Msg("pool snapshot unreadable, loading from store")
	} else if found {
		var pool Pool
		if err := json.Unmarshal(snap.Data, &pool); err == nil {
			return pool, stale, nil
		}
		l.logger.Warn().Str("key", PoolSnapshotKey).Msg("pool snapshot corrupt, loading from store")
	}

	pool, err := l.Refresh(ctx)
	return pool, false, err
}

// Refresh loads the pool from the store and replaces the cached snapshot.
func (l *Loader) Refresh(ctx context.Context) (Pool, error) {
	pool, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	if l.cache == nil {
		return pool, nil
	}
	data, err := json.Marshal(pool)
	if err != nil {
		return nil, err
	}
	if err := l.cache.SaveSnapshot(ctx, PoolSnapshotKey, data); err != nil {
		l.logger.Warn().Err(err).Msg("saving pool snapshot failed")
	}
	return pool, nil
}

// Merge joins city, score and tag rows into profiles, preserving the order
// of cities. Score and tag rows for unknown cities are ignored.
func Merge(cities []store.City, scores []store.CityScore, tags []store.CityTag) Pool {
	index := make(map[string]int, len(cities))
	pool := make(Pool, len(cities))
	for i, c := range cities {
		index[c.ID] = i
		pool[i] = City{
			ID:         c.ID,
			Name:       c.Name,
			FullName:   c.FullName,
			Country:    c.Country,
			Continent:  c.Continent,
			Location:   geo.Point{Lat: c.Latitude, Lon: c.Longitude},
			Population: c.Population,
			ImageURL:   c.ImageURL,
			Scores:     make(map[string]float64),
			Tags:       make(map[string]float64),
		}
	}
	for _, s := range scores {
		if i, ok := index[s.CityID]; ok {
			pool[i].Scores[s.Category] = s.Score
		}
	}
	for _, t := range tags {
		if i, ok := index[t.CityID]; ok {
			pool[i].Tags[t.Tag] = t.Strength
		}
	}
	return pool
}
