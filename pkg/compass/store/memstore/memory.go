package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/teleportme/compass/pkg/compass/store"
)

// Store is an in-memory implementation of store.Store and store.Cache for
// tests and local runs.
type Store struct {
	mu        sync.RWMutex
	cities    map[string]store.City
	scores    map[string]map[string]float64
	tags      map[string]map[string]float64
	weights   map[string]map[string]float64
	reports   map[string]store.Report
	snapshots map[string]store.Snapshot

	// Now is the clock used for snapshots and reports; defaults to time.Now.
	Now func() time.Time
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		cities:    make(map[string]store.City),
		scores:    make(map[string]map[string]float64),
		tags:      make(map[string]map[string]float64),
		weights:   make(map[string]map[string]float64),
		reports:   make(map[string]store.Report),
		snapshots: make(map[string]store.Snapshot),
		Now:       time.Now,
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertCity inserts or replaces a city, keyed by ID.
func (s *Store) UpsertCity(ctx context.Context, c store.City) error {
	if c.ID == "" {
		return fmt.Errorf("memstore: city id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cities[c.ID] = c
	return nil
}

// ListCities returns all cities ordered by ID.
func (s *Store) ListCities(ctx context.Context) ([]store.City, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.City, 0, len(s.cities))
	for _, c := range s.cities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertCityScores replaces a city's scores.
func (s *Store) UpsertCityScores(ctx context.Context, cityID string, scores map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[cityID] = copyMap(scores)
	return nil
}

// ListCityScores returns all score rows ordered by city and category.
func (s *Store) ListCityScores(ctx context.Context) ([]store.CityScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.CityScore
	for cityID, scores := range s.scores {
		for cat, v := range scores {
			out = append(out, store.CityScore{CityID: cityID, Category: cat, Score: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CityID != out[j].CityID {
			return out[i].CityID < out[j].CityID
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// UpsertCityTags replaces a city's tags.
func (s *Store) UpsertCityTags(ctx context.Context, cityID string, tags map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[cityID] = copyMap(tags)
	return nil
}

// ListCityTags returns all tag rows ordered by city and tag.
func (s *Store) ListCityTags(ctx context.Context) ([]store.CityTag, error) {
	return s.filterTags(nil), nil
}

// ListCityTagsByName returns tag rows whose tag is in names.
func (s *Store) ListCityTagsByName(ctx context.Context, names []string) ([]store.CityTag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	return s.filterTags(want), nil
}

func (s *Store) filterTags(want map[string]struct{}) []store.CityTag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.CityTag
	for cityID, tags := range s.tags {
		for tag, strength := range tags {
			if want != nil {
				if _, ok := want[tag]; !ok {
					continue
				}
			}
			out = append(out, store.CityTag{CityID: cityID, Tag: tag, Strength: strength})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CityID != out[j].CityID {
			return out[i].CityID < out[j].CityID
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// GetSignalWeights returns a copy of a user's weights.
func (s *Store) GetSignalWeights(ctx context.Context, userID string) (map[string]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weights[userID]
	if !ok {
		return map[string]float64{}, false, nil
	}
	return copyMap(w), true, nil
}

// PutSignalWeights replaces a user's weights.
func (s *Store) PutSignalWeights(ctx context.Context, userID string, weights map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights[userID] = copyMap(weights)
	return nil
}

// SaveReport stores a report, keyed by ID.
func (s *Store) SaveReport(ctx context.Context, r store.Report) error {
	if r.ID == "" {
		return fmt.Errorf("memstore: report id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.Now()
	}
	s.reports[r.ID] = r
	return nil
}

// GetReport returns a report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (store.Report, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	return r, ok, nil
}

// ListReports returns a user's reports, newest first.
func (s *Store) ListReports(ctx context.Context, userID string, limit int) ([]store.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	var out []store.Report
	for _, r := range s.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReportCount returns how many reports are stored.
func (s *Store) ReportCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// LoadSnapshot implements store.Cache.
func (s *Store) LoadSnapshot(ctx context.Context, key string, ttl time.Duration) (store.Snapshot, bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[key]
	if !ok {
		return store.Snapshot{}, false, false, nil
	}
	snap.Data = append([]byte(nil), snap.Data...)
	return snap, store.IsStale(snap.SavedAt, s.Now(), ttl), true, nil
}

// SaveSnapshot implements store.Cache.
func (s *Store) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[key] = store.Snapshot{
		Key:     key,
		Data:    append([]byte(nil), data...),
		SavedAt: s.Now(),
	}
	return nil
}

func copyMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
