package store

import (
	"context"
	"time"
)

// Store is the backing store the engine reads cities from and writes
// per-user state to.
type Store interface {
	Close() error

	// Cities
	UpsertCity(ctx context.Context, c City) error
	ListCities(ctx context.Context) ([]City, error)

	// Scores & tags
	UpsertCityScores(ctx context.Context, cityID string, scores map[string]float64) error
	ListCityScores(ctx context.Context) ([]CityScore, error)
	UpsertCityTags(ctx context.Context, cityID string, tags map[string]float64) error
	ListCityTags(ctx context.Context) ([]CityTag, error)
	ListCityTagsByName(ctx context.Context, names []string) ([]CityTag, error)

	// Per-user state
	GetSignalWeights(ctx context.Context, userID string) (map[string]float64, bool, error)
	PutSignalWeights(ctx context.Context, userID string, weights map[string]float64) error

	// Reports
	SaveReport(ctx context.Context, r Report) error
	GetReport(ctx context.Context, id string) (Report, bool, error)
	ListReports(ctx context.Context, userID string, limit int) ([]Report, error)
}

// Cache stores serialized snapshots keyed by logical resource name.
type Cache interface {
	// LoadSnapshot returns the snapshot for key. stale is true when the
	// snapshot is older than ttl; found is false when nothing was saved.
	LoadSnapshot(ctx context.Context, key string, ttl time.Duration) (snap Snapshot, stale bool, found bool, err error)
	SaveSnapshot(ctx context.Context, key string, data []byte) error
}

// City is a stored city row.
type City struct {
	ID         string
	Name       string
	FullName   string
	Country    string
	Continent  string
	Latitude   float64
	Longitude  float64
	Population int64
	ImageURL   string
}

// CityScore is one (city, category, score) row. Scores range 0-10.
type CityScore struct {
	CityID   string
	Category string
	Score    float64
}

// CityTag is one (city, tag) row with a 0-1 strength.
type CityTag struct {
	CityID   string
	Tag      string
	Strength float64
}

// Report is a persisted ranked result.
type Report struct {
	ID           string
	UserID       string
	BaselineID   string
	Mode         string
	RequestJSON  string // JSON-encoded request snapshot
	ResultsJSON  string // JSON-encoded matches
	HeadingName  string
	UsedFallback bool
	CreatedAt    time.Time
}

// Snapshot is a cached payload with the time it was saved.
type Snapshot struct {
	Key     string
	Data    []byte
	SavedAt time.Time
}

// IsStale reports whether a snapshot saved at savedAt has outlived ttl.
// A non-positive ttl never goes stale.
func IsStale(savedAt, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(savedAt) > ttl
}
