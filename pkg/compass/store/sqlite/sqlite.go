package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teleportme/compass/pkg/compass/store"
)

// timeLayout keeps fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteStore implements store.Store and store.Cache using SQLite
type sqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

// DB is the concrete SQLite store; it satisfies both store.Store and
// store.Cache.
type DB interface {
	store.Store
	store.Cache
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema if needed.
func OpenSQLite(ctx context.Context, path string) (DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS cities (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	full_name TEXT,
	country TEXT,
	continent TEXT,
	latitude REAL NOT NULL DEFAULT 0,
	longitude REAL NOT NULL DEFAULT 0,
	population INTEGER DEFAULT 0,
	image_url TEXT
);

CREATE TABLE IF NOT EXISTS city_scores (
	city_id TEXT NOT NULL,
	category TEXT NOT NULL,
	score REAL NOT NULL,
	PRIMARY KEY(city_id, category),
	FOREIGN KEY(city_id) REFERENCES cities(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS city_tags (
	city_id TEXT NOT NULL,
	tag TEXT NOT NULL,
	strength REAL NOT NULL DEFAULT 1,
	PRIMARY KEY(city_id, tag),
	FOREIGN KEY(city_id) REFERENCES cities(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_city_tags_tag ON city_tags(tag);

CREATE TABLE IF NOT EXISTS signal_weights (
	user_id TEXT NOT NULL,
	signal TEXT NOT NULL,
	weight REAL NOT NULL,
	PRIMARY KEY(user_id, signal)
);

CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	baseline_id TEXT,
	mode TEXT,
	request_json TEXT,
	results_json TEXT,
	heading_name TEXT,
	used_fallback INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(user_id, created_at);

CREATE TABLE IF NOT EXISTS snapshots (
	key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	saved_at TEXT NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertCity inserts or updates a city row
func (s *sqliteStore) UpsertCity(ctx context.Context, c store.City) error {
	if c.ID == "" {
		return fmt.Errorf("sqlite: city id required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO cities (id, name, full_name, country, continent, latitude, longitude, population, image_url)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	full_name=excluded.full_name,
	country=excluded.country,
	continent=excluded.continent,
	latitude=excluded.latitude,
	longitude=excluded.longitude,
	population=excluded.population,
	image_url=excluded.image_url;
`, c.ID, c.Name, c.FullName, c.Country, c.Continent, c.Latitude, c.Longitude, c.Population, c.ImageURL)
	return err
}

// ListCities returns every city ordered by id
func (s *sqliteStore) ListCities(ctx context.Context) ([]store.City, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, COALESCE(full_name, ''), COALESCE(country, ''), COALESCE(continent, ''),
	latitude, longitude, COALESCE(population, 0), COALESCE(image_url, '')
FROM cities
ORDER BY id;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.City
	for rows.Next() {
		var c store.City
		if err := rows.Scan(&c.ID, &c.Name, &c.FullName, &c.Country, &c.Continent,
			&c.Latitude, &c.Longitude, &c.Population, &c.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCityScores replaces the score rows of one city
func (s *sqliteStore) UpsertCityScores(ctx context.Context, cityID string, scores map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM city_scores WHERE city_id=?`, cityID); err != nil {
		return err
	}
	if len(scores) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO city_scores (city_id, category, score) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, cat := range sortedKeys(scores) {
			if cat == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, cityID, cat, scores[cat]); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// ListCityScores returns every (city, category, score) row
func (s *sqliteStore) ListCityScores(ctx context.Context) ([]store.CityScore, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT city_id, category, score FROM city_scores ORDER BY city_id, category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.CityScore
	for rows.Next() {
		var cs store.CityScore
		if err := rows.Scan(&cs.CityID, &cs.Category, &cs.Score); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// UpsertCityTags replaces the tag rows of one city
func (s *sqliteStore) UpsertCityTags(ctx context.Context, cityID string, tags map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM city_tags WHERE city_id=?`, cityID); err != nil {
		return err
	}
	if len(tags) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO city_tags (city_id, tag, strength) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, tag := range sortedKeys(tags) {
			if tag == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, cityID, tag, tags[tag]); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// ListCityTags returns every (city, tag, strength) row
func (s *sqliteStore) ListCityTags(ctx context.Context) ([]store.CityTag, error) {
	return s.queryTags(ctx, `SELECT city_id, tag, strength FROM city_tags ORDER BY city_id, tag`)
}

// ListCityTagsByName returns tag rows whose tag is in names
func (s *sqliteStore) ListCityTagsByName(ctx context.Context, names []string) ([]store.CityTag, error) {
	unique := uniqueStrings(names)
	if len(unique) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	args := make([]interface{}, 0, len(unique))
	for _, n := range unique {
		args = append(args, n)
	}

	query := fmt.Sprintf(`
SELECT city_id, tag, strength
FROM city_tags
WHERE tag IN (%s)
ORDER BY city_id, tag;
`, placeholders)
	return s.queryTags(ctx, query, args...)
}

func (s *sqliteStore) queryTags(ctx context.Context, query string, args ...interface{}) ([]store.CityTag, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.CityTag
	for rows.Next() {
		var ct store.CityTag
		if err := rows.Scan(&ct.CityID, &ct.Tag, &ct.Strength); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// GetSignalWeights loads the persisted weights of a user
func (s *sqliteStore) GetSignalWeights(ctx context.Context, userID string) (map[string]float64, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT signal, weight FROM signal_weights WHERE user_id=?`, userID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var sig string
		var w float64
		if err := rows.Scan(&sig, &w); err != nil {
			return nil, false, err
		}
		out[sig] = w
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return out, len(out) > 0, nil
}

// PutSignalWeights replaces the persisted weights of a user
func (s *sqliteStore) PutSignalWeights(ctx context.Context, userID string, weights map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM signal_weights WHERE user_id=?`, userID); err != nil {
		return err
	}
	if len(weights) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO signal_weights (user_id, signal, weight) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, sig := range sortedKeys(weights) {
			if _, err := stmt.ExecContext(ctx, userID, sig, weights[sig]); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// SaveReport inserts or replaces a ranked result
func (s *sqliteStore) SaveReport(ctx context.Context, r store.Report) error {
	created := r.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	fallback := 0
	if r.UsedFallback {
		fallback = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO reports (id, user_id, baseline_id, mode, request_json, results_json, heading_name, used_fallback, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	user_id=excluded.user_id,
	baseline_id=excluded.baseline_id,
	mode=excluded.mode,
	request_json=excluded.request_json,
	results_json=excluded.results_json,
	heading_name=excluded.heading_name,
	used_fallback=excluded.used_fallback,
	created_at=excluded.created_at;
`, r.ID, r.UserID, r.BaselineID, r.Mode, r.RequestJSON, r.ResultsJSON, r.HeadingName, fallback,
		created.UTC().Format(timeLayout))
	return err
}

const reportColumns = `id, COALESCE(user_id, ''), COALESCE(baseline_id, ''), COALESCE(mode, ''),
	COALESCE(request_json, ''), COALESCE(results_json, ''), COALESCE(heading_name, ''), used_fallback, created_at`

// GetReport loads a report by id
func (s *sqliteStore) GetReport(ctx context.Context, id string) (store.Report, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=?`, id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return store.Report{}, false, nil
	}
	if err != nil {
		return store.Report{}, false, err
	}
	return r, true, nil
}

// ListReports returns a user's reports, newest first
func (s *sqliteStore) ListReports(ctx context.Context, userID string, limit int) ([]store.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+`
FROM reports
WHERE user_id=?
ORDER BY created_at DESC
LIMIT ?;`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row scanner) (store.Report, error) {
	var (
		r        store.Report
		fallback int
		created  string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.BaselineID, &r.Mode, &r.RequestJSON, &r.ResultsJSON,
		&r.HeadingName, &fallback, &created); err != nil {
		return store.Report{}, err
	}
	r.UsedFallback = fallback != 0
	ts, err := time.Parse(timeLayout, created)
	if err != nil {
		return store.Report{}, fmt.Errorf("sqlite: report %s created_at: %w", r.ID, err)
	}
	r.CreatedAt = ts
	return r, nil
}

// LoadSnapshot returns a cached snapshot and whether it outlived ttl
func (s *sqliteStore) LoadSnapshot(ctx context.Context, key string, ttl time.Duration) (store.Snapshot, bool, bool, error) {
	var (
		data  []byte
		saved string
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, saved_at FROM snapshots WHERE key=?`, key).Scan(&data, &saved)
	if err == sql.ErrNoRows {
		return store.Snapshot{}, false, false, nil
	}
	if err != nil {
		return store.Snapshot{}, false, false, err
	}
	ts, err := time.Parse(timeLayout, saved)
	if err != nil {
		return store.Snapshot{}, false, false, fmt.Errorf("sqlite: snapshot %s saved_at: %w", key, err)
	}
	snap := store.Snapshot{Key: key, Data: data, SavedAt: ts}
	return snap, store.IsStale(ts, s.now(), ttl), true, nil
}

// SaveSnapshot stores data under key with the current time
func (s *sqliteStore) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO snapshots (key, data, saved_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET data=excluded.data, saved_at=excluded.saved_at;
`, key, data, s.now().UTC().Format(timeLayout))
	return err
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func uniqueStrings(in []string) []string {
	set := make(map[string]struct{}, len(in))
	var out []string
	for _, val := range in {
		if val == "" {
			continue
		}
		if _, ok := set[val]; ok {
			continue
		}
		set[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
