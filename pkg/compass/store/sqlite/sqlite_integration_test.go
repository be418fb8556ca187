package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/teleportme/compass/pkg/compass/store"
)

func openTestStore(t *testing.T) DB {
	t.Helper()
	ctx := context.Background()
	st, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSQLiteCityRoundTrip tests city, score and tag persistence
func TestSQLiteCityRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	city := store.City{
		ID:         "lisbon",
		Name:       "Lisbon",
		FullName:   "Lisbon, Portugal",
		Country:    "Portugal",
		Continent:  "Europe",
		Latitude:   38.72,
		Longitude:  -9.14,
		Population: 545000,
	}
	if err := st.UpsertCity(ctx, city); err != nil {
		t.Fatalf("UpsertCity: %v", err)
	}
	if err := st.UpsertCityScores(ctx, "lisbon", map[string]float64{"Safety": 7.5, "Cost of Living": 6.1}); err != nil {
		t.Fatalf("UpsertCityScores: %v", err)
	}
	if err := st.UpsertCityTags(ctx, "lisbon", map[string]float64{"Historic": 0.9, "Beach Life": 0.7}); err != nil {
		t.Fatalf("UpsertCityTags: %v", err)
	}

	cities, err := st.ListCities(ctx)
	if err != nil {
		t.Fatalf("ListCities: %v", err)
	}
	if len(cities) != 1 || cities[0] != city {
		t.Fatalf("unexpected cities: %+v", cities)
	}

	scores, err := st.ListCityScores(ctx)
	if err != nil {
		t.Fatalf("ListCityScores: %v", err)
	}
	if len(scores) != 2 || scores[0].Category != "Cost of Living" || scores[1].Score != 7.5 {
		t.Fatalf("unexpected scores: %+v", scores)
	}

	tags, err := st.ListCityTagsByName(ctx, []string{"Historic", "Historic", "Nightlife"})
	if err != nil {
		t.Fatalf("ListCityTagsByName: %v", err)
	}
	if len(tags) != 1 || tags[0].Tag != "Historic" || tags[0].Strength != 0.9 {
		t.Fatalf("unexpected tags: %+v", tags)
	}
}

// TestSQLiteScoresReplaced tests that re-upserting scores replaces old rows
func TestSQLiteScoresReplaced(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	_ = st.UpsertCity(ctx, store.City{ID: "berlin", Name: "Berlin"})
	_ = st.UpsertCityScores(ctx, "berlin", map[string]float64{"Safety": 6, "Economy": 7})
	_ = st.UpsertCityScores(ctx, "berlin", map[string]float64{"Safety": 6.5})

	scores, err := st.ListCityScores(ctx)
	if err != nil {
		t.Fatalf("ListCityScores: %v", err)
	}
	if len(scores) != 1 || scores[0].Score != 6.5 {
		t.Fatalf("expected single replaced row, got %+v", scores)
	}
}

// TestSQLiteSignalWeights tests per-user weight persistence
func TestSQLiteSignalWeights(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if _, ok, err := st.GetSignalWeights(ctx, "u1"); err != nil || ok {
		t.Fatalf("unknown user: ok=%v err=%v", ok, err)
	}

	if err := st.PutSignalWeights(ctx, "u1", map[string]float64{"climate": 2.5, "food": 1}); err != nil {
		t.Fatalf("PutSignalWeights: %v", err)
	}
	if err := st.PutSignalWeights(ctx, "u1", map[string]float64{"climate": 1.5}); err != nil {
		t.Fatalf("PutSignalWeights: %v", err)
	}

	w, ok, err := st.GetSignalWeights(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("GetSignalWeights: ok=%v err=%v", ok, err)
	}
	if len(w) != 1 || w["climate"] != 1.5 {
		t.Fatalf("unexpected weights: %v", w)
	}
}

// TestSQLiteReports tests report persistence and ordering
func TestSQLiteReports(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		err := st.SaveReport(ctx, store.Report{
			ID:           id,
			UserID:       "u1",
			Mode:         "signals",
			ResultsJSON:  `[]`,
			UsedFallback: i == 1,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	r, found, err := st.GetReport(ctx, "r2")
	if err != nil || !found {
		t.Fatalf("GetReport: found=%v err=%v", found, err)
	}
	if !r.UsedFallback || r.Mode != "signals" || !r.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected report: %+v", r)
	}

	if _, found, _ := st.GetReport(ctx, "missing"); found {
		t.Fatal("missing report should not be found")
	}

	list, err := st.ListReports(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(list) != 3 || list[0].ID != "r3" || list[2].ID != "r1" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

// TestSQLiteSnapshots tests snapshot staleness with an injected clock
func TestSQLiteSnapshots(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	st.(*sqliteStore).now = func() time.Time { return now }

	if err := st.SaveSnapshot(ctx, "city_pool", []byte(`{"cities":[]}`)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	snap, stale, found, err := st.LoadSnapshot(ctx, "city_pool", time.Hour)
	if err != nil || !found || stale {
		t.Fatalf("fresh snapshot: found=%v stale=%v err=%v", found, stale, err)
	}
	if string(snap.Data) != `{"cities":[]}` {
		t.Fatalf("unexpected data %q", snap.Data)
	}

	now = now.Add(2 * time.Hour)
	_, stale, found, err = st.LoadSnapshot(ctx, "city_pool", time.Hour)
	if err != nil || !found || !stale {
		t.Fatalf("old snapshot: found=%v stale=%v err=%v", found, stale, err)
	}
}

// TestSQLiteConcurrentReads tests concurrent readers against one store
func TestSQLiteConcurrentReads(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	_ = st.UpsertCity(ctx, store.City{ID: "tokyo", Name: "Tokyo"})
	_ = st.UpsertCityScores(ctx, "tokyo", map[string]float64{"Safety": 9})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.ListCityScores(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent read: %v", err)
	}
}
