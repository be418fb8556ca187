package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/teleportme/compass/pkg/compass/internalerr"
	"github.com/teleportme/compass/pkg/compass/store"
	"github.com/teleportme/compass/pkg/compass/store/memstore"
)

func seed(t *testing.T, st *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	cities := []store.City{
		{ID: "lis", Name: "Lisbon", Country: "Portugal", Latitude: 38.72, Longitude: -9.14},
		{ID: "ber", Name: "Berlin", Country: "Germany", Latitude: 52.52, Longitude: 13.40},
	}
	for _, c := range cities {
		if err := st.UpsertCity(ctx, c); err != nil {
			t.Fatalf("upsert city: %v", err)
		}
	}
	if err := st.UpsertCityScores(ctx, "lis", map[string]float64{"Cost of Living": 6.5, "Safety": 7}); err != nil {
		t.Fatalf("scores: %v", err)
	}
	if err := st.UpsertCityTags(ctx, "lis", map[string]float64{"Beach Life": 0.9}); err != nil {
		t.Fatalf("tags: %v", err)
	}
	if err := st.UpsertCityTags(ctx, "ber", map[string]float64{"Nightlife": 1, "Startup Hub": 0.8}); err != nil {
		t.Fatalf("tags: %v", err)
	}
	// orphan rows are ignored by the merge
	if err := st.UpsertCityTags(ctx, "ghost", map[string]float64{"Foodie": 1}); err != nil {
		t.Fatalf("tags: %v", err)
	}
}

func TestLoadMergesRows(t *testing.T) {
	st := memstore.New()
	seed(t, st)

	pool, err := NewLoader(st, nil, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("expected 2 cities, got %d", len(pool))
	}

	lis, ok := pool.Find("lis")
	if !ok {
		t.Fatalf("lisbon missing")
	}
	if lis.Location.Lat != 38.72 || lis.Location.Lon != -9.14 {
		t.Fatalf("unexpected location %+v", lis.Location)
	}
	if got := lis.ScoreOr("Safety", NeutralScore); got != 7 {
		t.Fatalf("expected safety 7, got %v", got)
	}
	if got := lis.ScoreOr("Economy", NeutralScore); got != NeutralScore {
		t.Fatalf("expected neutral default, got %v", got)
	}
	if !lis.HasTag("Beach Life") || lis.HasTag("Nightlife") {
		t.Fatalf("unexpected tags %v", lis.Tags)
	}

	ber, _ := pool.Find("ber")
	names := ber.TagNames()
	if len(names) != 2 || names[0] != "Nightlife" || names[1] != "Startup Hub" {
		t.Fatalf("unexpected tag names %v", names)
	}
	if _, ok := pool.Find("ghost"); ok {
		t.Fatalf("orphan tag rows must not create a city")
	}
}

func TestLoadTaggedKeepsOnlyNamedTags(t *testing.T) {
	st := memstore.New()
	seed(t, st)

	pool, err := NewLoader(st, nil, zerolog.Nop()).LoadTagged(context.Background(), []string{"Nightlife"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("expected 2 cities, got %d", len(pool))
	}
	ber, _ := pool.Find("ber")
	if !ber.HasTag("Nightlife") || ber.HasTag("Startup Hub") {
		t.Fatalf("unexpected berlin tags %v", ber.Tags)
	}
	lis, _ := pool.Find("lis")
	if len(lis.Tags) != 0 {
		t.Fatalf("lisbon should carry no tags, got %v", lis.Tags)
	}
	if got := lis.ScoreOr("Safety", NeutralScore); got != 7 {
		t.Fatalf("scores must still load, got safety %v", got)
	}
}

type failingStore struct {
	*memstore.Store
}

func (f failingStore) ListCityTags(ctx context.Context) ([]store.CityTag, error) {
	return nil, errors.New("connection reset")
}

func TestLoadWrapsStoreFailure(t *testing.T) {
	st := failingStore{memstore.New()}
	_, err := NewLoader(st, nil, zerolog.Nop()).Load(context.Background())
	if !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSnapshotStaleness(t *testing.T) {
	st := memstore.New()
	seed(t, st)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.Now = func() time.Time { return now }

	loader := NewLoader(st, st, zerolog.Nop())
	ctx := context.Background()

	pool, stale, err := loader.Snapshot(ctx, time.Hour)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if stale || len(pool) != 2 {
		t.Fatalf("first snapshot should be fresh with 2 cities, stale=%v len=%d", stale, len(pool))
	}

	// A city added after the snapshot is invisible until refresh.
	if err := st.UpsertCity(ctx, store.City{ID: "tok", Name: "Tokyo"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	now = now.Add(2 * time.Hour)

	pool, stale, err = loader.Snapshot(ctx, time.Hour)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !stale {
		t.Fatalf("expected stale snapshot")
	}
	if len(pool) != 2 {
		t.Fatalf("stale snapshot should still return cached pool, got %d", len(pool))
	}
	lis, _ := pool.Find("lis")
	if lis.Tags["Beach Life"] != 0.9 {
		t.Fatalf("snapshot lost tag strengths: %v", lis.Tags)
	}

	pool, err = loader.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(pool) != 3 {
		t.Fatalf("refresh should see new city, got %d", len(pool))
	}
	_, stale, _ = loader.Snapshot(ctx, time.Hour)
	if stale {
		t.Fatalf("snapshot should be fresh after refresh")
	}
}

func TestPoolWithout(t *testing.T) {
	pool := Pool{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	rest := pool.Without("b")
	if len(rest) != 2 || rest[0].ID != "a" || rest[1].ID != "c" {
		t.Fatalf("unexpected pool %v", rest)
	}
	if len(pool) != 3 {
		t.Fatalf("Without must not modify the receiver")
	}
}

func TestMetricLabel(t *testing.T) {
	cases := []struct {
		category string
		score    float64
		want     string
	}{
		{"Cost of Living", 8, "Affordable"},
		{"Cost of Living", 5, "Moderate"},
		{"Cost of Living", 2, "High Cost"},
		{"Commute", 7, "Excellent Public Transit"},
		{"Economy", 3.9, "Developing"},
		{"Safety", 6, "Average"},
	}
	for _, tc := range cases {
		if got := MetricLabel(tc.category, tc.score); got != tc.want {
			t.Errorf("MetricLabel(%q, %v) = %q, want %q", tc.category, tc.score, got, tc.want)
		}
	}
}
