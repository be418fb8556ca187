package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teleportme/compass/pkg/compass/curate"
	"github.com/teleportme/compass/pkg/compass/internalerr"
	"github.com/teleportme/compass/pkg/compass/rank"
	"github.com/teleportme/compass/pkg/compass/store/memstore"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Ranking.RefinementSize != 8 || cfg.Ranking.FallbackSize != 4 {
		t.Errorf("unexpected ranking defaults %+v", cfg.Ranking)
	}
	if cfg.Ranking.Retain != 0.7 {
		t.Errorf("expected retain 0.7, got %v", cfg.Ranking.Retain)
	}
	if cfg.LLM.Enabled() {
		t.Errorf("llm should be disabled by default")
	}
	if cfg.Scoring.Weights() != rank.DefaultWeights() {
		t.Errorf("unexpected scoring defaults %+v", cfg.Scoring)
	}
	if cfg.Breaker.BreakerConfig() != curate.DefaultBreakerConfig() {
		t.Errorf("unexpected breaker defaults %+v", cfg.Breaker)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	path := writeFile(t, "compass.yaml", `db_path: /tmp/cities.db
origin:
  lat: 40.7128
  lon: -74.006
ranking:
  fallback_size: 3
  snapshot_ttl: 30m
llm:
  base_url: https://api.example.com/v1/chat/completions
  model: small-model
  api_key: from-file
scoring:
  tag_share: 0.6
breaker:
  failure_threshold: 5
  timeout: 1m
log:
  level: debug
  format: console
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/cities.db" {
		t.Errorf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.Origin.Lat != 40.7128 || cfg.Origin.Lon != -74.006 {
		t.Errorf("unexpected origin %+v", cfg.Origin)
	}
	if cfg.Ranking.FallbackSize != 3 || cfg.Ranking.RefinementSize != 8 {
		t.Errorf("partial ranking section should keep defaults, got %+v", cfg.Ranking)
	}
	if cfg.Ranking.SnapshotTTL != 30*time.Minute {
		t.Errorf("expected 30m ttl, got %v", cfg.Ranking.SnapshotTTL)
	}
	if !cfg.LLM.Enabled() || cfg.LLM.APIKey != "from-file" {
		t.Errorf("unexpected llm config %+v", cfg.LLM)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("expected console format, got %q", cfg.Log.Format)
	}
	w := cfg.Scoring.Weights()
	if w.TagShare != 0.6 || w.CategoryShare != rank.DefaultWeights().CategoryShare {
		t.Errorf("partial scoring section should keep defaults, got %+v", w)
	}
	b := cfg.Breaker.BreakerConfig()
	if b.FailureThreshold != 5 || b.Timeout != time.Minute || b.MaxRequests != 1 || b.Name != "curation" {
		t.Errorf("unexpected breaker config %+v", b)
	}
}

func TestLoadConfigAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "secret")
	path := writeFile(t, "compass.yaml", "llm:\n  api_key: from-file\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.APIKey != "secret" {
		t.Errorf("env should override file, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	cases := map[string]string{
		"bad level":     "log:\n  level: loud\n",
		"bad origin":    "origin:\n  lat: 120\n",
		"fallback size": "ranking:\n  refinement_size: 3\n  fallback_size: 5\n",
		"bad retain":    "ranking:\n  retain: 1.5\n",
		"zero retain":   "ranking:\n  retain: 0\n",
		"bad share":     "scoring:\n  tag_share: 2\n",
		"no threshold":  "breaker:\n  failure_threshold: 0\n",
		"bad url":       "llm:\n  base_url: not a url\n",
		"bad yaml":      "ranking: [\n",
	}
	for name, content := range cases {
		path := writeFile(t, "compass.yaml", content)
		_, err := LoadConfig(path)
		if !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/compass.yaml"); err == nil {
		t.Error("Should error on nonexistent config")
	}
}

const catalogYAML = `cities:
  - id: lisbon
    name: Lisbon
    country: Portugal
    lat: 38.7223
    lon: -9.1393
    scores:
      Cost of Living: 6.1
      Safety: 7.4
    tags:
      Beach Life: 0.9
      Foodie: 0.7
  - id: berlin
    name: Berlin
    country: Germany
    lat: 52.52
    lon: 13.405
    scores:
      Economy: 7.2
    tags:
      Nightlife: 1
`

func TestLoadCatalogAndSeed(t *testing.T) {
	cat, err := LoadCatalog(writeFile(t, "catalog.yaml", catalogYAML))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(cat.Cities) != 2 {
		t.Fatalf("expected 2 cities, got %d", len(cat.Cities))
	}
	if cat.Cities[0].Scores["Cost of Living"] != 6.1 {
		t.Errorf("unexpected scores %v", cat.Cities[0].Scores)
	}

	st := memstore.New()
	n, err := cat.Seed(context.Background(), st)
	if err != nil || n != 2 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}
	cities, _ := st.ListCities(context.Background())
	if len(cities) != 2 {
		t.Fatalf("expected 2 stored cities, got %d", len(cities))
	}
	tags, _ := st.ListCityTagsByName(context.Background(), []string{"Nightlife"})
	if len(tags) != 1 || tags[0].CityID != "berlin" {
		t.Fatalf("unexpected tags %+v", tags)
	}
}

func TestLoadCatalogRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"duplicate id":   "cities:\n  - {id: a, name: A}\n  - {id: a, name: B}\n",
		"missing name":   "cities:\n  - {id: a}\n",
		"score too high": "cities:\n  - id: a\n    name: A\n    scores: {Safety: 11}\n",
		"tag strength":   "cities:\n  - id: a\n    name: A\n    tags: {Foodie: 2}\n",
	}
	for name, content := range cases {
		_, err := LoadCatalog(writeFile(t, "catalog.yaml", content))
		if !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoaderAllEmpty(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	loader := Loader{}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}
	if comp.Config == nil || comp.Catalog == nil {
		t.Fatal("Should have default config and empty catalog")
	}
	if len(comp.Catalog.Cities) != 0 {
		t.Errorf("expected empty catalog, got %d cities", len(comp.Catalog.Cities))
	}
}

func TestLoaderNonExistentCatalog(t *testing.T) {
	loader := Loader{CatalogPath: "/nonexistent/catalog.yaml"}
	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent catalog")
	}
}
