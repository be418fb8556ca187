package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teleportme/compass/pkg/compass/internalerr"
	"github.com/teleportme/compass/pkg/compass/store"
)

// Catalog is a file of cities used to seed a store
type Catalog struct {
	Cities []CityEntry `yaml:"cities" validate:"dive"`
}

// CityEntry is one city in a catalog file
type CityEntry struct {
	ID         string             `yaml:"id" validate:"required"`
	Name       string             `yaml:"name" validate:"required"`
	FullName   string             `yaml:"full_name"`
	Country    string             `yaml:"country"`
	Continent  string             `yaml:"continent"`
	Lat        float64            `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon        float64            `yaml:"lon" validate:"gte=-180,lte=180"`
	Population int64              `yaml:"population" validate:"gte=0"`
	ImageURL   string             `yaml:"image_url"`
	Scores     map[string]float64 `yaml:"scores" validate:"dive,gte=0,lte=10"`
	Tags       map[string]float64 `yaml:"tags" validate:"dive,gte=0,lte=1"`
}

// LoadCatalog loads a city catalog from a YAML file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := validate.Struct(&cat); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}

	seen := make(map[string]struct{}, len(cat.Cities))
	for _, c := range cat.Cities {
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate city id %q", internalerr.ErrInvalidConfig, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return &cat, nil
}

// Seed writes every catalog city with its scores and tags to st.
func (c *Catalog) Seed(ctx context.Context, st store.Store) (int, error) {
	for i, e := range c.Cities {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		city := store.City{
			ID:         e.ID,
			Name:       e.Name,
			FullName:   e.FullName,
			Country:    e.Country,
			Continent:  e.Continent,
			Latitude:   e.Lat,
			Longitude:  e.Lon,
			Population: e.Population,
			ImageURL:   e.ImageURL,
		}
		if err := st.UpsertCity(ctx, city); err != nil {
			return i, fmt.Errorf("upsert city %s: %w", e.ID, err)
		}
		if err := st.UpsertCityScores(ctx, e.ID, e.Scores); err != nil {
			return i, fmt.Errorf("upsert scores %s: %w", e.ID, err)
		}
		if err := st.UpsertCityTags(ctx, e.ID, e.Tags); err != nil {
			return i, fmt.Errorf("upsert tags %s: %w", e.ID, err)
		}
	}
	return len(c.Cities), nil
}
