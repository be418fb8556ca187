package config

import "fmt"

// Loader loads all configuration files
type Loader struct {
	ConfigPath  string
	CatalogPath string
}

// Components holds all loaded configuration components
type Components struct {
	Config  *Config
	Catalog *Catalog
}

// Load reads all configuration files. A missing config path yields the
// defaults; a missing catalog path yields an empty catalog.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	cfg, err := LoadConfig(l.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	comp.Config = cfg

	if l.CatalogPath != "" {
		cat, err := LoadCatalog(l.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		comp.Catalog = cat
	} else {
		comp.Catalog = &Catalog{}
	}

	return comp, nil
}
