package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teleportme/compass/internal/llm"
	"github.com/teleportme/compass/internal/logging"
	"github.com/teleportme/compass/pkg/compass"
	"github.com/teleportme/compass/pkg/compass/config"
	"github.com/teleportme/compass/pkg/compass/curate"
	"github.com/teleportme/compass/pkg/compass/metrics"
	"github.com/teleportme/compass/pkg/compass/store/sqlite"
)

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	return cfg, nil
}

// buildEngine opens the store and wires the engine for cfg. Collectors
// register with reg and logs go to logOut. The returned cleanup closes
// the store.
func buildEngine(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logOut io.Writer) (*compass.Engine, func(), error) {
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
	})

	db, err := sqlite.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	var gen curate.Generator
	if cfg.LLM.Enabled() {
		gen = llm.New(llm.Config{
			BaseURL:           cfg.LLM.BaseURL,
			APIKey:            cfg.LLM.APIKey,
			Model:             cfg.LLM.Model,
			Timeout:           cfg.LLM.Timeout,
			RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		})
	} else {
		logger.Debug().Msg("no language model configured, curation disabled")
	}

	engine := compass.New(compass.Options{
		Store:          db,
		Cache:          db,
		Generator:      gen,
		Breaker:        cfg.Breaker.BreakerConfig(),
		Weights:        cfg.Scoring.Weights(),
		Origin:         cfg.Origin,
		RefinementSize: cfg.Ranking.RefinementSize,
		FallbackSize:   cfg.Ranking.FallbackSize,
		Retain:         cfg.Ranking.Retain,
		SnapshotTTL:    cfg.Ranking.SnapshotTTL,
		Metrics:        metrics.New(reg),
		Logger:         logger,
	})
	cleanup := func() {
		if err := engine.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing store")
		}
	}
	return engine, cleanup, nil
}

// withEngine loads configuration, builds an engine and runs fn with it.
func withEngine(ctx context.Context, opts *rootOptions, logOut io.Writer, fn func(*compass.Engine) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	engine, cleanup, err := buildEngine(ctx, cfg, opts.registry, logOut)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(engine)
}

// writeMetrics dumps the gathered collectors in the text exposition format
// when --metrics-out is set.
func writeMetrics(opts *rootOptions) error {
	if opts.metricsOut == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(opts.metricsOut, opts.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
