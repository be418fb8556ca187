package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/teleportme/compass/pkg/compass/curate"
	"github.com/teleportme/compass/pkg/compass/geo"
	"github.com/teleportme/compass/pkg/compass/internalerr"
	"github.com/teleportme/compass/pkg/compass/rank"
)

// APIKeyEnv overrides llm.api_key when set.
const APIKeyEnv = "COMPASS_LLM_API_KEY"

var validate = validator.New()

// Config is the engine configuration
type Config struct {
	DBPath  string    `yaml:"db_path" validate:"required"`
	Origin  geo.Point `yaml:"origin"`
	Ranking Ranking   `yaml:"ranking"`
	Scoring Scoring   `yaml:"scoring"`
	LLM     LLM       `yaml:"llm"`
	Breaker Breaker   `yaml:"breaker"`
	Log     Log       `yaml:"log"`
}

// Ranking tunes the canonical pipeline and the preview snapshot
type Ranking struct {
	RefinementSize int           `yaml:"refinement_size" validate:"gte=1,lte=50"`
	FallbackSize   int           `yaml:"fallback_size" validate:"gte=1,ltefield=RefinementSize"`
	Retain         float64       `yaml:"retain" validate:"gt=0,lte=1"`
	SnapshotTTL    time.Duration `yaml:"snapshot_ttl" validate:"gte=0"`
}

// Scoring holds the blend constants of the ranking formulas
type Scoring struct {
	CategoryShare    float64 `yaml:"category_share" validate:"gte=0,lte=1"`
	TagShare         float64 `yaml:"tag_share" validate:"gte=0,lte=1"`
	Uncorroborated   float64 `yaml:"uncorroborated" validate:"gte=0,lte=1"`
	ExplicitTagMix   float64 `yaml:"explicit_tag_mix" validate:"gte=0,lte=1"`
	InferredTagBonus float64 `yaml:"inferred_tag_bonus" validate:"gte=0,lte=1"`
	BonusWeight      float64 `yaml:"bonus_weight" validate:"gte=0,lte=1"`
}

// Weights converts the section to scorer weights.
func (s Scoring) Weights() rank.Weights {
	return rank.Weights(s)
}

// Breaker configures the circuit breaker in front of the collaborator
type Breaker struct {
	MaxRequests      uint32        `yaml:"max_requests" validate:"gte=1"`
	Interval         time.Duration `yaml:"interval" validate:"gte=0"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `yaml:"failure_threshold" validate:"gte=1"`
}

// BreakerConfig converts the section to the curator's breaker settings.
func (b Breaker) BreakerConfig() curate.BreakerConfig {
	return curate.BreakerConfig{
		Name:             curate.DefaultBreakerConfig().Name,
		MaxRequests:      b.MaxRequests,
		Interval:         b.Interval,
		Timeout:          b.Timeout,
		FailureThreshold: b.FailureThreshold,
	}
}

// LLM configures the text-generation collaborator. Curation is disabled
// when BaseURL or Model is empty.
type LLM struct {
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=0"`
}

// Enabled reports whether a collaborator is configured.
func (l LLM) Enabled() bool { return l.BaseURL != "" && l.Model != "" }

// Log configures logging output
type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Default returns the configuration used for any field a file leaves out.
func Default() Config {
	breaker := curate.DefaultBreakerConfig()
	return Config{
		DBPath: "compass.db",
		// London
		Origin: geo.Point{Lat: 51.5074, Lon: -0.1278},
		Ranking: Ranking{
			RefinementSize: 8,
			FallbackSize:   4,
			Retain:         0.7,
			SnapshotTTL:    6 * time.Hour,
		},
		Scoring: Scoring(rank.DefaultWeights()),
		LLM: LLM{
			Timeout:           20 * time.Second,
			RequestsPerMinute: 30,
		},
		Breaker: Breaker{
			MaxRequests:      breaker.MaxRequests,
			Interval:         breaker.Interval,
			Timeout:          breaker.Timeout,
			FailureThreshold: breaker.FailureThreshold,
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
		}
	}
	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.LLM.APIKey = key
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return nil
}
