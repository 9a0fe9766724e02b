package briefing

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains briefing pipeline configuration.
type Config struct {
	// Server settings
	ServerURL string `yaml:"server_url" env:"OWNBRIEF_SERVER_URL" envDefault:"http://localhost:3000"`
	APIToken  string `yaml:"api_token" env:"OWNBRIEF_API_TOKEN"`

	// Voice settings
	Voice       string  `yaml:"voice" env:"OWNBRIEF_VOICE" envDefault:"nova"`
	Speed       float64 `yaml:"speed" env:"OWNBRIEF_SPEED" envDefault:"1.0"`
	ToneOfVoice string  `yaml:"tone_of_voice" env:"OWNBRIEF_TONE"`

	// Episode settings
	UserName      string `yaml:"user_name" env:"OWNBRIEF_USER_NAME"`
	TrendSections int    `yaml:"trend_sections" env:"OWNBRIEF_TREND_SECTIONS" envDefault:"3"`

	// Every outbound generation call carries this deadline; expiry is a
	// fatal generation failure, never retried.
	GenerationTimeout time.Duration `yaml:"generation_timeout" env:"OWNBRIEF_GENERATION_TIMEOUT" envDefault:"45s"`

	// Interlude settings
	InterludeEnabled bool `yaml:"interlude" env:"OWNBRIEF_INTERLUDE" envDefault:"true"`

	// Cache settings for synthesized audio
	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig controls the synthesized-audio cache.
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled" env:"OWNBRIEF_CACHE_ENABLED" envDefault:"true"`
	Dir       string `yaml:"dir" env:"OWNBRIEF_CACHE_DIR"`
	MaxSizeMB int    `yaml:"max_size_mb" env:"OWNBRIEF_CACHE_MAX_SIZE_MB" envDefault:"64"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServerURL:         "http://localhost:3000",
		Voice:             "nova",
		Speed:             1.0,
		TrendSections:     3,
		GenerationTimeout: 45 * time.Second,
		InterludeEnabled:  true,
		Cache: CacheConfig{
			Enabled:   true,
			MaxSizeMB: 64,
		},
	}
}

// LoadConfig builds the configuration from defaults overlaid with
// environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if c.Speed < 0.5 || c.Speed > 2.0 {
		return fmt.Errorf("speed %.2f out of range [0.5, 2.0]", c.Speed)
	}
	if c.TrendSections < 0 || c.TrendSections > 10 {
		return fmt.Errorf("trend_sections %d out of range [0, 10]", c.TrendSections)
	}
	if c.GenerationTimeout < time.Second {
		return errors.New("generation_timeout must be at least 1s")
	}
	return nil
}
