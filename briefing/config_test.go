package briefing

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"missing server", func(c *Config) { c.ServerURL = "" }, false},
		{"speed too slow", func(c *Config) { c.Speed = 0.25 }, false},
		{"speed too fast", func(c *Config) { c.Speed = 2.5 }, false},
		{"speed boundary low", func(c *Config) { c.Speed = 0.5 }, true},
		{"speed boundary high", func(c *Config) { c.Speed = 2.0 }, true},
		{"negative trends", func(c *Config) { c.TrendSections = -1 }, false},
		{"too many trends", func(c *Config) { c.TrendSections = 11 }, false},
		{"timeout too short", func(c *Config) { c.GenerationTimeout = 500 * time.Millisecond }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tc.valid && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("OWNBRIEF_SERVER_URL", "https://briefing.example.com")
	t.Setenv("OWNBRIEF_VOICE", "echo")
	t.Setenv("OWNBRIEF_SPEED", "1.25")
	t.Setenv("OWNBRIEF_TREND_SECTIONS", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ServerURL != "https://briefing.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Voice != "echo" {
		t.Errorf("Voice = %q", cfg.Voice)
	}
	if cfg.Speed != 1.25 {
		t.Errorf("Speed = %v", cfg.Speed)
	}
	if cfg.TrendSections != 5 {
		t.Errorf("TrendSections = %d", cfg.TrendSections)
	}
	if cfg.GenerationTimeout != 45*time.Second {
		t.Errorf("GenerationTimeout = %v, want default 45s", cfg.GenerationTimeout)
	}
}

func TestLoadConfigRejectsBadEnvironment(t *testing.T) {
	t.Setenv("OWNBRIEF_SPEED", "3.0")
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig accepted out-of-range speed")
	}
}
