package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with the expected defaults.
// Changes to defaults should be intentional, so they are pinned here.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default ProbeTimeout is 5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.ProbeTimeout != 5*time.Second {
			t.Errorf("expected ProbeTimeout to be 5s, got %v", cfg.ProbeTimeout)
		}
	})

	t.Run("default RateLimitDelay is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.RateLimitDelay != time.Second {
			t.Errorf("expected RateLimitDelay to be 1s, got %v", cfg.RateLimitDelay)
		}
	})

	t.Run("default MaxAttempts is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxAttempts != 3 {
			t.Errorf("expected MaxAttempts to be 3, got %d", cfg.MaxAttempts)
		}
	})

	t.Run("default BatchSize is 10", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 10 {
			t.Errorf("expected BatchSize to be 10, got %d", cfg.BatchSize)
		}
	})

	t.Run("default rules are loaded", func(t *testing.T) {
		t.Parallel()
		if cfg.Rules == nil {
			t.Fatal("expected built-in rules")
		}
		if got := cfg.Rules.Platform.ThresholdOr(0); got != 0.5 {
			t.Errorf("expected platform threshold 0.5, got %v", got)
		}
		if got := cfg.Rules.Category.ThresholdOr(0); got != 0.6 {
			t.Errorf("expected category threshold 0.6, got %v", got)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each case breaks exactly one rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"shop.example.com"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "list file instead of targets", mutate: func(c *Config) { c.Targets = nil; c.TargetListFile = "targets.txt" }},
		{name: "zero delay disables rate limiting", mutate: func(c *Config) { c.RateLimitDelay = 0 }},
		{name: "no target", mutate: func(c *Config) { c.Targets = nil }, wantErr: ErrNoTarget},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative probe timeout", mutate: func(c *Config) { c.ProbeTimeout = -time.Second }, wantErr: ErrInvalidProbeTimeout},
		{name: "negative delay", mutate: func(c *Config) { c.RateLimitDelay = -time.Second }, wantErr: ErrInvalidRateLimitDelay},
		{name: "zero attempts", mutate: func(c *Config) { c.MaxAttempts = 0 }, wantErr: ErrInvalidMaxAttempts},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{name: "json and markdown", mutate: func(c *Config) { c.JSONReport = true; c.MarkdownReport = true }, wantErr: ErrConflictingReportFormats},
		{name: "negative body size", mutate: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "unknown region", mutate: func(c *Config) { c.Region = "antarctica" }, wantErr: ErrInvalidRegion},
		{name: "unknown kind", mutate: func(c *Config) { c.Kinds = []string{"electronics"} }, wantErr: ErrInvalidKind},
		{name: "threshold above one", mutate: func(c *Config) { th := 1.5; c.Rules.Category.Threshold = &th }, wantErr: ErrInvalidThreshold},
		{name: "unknown strategy", mutate: func(c *Config) { c.Rules.Platform.Strategy = "median" }, wantErr: ErrInvalidStrategy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTaskDeadline(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Timeout:        10 * time.Second,
		ProbeTimeout:   2 * time.Second,
		RateLimitDelay: time.Second,
		MaxAttempts:    3,
		RetryBackoff:   500 * time.Millisecond,
	}
	// 3*(10s+1s) + 0.5s + 1s + 2s
	want := 36500 * time.Millisecond
	if got := cfg.TaskDeadline(); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// TestGetSiteConfig tests merging of defaults and site overrides.
func TestGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Cookie:  "default=1",
			Headers: map[string]string{"Accept-Language": "en-US"},
		},
		Sites: map[string]SiteConfig{
			"shop.example.com": {
				Cookie:  "storefront_digest=abc",
				Headers: map[string]string{"X-Geo": "us"},
				Region:  "europe",
			},
		},
	}

	t.Run("unknown site gets defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("other.example.com")
		if sc.Cookie != "default=1" {
			t.Errorf("expected default cookie, got %q", sc.Cookie)
		}
		if sc.Headers["Accept-Language"] != "en-US" {
			t.Errorf("expected default header")
		}
	})

	t.Run("site overrides and merges headers", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("Shop.Example.com")
		if sc.Cookie != "storefront_digest=abc" {
			t.Errorf("expected site cookie, got %q", sc.Cookie)
		}
		if sc.Region != "europe" {
			t.Errorf("expected region europe, got %q", sc.Region)
		}
		if len(sc.Headers) != 2 {
			t.Errorf("expected 2 headers, got %d", len(sc.Headers))
		}
	})

	t.Run("merging does not mutate defaults", func(t *testing.T) {
		t.Parallel()

		_ = cf.GetSiteConfig("shop.example.com")
		if _, ok := cf.Defaults.Headers["X-Geo"]; ok {
			t.Error("site header leaked into defaults")
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.topshop")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("merges rule file onto defaults", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".topshop")
		content := `platform:
  threshold: 0.4
  indicators:
    endpoint-probe:
      disabled: true
category:
  indicators:
    keyword-hits:
      extend:
        - "kaftan"
    exclusion-penalty:
      cap: 0.3
sites:
  HTTPS://Shop.Example.com/:
    cookie: "session=xyz"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := cf.Platform.ThresholdOr(0); got != 0.4 {
			t.Errorf("expected threshold 0.4, got %v", got)
		}
		if !cf.Platform.Rule(IndicatorEndpointProbe).Disabled {
			t.Error("expected endpoint-probe disabled")
		}
		if got := cf.Platform.Rule(IndicatorEndpointProbe).Weight; got != 0.2 {
			t.Errorf("expected weight kept at 0.2, got %v", got)
		}
		kw := cf.Category.Rule(IndicatorKeywordHits).AllPatterns()
		if kw[len(kw)-1] != "kaftan" {
			t.Errorf("expected extended keyword last, got %q", kw[len(kw)-1])
		}
		if len(kw) != len(defaultFashionKeywords())+1 {
			t.Errorf("expected defaults kept, got %d keywords", len(kw))
		}
		ex := cf.Category.Rule(IndicatorExclusionPenalty)
		if ex.Cap != 0.3 || ex.Weight != 0.15 {
			t.Errorf("expected cap 0.3 weight 0.15, got %v %v", ex.Cap, ex.Weight)
		}
		if cf.Category.Strategy != StrategyAdditive {
			t.Errorf("expected strategy kept, got %q", cf.Category.Strategy)
		}
		if _, ok := cf.Sites["shop.example.com"]; !ok {
			t.Error("expected site key normalized to bare host")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".topshop")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("rejects broken price pattern", func(t *testing.T) {
		t.Parallel()

		_, err := ParseConfig([]byte("category:\n  indicators:\n    price-patterns:\n      extend: [\"(\"]\n"))
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("expected ErrInvalidPattern, got %v", err)
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

func TestReadTargets(t *testing.T) {
	t.Parallel()

	input := `# storefronts to check
shop.example.com
  boutique.example.org  

https://dresses.example.net # imported from the directory
#disabled.example.com
`
	got, err := ReadTargets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"shop.example.com", "boutique.example.org", "https://dresses.example.net"}
	if len(got) != len(want) {
		t.Fatalf("expected %d targets, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("target %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestLoadTargetsMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadTargets(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing list")
	}
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("expected data dir to end with %q, got %q", AppName, XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("expected config dir to end with %q, got %q", AppName, XDGConfigDir())
	}
}
