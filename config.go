package aiguard

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultWarningFraction = 0.8
	DefaultCharsPerToken   = 4.0
	DefaultBypassHeader    = "X-Internal-Bypass"
)

// Config is the top-level guard configuration. It is read once at
// construction and never re-read dynamically.
type Config struct {
	Limiter     LimiterConfig     `yaml:"limiter"`
	Spend       SpendConfig       `yaml:"spend"`
	Cache       CacheConfig       `yaml:"cache"`
	TokenBudget TokenBudgetConfig `yaml:"token_budget"`
	Bypass      BypassConfig      `yaml:"bypass"`
}

// LimiterConfig configures one rate limiter.
type LimiterConfig struct {
	// Prefix namespaces this limiter's keys so independent limiters can
	// share one backend.
	Prefix string `yaml:"prefix"`

	// MaxRequests is the number of requests admitted per window. A value
	// of zero or less rejects every request.
	MaxRequests int64 `yaml:"max_requests"`

	// WindowMs is the fixed window length in milliseconds.
	WindowMs int64 `yaml:"window_ms"`
}

// Window returns the window length as a duration.
func (c LimiterConfig) Window() time.Duration {
	return time.Duration(c.WindowMs) * time.Millisecond
}

// SpendConfig configures the hourly/daily spend ceilings.
type SpendConfig struct {
	HourlyLimitCents int64   `yaml:"hourly_limit_cents"`
	DailyLimitCents  int64   `yaml:"daily_limit_cents"`
	WarningFraction  float64 `yaml:"warning_fraction"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	MaxSize int  `yaml:"max_size"`
	Enabled bool `yaml:"enabled"`
}

// TokenBudgetConfig configures the token budget guard.
type TokenBudgetConfig struct {
	TargetMaxTokens   int64   `yaml:"target_max_tokens" json:"targetMaxTokens"`
	WarningThreshold  int64   `yaml:"warning_threshold" json:"warningThreshold"`
	CriticalThreshold int64   `yaml:"critical_threshold" json:"criticalThreshold"`
	CharsPerToken     float64 `yaml:"chars_per_token" json:"charsPerToken"`
}

// BypassConfig configures the internal shared-secret bypass. An empty
// Secret disables the bypass entirely.
type BypassConfig struct {
	Header string `yaml:"header"`
	Secret string `yaml:"secret"`
}

// LoadConfig reads and parses a YAML config file.
// Environment variables in the format ${VAR} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("aiguard: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("aiguard: parse config: %w", err)
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// withDefaults fills optional fields that were left at their zero value.
func (c Config) withDefaults() Config {
	if c.Spend.WarningFraction == 0 {
		c.Spend.WarningFraction = DefaultWarningFraction
	}
	if c.TokenBudget.CharsPerToken == 0 {
		c.TokenBudget.CharsPerToken = DefaultCharsPerToken
	}
	if c.Bypass.Header == "" {
		c.Bypass.Header = DefaultBypassHeader
	}
	return c
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if err := c.Limiter.validate(); err != nil {
		return err
	}
	if err := c.Spend.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	return c.TokenBudget.validate()
}

func (c LimiterConfig) validate() error {
	if c.WindowMs <= 0 {
		return configError("limiter: window_ms must be positive, got %d", c.WindowMs)
	}
	return nil
}

func (c SpendConfig) validate() error {
	if c.HourlyLimitCents <= 0 {
		return configError("spend: hourly_limit_cents must be positive, got %d", c.HourlyLimitCents)
	}
	if c.DailyLimitCents <= 0 {
		return configError("spend: daily_limit_cents must be positive, got %d", c.DailyLimitCents)
	}
	if c.WarningFraction <= 0 || c.WarningFraction >= 1 {
		return configError("spend: warning_fraction must be in (0, 1), got %v", c.WarningFraction)
	}
	return nil
}

func (c CacheConfig) validate() error {
	if c.MaxSize <= 0 {
		return configError("cache: max_size must be positive, got %d", c.MaxSize)
	}
	return nil
}

func (c TokenBudgetConfig) validate() error {
	if c.CharsPerToken <= 0 {
		return configError("token_budget: chars_per_token must be positive, got %v", c.CharsPerToken)
	}
	if c.WarningThreshold <= 0 {
		return configError("token_budget: warning_threshold must be positive, got %d", c.WarningThreshold)
	}
	if c.CriticalThreshold <= c.WarningThreshold {
		return configError("token_budget: critical_threshold (%d) must be above warning_threshold (%d)",
			c.CriticalThreshold, c.WarningThreshold)
	}
	if c.TargetMaxTokens < c.CriticalThreshold {
		return configError("token_budget: target_max_tokens (%d) must be at or above critical_threshold (%d)",
			c.TargetMaxTokens, c.CriticalThreshold)
	}
	return nil
}
