package config

import (
	"fmt"
	"time"

	"github.com/kbukum/faultkit/resilience"
)

// LimiterConfig configures one rate limit bucket. Zero fields keep the
// preset value.
type LimiterConfig struct {
	Capacity       int           `yaml:"capacity" mapstructure:"capacity"`
	RefillTokens   int           `yaml:"refill_tokens" mapstructure:"refill_tokens"`
	RefillDuration time.Duration `yaml:"refill_duration" mapstructure:"refill_duration"`
}

// RetryConfig overrides a retry preset. Zero fields keep the preset value.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	Multiplier   float64       `yaml:"multiplier" mapstructure:"multiplier"`
	MaxDelay     time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
}

// ResilienceConfig configures the rate limit buckets and retry policies.
type ResilienceConfig struct {
	RateLimiter struct {
		API   LimiterConfig `yaml:"api" mapstructure:"api"`
		Batch LimiterConfig `yaml:"batch" mapstructure:"batch"`
	} `yaml:"rate_limiter" mapstructure:"rate_limiter"`
	// Retry is keyed by policy name: default, storage, network or a custom
	// name built on the default preset.
	Retry map[string]RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// Validate rejects negative values.
func (c *ResilienceConfig) Validate() error {
	for name, l := range map[string]LimiterConfig{"api": c.RateLimiter.API, "batch": c.RateLimiter.Batch} {
		if l.Capacity < 0 || l.RefillTokens < 0 || l.RefillDuration < 0 {
			return fmt.Errorf("rate_limiter.%s: values must be non-negative", name)
		}
	}
	for name, r := range c.Retry {
		if r.MaxAttempts < 0 || r.InitialDelay < 0 || r.MaxDelay < 0 || r.Multiplier < 0 {
			return fmt.Errorf("retry.%s: values must be non-negative", name)
		}
	}
	return nil
}

// LimiterConfigs returns the API and batch bucket configurations.
func (c *ResilienceConfig) LimiterConfigs() (api, batch resilience.RateLimiterConfig) {
	return overlayLimiter(resilience.DefaultRateLimiterConfig(string(resilience.CategoryAPI)), c.RateLimiter.API),
		overlayLimiter(resilience.BatchRateLimiterConfig(string(resilience.CategoryBatch)), c.RateLimiter.Batch)
}

// Limiters builds the API and batch buckets.
func (c *ResilienceConfig) Limiters() *resilience.Limiters {
	return resilience.NewLimiters(c.LimiterConfigs())
}

func overlayLimiter(base resilience.RateLimiterConfig, l LimiterConfig) resilience.RateLimiterConfig {
	if l.Capacity > 0 {
		base.Capacity = l.Capacity
		base.RefillTokens = l.Capacity
	}
	if l.RefillTokens > 0 {
		base.RefillTokens = l.RefillTokens
	}
	if l.RefillDuration > 0 {
		base.RefillDuration = l.RefillDuration
	}
	return base
}

// Policy returns the named retry policy: the preset of that name, or the
// default preset for other names, with configured overrides applied.
func (c *ResilienceConfig) Policy(name string) resilience.Policy {
	var p resilience.Policy
	switch name {
	case "storage":
		p = resilience.StoragePolicy()
	case "network":
		p = resilience.NetworkPolicy()
	default:
		p = resilience.DefaultPolicy()
	}
	p.Name = name

	r, ok := c.Retry[name]
	if !ok {
		return p
	}
	if r.MaxAttempts > 0 {
		p.MaxAttempts = r.MaxAttempts
	}
	if r.InitialDelay > 0 {
		p.InitialDelay = r.InitialDelay
	}
	if r.Multiplier > 0 {
		p.Multiplier = r.Multiplier
	}
	if r.MaxDelay > 0 {
		p.MaxDelay = r.MaxDelay
	}
	return p
}
