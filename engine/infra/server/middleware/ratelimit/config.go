package ratelimit

import (
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"
)

// Config represents rate limiting configuration
type Config struct {
	// Global rate limit applied per client IP
	GlobalRate RateConfig

	// Per-route rate limits keyed by path prefix
	RouteRates map[string]RateConfig

	Prefix         string
	MaxRetry       int
	DisableHeaders bool
	ExcludedPaths  []string
}

// RateConfig represents a single rate limit configuration
type RateConfig struct {
	Period   time.Duration
	Limit    int64
	Disabled bool
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		GlobalRate: RateConfig{
			Limit:  600,
			Period: 1 * time.Minute,
		},
		RouteRates: map[string]RateConfig{
			"/hooks": {
				Limit:  60,
				Period: 1 * time.Minute,
			},
		},
		Prefix:   "triggers:ratelimit:",
		MaxRetry: 3,
		ExcludedPaths: []string{
			"/healthz",
			"/metrics",
		},
	}
}

// ToLimiterRate converts RateConfig to limiter.Rate
func (rc RateConfig) ToLimiterRate() limiter.Rate {
	return limiter.Rate{
		Period: rc.Period,
		Limit:  rc.Limit,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.GlobalRate.Disabled && (c.GlobalRate.Limit <= 0 || c.GlobalRate.Period <= 0) {
		return fmt.Errorf("global rate limit must be positive")
	}
	for route, rate := range c.RouteRates {
		if !rate.Disabled && (rate.Limit <= 0 || rate.Period <= 0) {
			return fmt.Errorf("route rate limit for %s must be positive", route)
		}
	}
	return nil
}
