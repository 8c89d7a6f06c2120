package orchestrator

import "time"

// Config describes how to reach the process orchestrator.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds every call, including retries.
	Timeout                     time.Duration
	ErrorPercentThresholdToOpen int
	MinimumRequestToOpen        int
	WaitDurationInOpenState     time.Duration
	RetryTimes                  int
	RetryWaitBase               time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:                     10 * time.Second,
		ErrorPercentThresholdToOpen: 50,
		MinimumRequestToOpen:        10,
		WaitDurationInOpenState:     5 * time.Second,
		RetryTimes:                  2,
		RetryWaitBase:               100 * time.Millisecond,
	}
}

func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.Timeout <= 0 {
		out.Timeout = def.Timeout
	}
	if out.ErrorPercentThresholdToOpen <= 0 {
		out.ErrorPercentThresholdToOpen = def.ErrorPercentThresholdToOpen
	}
	if out.MinimumRequestToOpen <= 0 {
		out.MinimumRequestToOpen = def.MinimumRequestToOpen
	}
	if out.WaitDurationInOpenState <= 0 {
		out.WaitDurationInOpenState = def.WaitDurationInOpenState
	}
	if out.RetryTimes < 0 {
		out.RetryTimes = 0
	}
	if out.RetryWaitBase <= 0 {
		out.RetryWaitBase = def.RetryWaitBase
	}
	return &out
}
