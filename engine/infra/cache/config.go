package cache

import (
	"crypto/tls"
	"time"
)

type Config struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
	// TLS Configuration
	TLSEnabled bool
	TLSConfig  *tls.Config
	// Timeout Configuration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingTimeout  time.Duration
	// Pool Configuration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	MinIdleConns    int
	PoolTimeout     time.Duration
}

// Enabled reports whether a Redis endpoint is configured.
func (c *Config) Enabled() bool {
	return c != nil && (c.URL != "" || c.Host != "")
}
