package server

import "time"

type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int
}

// Config holds HTTP listener settings.
type Config struct {
	Host            string
	Port            int
	CORSEnabled     bool
	CORS            CORSConfig
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// HookBodyLimit caps webhook request bodies before they reach the processor.
	HookBodyLimit int64
}

const (
	httpReadTimeout       = 15 * time.Second
	httpWriteTimeout      = 15 * time.Second
	httpIdleTimeout       = 60 * time.Second
	serverShutdownTimeout = 5 * time.Second
	hostAny               = "0.0.0.0"
	hostLoopback          = "127.0.0.1"
)

func (c *Config) readTimeout() time.Duration {
	return durationOr(c.ReadTimeout, httpReadTimeout)
}

func (c *Config) writeTimeout() time.Duration {
	return durationOr(c.WriteTimeout, httpWriteTimeout)
}

func (c *Config) idleTimeout() time.Duration {
	return durationOr(c.IdleTimeout, httpIdleTimeout)
}

func (c *Config) shutdownTimeout() time.Duration {
	return durationOr(c.ShutdownTimeout, serverShutdownTimeout)
}

func durationOr(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
