package config

import (
	"time"
)

// Config is the complete application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Redis         RedisConfig         `koanf:"redis"`
	Scheduler     SchedulerConfig     `koanf:"scheduler"`
	Dispatch      DispatchConfig      `koanf:"dispatch"`
	Webhook       WebhookConfig       `koanf:"webhook"`
	RateLimit     RateLimitConfig     `koanf:"ratelimit"`
	Orchestrator  OrchestratorConfig  `koanf:"orchestrator"`
	Collaborators CollaboratorsConfig `koanf:"collaborators"`
	Monitoring    MonitoringConfig    `koanf:"monitoring"`
	Runtime       RuntimeConfig       `koanf:"runtime"`
}

// ServerConfig contains HTTP listener configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"             env:"SERVER_HOST"             validate:"required"`
	Port            int           `koanf:"port"             env:"SERVER_PORT"             validate:"min=1,max=65535"`
	CORSEnabled     bool          `koanf:"cors_enabled"     env:"SERVER_CORS_ENABLED"`
	AllowedOrigins  []string      `koanf:"allowed_origins"  env:"SERVER_ALLOWED_ORIGINS"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig selects the storage driver and its connection settings.
type DatabaseConfig struct {
	Driver      string          `koanf:"driver"       env:"DB_DRIVER"       validate:"oneof=postgres sqlite"`
	AutoMigrate bool            `koanf:"auto_migrate" env:"DB_AUTO_MIGRATE"`
	ConnString  SensitiveString `koanf:"conn_string"  env:"DB_CONN_STRING"  sensitive:"true"`
	Host        string          `koanf:"host"         env:"DB_HOST"`
	Port        string          `koanf:"port"         env:"DB_PORT"`
	User        string          `koanf:"user"         env:"DB_USER"`
	Password    SensitiveString `koanf:"password"     env:"DB_PASSWORD"     sensitive:"true"`
	DBName      string          `koanf:"name"         env:"DB_NAME"`
	SSLMode     string          `koanf:"ssl_mode"     env:"DB_SSL_MODE"`
	MaxConns    int             `koanf:"max_conns"    env:"DB_MAX_CONNS"    validate:"min=0"`
	// Path is the SQLite database file or ":memory:".
	Path        string          `koanf:"path"         env:"DB_PATH"`
	BusyTimeout time.Duration   `koanf:"busy_timeout" env:"DB_BUSY_TIMEOUT"`
}

// RedisConfig is optional. Leaving URL and Host empty keeps idempotency and
// rate limiting in process.
type RedisConfig struct {
	URL         string          `koanf:"url"          env:"REDIS_URL"`
	Host        string          `koanf:"host"         env:"REDIS_HOST"`
	Port        string          `koanf:"port"         env:"REDIS_PORT"`
	Password    SensitiveString `koanf:"password"     env:"REDIS_PASSWORD"     sensitive:"true"`
	DB          int             `koanf:"db"           env:"REDIS_DB"           validate:"min=0"`
	PoolSize    int             `koanf:"pool_size"    env:"REDIS_POOL_SIZE"    validate:"min=0"`
	TLSEnabled  bool            `koanf:"tls_enabled"  env:"REDIS_TLS_ENABLED"`
	PingTimeout time.Duration   `koanf:"ping_timeout" env:"REDIS_PING_TIMEOUT"`
}

// Enabled reports whether a Redis endpoint is configured.
func (c *RedisConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

// SchedulerConfig controls cron trigger reconciliation.
type SchedulerConfig struct {
	Enabled           bool          `koanf:"enabled"            env:"SCHEDULER_ENABLED"`
	ReconcileInterval time.Duration `koanf:"reconcile_interval" env:"SCHEDULER_RECONCILE_INTERVAL" validate:"min=0"`
}

// DispatchConfig controls job dispatch and the execution audit cache.
type DispatchConfig struct {
	LinkCacheSize int `koanf:"link_cache_size" env:"DISPATCH_LINK_CACHE_SIZE" validate:"min=1"`
}

// WebhookConfig controls the public webhook ingress.
type WebhookConfig struct {
	MaxBody          int64         `koanf:"max_body"          env:"WEBHOOK_MAX_BODY"          validate:"min=1"`
	IdempotencyField string        `koanf:"idempotency_field" env:"WEBHOOK_IDEMPOTENCY_FIELD"`
	IdempotencyTTL   time.Duration `koanf:"idempotency_ttl"   env:"WEBHOOK_IDEMPOTENCY_TTL"   validate:"min=0"`
	IdempotencySize  int           `koanf:"idempotency_size"  env:"WEBHOOK_IDEMPOTENCY_SIZE"  validate:"min=1"`
	ForwardHeaders   []string      `koanf:"forward_headers"   env:"WEBHOOK_FORWARD_HEADERS"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	GlobalRate RateConfig `koanf:"global_rate"`
	HooksRate  RateConfig `koanf:"hooks_rate"`
	Prefix     string     `koanf:"prefix"      env:"RATELIMIT_PREFIX"`
	MaxRetry   int        `koanf:"max_retry"   env:"RATELIMIT_MAX_RETRY"`
}

type RateConfig struct {
	Limit  int64         `koanf:"limit"  validate:"min=0"`
	Period time.Duration `koanf:"period" validate:"min=0"`
}

// OrchestratorConfig points at the external process engine.
type OrchestratorConfig struct {
	BaseURL                     string          `koanf:"base_url"        env:"ORCHESTRATOR_BASE_URL"        validate:"omitempty,url"`
	APIKey                      SensitiveString `koanf:"api_key"         env:"ORCHESTRATOR_API_KEY"         sensitive:"true"`
	Timeout                     time.Duration   `koanf:"timeout"         env:"ORCHESTRATOR_TIMEOUT"`
	RetryTimes                  int             `koanf:"retry_times"     env:"ORCHESTRATOR_RETRY_TIMES"     validate:"min=0"`
	ErrorPercentThresholdToOpen int             `koanf:"error_percent"   env:"ORCHESTRATOR_ERROR_PERCENT"   validate:"min=0,max=100"`
	MinimumRequestToOpen        int             `koanf:"minimum_request" env:"ORCHESTRATOR_MINIMUM_REQUEST" validate:"min=0"`
	WaitDurationInOpenState     time.Duration   `koanf:"open_wait"       env:"ORCHESTRATOR_OPEN_WAIT"`
}

// CollaboratorsConfig holds side-effect collaborator endpoints. Empty URLs
// leave the collaborator absent.
type CollaboratorsConfig struct {
	EntitiesURL   string          `koanf:"entities_url"   env:"COLLABORATORS_ENTITIES_URL"   validate:"omitempty,url"`
	NotifierURL   string          `koanf:"notifier_url"   env:"COLLABORATORS_NOTIFIER_URL"   validate:"omitempty,url"`
	AuditURL      string          `koanf:"audit_url"      env:"COLLABORATORS_AUDIT_URL"      validate:"omitempty,url"`
	ClassifierURL string          `koanf:"classifier_url" env:"COLLABORATORS_CLASSIFIER_URL" validate:"omitempty,url"`
	APIKey        SensitiveString `koanf:"api_key"        env:"COLLABORATORS_API_KEY"        sensitive:"true"`
	Timeout       time.Duration   `koanf:"timeout"        env:"COLLABORATORS_TIMEOUT"`
	RetryCount    int             `koanf:"retry_count"    env:"COLLABORATORS_RETRY_COUNT"    validate:"min=0"`
}

type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" env:"RUNTIME_ENVIRONMENT" validate:"oneof=development staging production"`
	LogLevel    string `koanf:"log_level"   env:"RUNTIME_LOG_LEVEL"   validate:"oneof=debug info warn error disabled"`
	LogJSON     bool   `koanf:"log_json"    env:"RUNTIME_LOG_JSON"`
	LogSource   bool   `koanf:"log_source"  env:"RUNTIME_LOG_SOURCE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5001,
			CORSEnabled:     false,
			AllowedOrigins:  []string{},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:      "sqlite",
			AutoMigrate: true,
			Host:        "localhost",
			Port:        "5432",
			User:        "postgres",
			DBName:      "triggers",
			SSLMode:     "disable",
			Path:        "triggers.db",
			BusyTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Port:        "6379",
			PoolSize:    10,
			PingTimeout: 5 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:           true,
			ReconcileInterval: 60 * time.Second,
		},
		Dispatch: DispatchConfig{
			LinkCacheSize: 1024,
		},
		Webhook: WebhookConfig{
			MaxBody:          1 << 20,
			IdempotencyField: "id",
			IdempotencyTTL:   24 * time.Hour,
			IdempotencySize:  10_000,
			ForwardHeaders:   []string{"Content-Type", "User-Agent", "X-Request-Id"},
		},
		RateLimit: RateLimitConfig{
			GlobalRate: RateConfig{Limit: 600, Period: time.Minute},
			HooksRate:  RateConfig{Limit: 60, Period: time.Minute},
			Prefix:     "triggers:ratelimit:",
			MaxRetry:   3,
		},
		Orchestrator: OrchestratorConfig{
			Timeout:                     10 * time.Second,
			RetryTimes:                  2,
			ErrorPercentThresholdToOpen: 50,
			MinimumRequestToOpen:        10,
			WaitDurationInOpenState:     5 * time.Second,
		},
		Collaborators: CollaboratorsConfig{
			Timeout:    10 * time.Second,
			RetryCount: 2,
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
	}
}
