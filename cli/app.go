package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/triggers/engine/infra/cache"
	"github.com/compozy/triggers/engine/infra/collab"
	"github.com/compozy/triggers/engine/infra/monitoring"
	"github.com/compozy/triggers/engine/infra/orchestrator"
	"github.com/compozy/triggers/engine/infra/postgres"
	"github.com/compozy/triggers/engine/infra/repo"
	"github.com/compozy/triggers/engine/infra/server"
	"github.com/compozy/triggers/engine/infra/server/middleware/ratelimit"
	"github.com/compozy/triggers/engine/infra/server/routes"
	"github.com/compozy/triggers/engine/infra/sqlite"
	"github.com/compozy/triggers/engine/job"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/compozy/triggers/engine/trigger/schedule"
	"github.com/compozy/triggers/engine/webhook"
	"github.com/compozy/triggers/pkg/config"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const defaultStopTimeout = 5 * time.Second

// app owns every long-lived component of the serve command.
type app struct {
	cfg        *config.Config
	monitoring *monitoring.Service
	store      *repo.Provider
	redis      *cache.Redis
	registry   *trigger.Registry
	service    *trigger.Service
	scheduler  *schedule.Scheduler
	dispatcher *job.Dispatcher
	server     *server.Server
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close(ctx)
		}
	}()
	a.monitoring, err = monitoring.NewService(ctx, &monitoring.Config{
		Enabled: cfg.Monitoring.Enabled,
		Path:    cfg.Monitoring.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize monitoring: %w", err)
	}
	reg := a.monitoring.Registerer()

	a.store, err = repo.Open(ctx, repoConfig(cfg), reg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if cfg.Redis.Enabled() {
		a.redis, err = cache.NewRedis(ctx, redisConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}
	orch, err := orchestrator.NewClient(orchestratorConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator client: %w", err)
	}

	triggers := a.store.Triggers()
	a.registry = trigger.NewRegistry(triggers)
	a.service = trigger.NewService(triggers, a.store.Executions(), orch,
		trigger.WithMetrics(trigger.NewMetrics(reg)),
	)
	if cfg.Scheduler.Enabled {
		a.scheduler = schedule.NewScheduler(triggers, a.service,
			schedule.WithInterval(cfg.Scheduler.ReconcileInterval),
			schedule.WithMetrics(schedule.NewMetrics(reg)),
		)
		a.registry.AddListener(a.scheduler)
	}

	links, err := job.NewLinkCache(a.store.Executions(), cfg.Dispatch.LinkCacheSize)
	if err != nil {
		return nil, err
	}
	a.dispatcher = job.NewDispatcher(orch, collab.New(collabConfig(cfg)),
		job.WithAuditor(job.NewAuditor(links, a.store.Audits())),
		job.WithMetrics(job.NewMetrics(reg)),
	)

	hooks := webhook.NewProcessor(triggers, a.service, a.idempotency(),
		webhook.WithConfig(webhookConfig(cfg)),
		webhook.WithMetrics(webhook.NewMetrics(reg)),
	)
	var limiterClient redis.UniversalClient
	if a.redis != nil {
		limiterClient = a.redis.Client()
	}
	limiter, err := ratelimit.NewManager(rateLimitConfig(cfg), limiterClient, ratelimit.NewMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	a.server, err = server.NewServer(ctx, serverConfig(cfg), &server.Deps{
		Registry:    a.registry,
		Service:     a.service,
		Dispatcher:  a.dispatcher,
		Webhooks:    hooks,
		RateLimiter: limiter,
		Monitoring:  a.monitoring,
		Health:      a.healthChecks(),
		Version:     monitoring.Version,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) idempotency() webhook.Service {
	if a.redis != nil {
		return webhook.NewRedisService(a.redis)
	}
	return webhook.NewMemoryService(a.cfg.Webhook.IdempotencySize, a.cfg.Webhook.IdempotencyTTL)
}

func (a *app) healthChecks() map[string]server.HealthCheck {
	checks := map[string]server.HealthCheck{
		"database": a.store.HealthCheck,
	}
	if a.redis != nil {
		checks["redis"] = a.redis.HealthCheck
	}
	return checks
}

// run serves HTTP and runs the cron scheduler until ctx is canceled or one
// of them fails.
func (a *app) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if a.scheduler != nil {
		if err := a.scheduler.Start(gctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.stopTimeout())
			defer cancel()
			a.scheduler.Stop(stopCtx)
			return nil
		})
	}
	g.Go(func() error {
		return a.server.Run(gctx)
	})
	return g.Wait()
}

func (a *app) stopTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return defaultStopTimeout
}

func (a *app) close(ctx context.Context) {
	log := logger.FromContext(ctx)
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to close store", "error", err)
		}
	}
}

func repoConfig(cfg *config.Config) *repo.Config {
	db := &cfg.Database
	return &repo.Config{
		Driver:      db.Driver,
		AutoMigrate: db.AutoMigrate,
		Postgres: postgres.Config{
			ConnString:   db.ConnString.Value(),
			Host:         db.Host,
			Port:         db.Port,
			User:         db.User,
			Password:     db.Password.Value(),
			DBName:       db.DBName,
			SSLMode:      db.SSLMode,
			MaxOpenConns: db.MaxConns,
		},
		SQLite: sqlite.Config{
			Path:         db.Path,
			MaxOpenConns: db.MaxConns,
			BusyTimeout:  db.BusyTimeout,
		},
	}
}

func redisConfig(cfg *config.Config) *cache.Config {
	r := &cfg.Redis
	return &cache.Config{
		URL:         r.URL,
		Host:        r.Host,
		Port:        r.Port,
		Password:    r.Password.Value(),
		DB:          r.DB,
		PoolSize:    r.PoolSize,
		TLSEnabled:  r.TLSEnabled,
		PingTimeout: r.PingTimeout,
	}
}

func orchestratorConfig(cfg *config.Config) *orchestrator.Config {
	o := &cfg.Orchestrator
	return &orchestrator.Config{
		BaseURL:                     o.BaseURL,
		APIKey:                      o.APIKey.Value(),
		Timeout:                     o.Timeout,
		ErrorPercentThresholdToOpen: o.ErrorPercentThresholdToOpen,
		MinimumRequestToOpen:        o.MinimumRequestToOpen,
		WaitDurationInOpenState:     o.WaitDurationInOpenState,
		RetryTimes:                  o.RetryTimes,
	}
}

func collabConfig(cfg *config.Config) *collab.Config {
	c := &cfg.Collaborators
	return &collab.Config{
		EntitiesURL:   c.EntitiesURL,
		NotifierURL:   c.NotifierURL,
		AuditURL:      c.AuditURL,
		ClassifierURL: c.ClassifierURL,
		APIKey:        c.APIKey.Value(),
		Timeout:       c.Timeout,
		RetryCount:    c.RetryCount,
	}
}

func webhookConfig(cfg *config.Config) webhook.Config {
	w := &cfg.Webhook
	return webhook.Config{
		MaxBody:          w.MaxBody,
		IdempotencyField: w.IdempotencyField,
		IdempotencyTTL:   w.IdempotencyTTL,
		ForwardHeaders:   w.ForwardHeaders,
	}
}

func rateLimitConfig(cfg *config.Config) *ratelimit.Config {
	rl := &cfg.RateLimit
	out := ratelimit.DefaultConfig()
	out.GlobalRate = toRate(rl.GlobalRate)
	out.RouteRates = map[string]ratelimit.RateConfig{
		routes.Hooks(): toRate(rl.HooksRate),
	}
	out.Prefix = rl.Prefix
	out.MaxRetry = rl.MaxRetry
	out.ExcludedPaths = []string{routes.Health(), cfg.Monitoring.Path}
	return out
}

// toRate treats a zero limit as "no limit".
func toRate(rc config.RateConfig) ratelimit.RateConfig {
	return ratelimit.RateConfig{
		Limit:    rc.Limit,
		Period:   rc.Period,
		Disabled: rc.Limit == 0 || rc.Period == 0,
	}
}

func serverConfig(cfg *config.Config) *server.Config {
	s := &cfg.Server
	return &server.Config{
		Host:        s.Host,
		Port:        s.Port,
		CORSEnabled: s.CORSEnabled,
		CORS: server.CORSConfig{
			AllowedOrigins: s.AllowedOrigins,
		},
		ReadTimeout:     s.ReadTimeout,
		WriteTimeout:    s.WriteTimeout,
		ShutdownTimeout: s.ShutdownTimeout,
		HookBodyLimit:   cfg.Webhook.MaxBody,
	}
}
