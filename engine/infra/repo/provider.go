package repo

import (
	"context"
	"fmt"

	"github.com/compozy/triggers/engine/infra/postgres"
	"github.com/compozy/triggers/engine/infra/sqlite"
	"github.com/compozy/triggers/engine/job"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver      string
	Postgres    postgres.Config
	SQLite      sqlite.Config
	AutoMigrate bool
}

// Provider exposes repositories required by the application, backed by a
// specific driver. It returns interfaces rather than driver-specific types.
type Provider struct {
	driver     string
	triggers   trigger.Repository
	executions trigger.ExecutionRepository
	audits     job.AuditStore
	health     func(context.Context) error
	close      func(context.Context) error
}

// Open connects the configured driver and optionally applies migrations.
func Open(ctx context.Context, cfg *Config, reg prometheus.Registerer) (*Provider, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return openPostgres(ctx, cfg, reg)
	case DriverSQLite:
		return openSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *Config, reg prometheus.Registerer) (*Provider, error) {
	if cfg.AutoMigrate {
		if err := postgres.ApplyMigrationsWithLock(ctx, cfg.Postgres.DSN()); err != nil {
			return nil, err
		}
	}
	st, err := postgres.NewStore(ctx, &cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		if err := st.RegisterMetrics(reg); err != nil {
			logger.FromContext(ctx).Warn("Postgres metrics not registered", "error", err)
		}
	}
	pool := st.Pool()
	return &Provider{
		driver:     DriverPostgres,
		triggers:   postgres.NewTriggerRepo(pool),
		executions: postgres.NewExecutionRepo(pool),
		audits:     postgres.NewAuditRepo(pool),
		health:     st.HealthCheck,
		close:      st.Close,
	}, nil
}

func openSQLite(ctx context.Context, cfg *Config) (*Provider, error) {
	st, err := sqlite.NewStore(ctx, &cfg.SQLite)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
	}
	db := st.DB()
	return &Provider{
		driver:     DriverSQLite,
		triggers:   sqlite.NewTriggerRepo(db),
		executions: sqlite.NewExecutionRepo(db),
		audits:     sqlite.NewAuditRepo(db),
		health:     st.HealthCheck,
		close:      st.Close,
	}, nil
}

func (p *Provider) Driver() string { return p.driver }

func (p *Provider) Triggers() trigger.Repository { return p.triggers }

func (p *Provider) Executions() trigger.ExecutionRepository { return p.executions }

func (p *Provider) Audits() job.AuditStore { return p.audits }

func (p *Provider) HealthCheck(ctx context.Context) error { return p.health(ctx) }

func (p *Provider) Close(ctx context.Context) error { return p.close(ctx) }
