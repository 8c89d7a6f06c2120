package repo

import (
	"testing"
	"time"

	"github.com/compozy/triggers/engine/infra/sqlite"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("Should open a migrated sqlite provider", func(t *testing.T) {
		ctx := logger.ContextWithLogger(t.Context(), logger.NewForTests())
		p, err := Open(ctx, &Config{
			Driver:      DriverSQLite,
			SQLite:      sqlite.Config{Path: ":memory:"},
			AutoMigrate: true,
		}, nil)
		require.NoError(t, err)
		defer p.Close(ctx)

		assert.Equal(t, DriverSQLite, p.Driver())
		require.NoError(t, p.HealthCheck(ctx))
		now := time.Now().UTC()
		require.NoError(t, p.Triggers().Create(ctx, &trigger.Trigger{
			ID: "t1", WorkspaceID: "w1", Name: "n", Slug: "n", ProcessDefinitionID: "d",
			EventType: trigger.EventManual, Active: true, CreatedAt: now, UpdatedAt: now,
		}))
		out, err := p.Executions().ListByTrigger(ctx, "t1", 10)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.NotNil(t, p.Audits())
	})
	t.Run("Should reject unknown drivers", func(t *testing.T) {
		_, err := Open(t.Context(), &Config{Driver: "mysql"}, nil)
		assert.ErrorContains(t, err, "unsupported database driver")
	})
}
