package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/job"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	return logger.ContextWithLogger(t.Context(), logger.NewForTests())
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool
}

var triggerCols = []string{
	"id", "workspace_id", "name", "description", "slug", "process_definition_id",
	"event_type", "conditions", "variable_mappings", "webhook_secret", "active",
	"last_fired_at", "fire_count", "created_at", "updated_at",
}

func addTriggerRow(rows *pgxmock.Rows, id string, now time.Time) *pgxmock.Rows {
	secret := "s3cret"
	return rows.AddRow(
		core.ID(id), "w1", "Nightly", "", "nightly", "def-1",
		"cron_tick", []byte(`{"schedule":"0 2 * * *"}`), []byte(`{"ticket":"$.entityId"}`), &secret, true,
		(*time.Time)(nil), int64(3), now, now,
	)
}

func TestTriggerRepo(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Should insert all columns on create", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTriggerRepo(mockPool)
		args := make([]any, len(triggerCols))
		for i := range args {
			args[i] = pgxmock.AnyArg()
		}
		mockPool.ExpectExec("INSERT INTO triggers").
			WithArgs(args...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(testCtx(t), &trigger.Trigger{ID: "t1", WorkspaceID: "w1", EventType: trigger.EventManual})

		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should map unique violations to duplicate slug", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTriggerRepo(mockPool)
		mockPool.ExpectExec("INSERT INTO triggers").
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(testCtx(t), &trigger.Trigger{ID: "t1"})

		assert.ErrorIs(t, err, trigger.ErrDuplicateSlug)
	})
	t.Run("Should load and decode a trigger", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTriggerRepo(mockPool)
		rows := addTriggerRow(mockPool.NewRows(triggerCols), "t1", now)
		mockPool.ExpectQuery("SELECT (.+) FROM triggers WHERE id = \\$1").
			WithArgs("t1").
			WillReturnRows(rows)

		tr, err := repo.Get(testCtx(t), "t1")

		require.NoError(t, err)
		assert.Equal(t, trigger.EventCronTick, tr.EventType)
		assert.Equal(t, "s3cret", tr.WebhookSecret)
		assert.Equal(t, "$.entityId", tr.VariableMappings["ticket"])
		assert.Equal(t, int64(3), tr.FireCount)
		assert.Nil(t, tr.LastFiredAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should return not found for missing rows", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTriggerRepo(mockPool)
		mockPool.ExpectQuery("SELECT (.+) FROM triggers WHERE slug = \\$1 AND workspace_id = \\$2").
			WithArgs("missing", "w1").
			WillReturnRows(mockPool.NewRows(triggerCols))

		_, err := repo.GetBySlug(testCtx(t), "w1", "missing")

		assert.ErrorIs(t, err, trigger.ErrTriggerNotFound)
	})
	t.Run("Should list active triggers across workspaces", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTriggerRepo(mockPool)
		rows := mockPool.NewRows(triggerCols)
		addTriggerRow(rows, "t1", now)
		addTriggerRow(rows, "t2", now)
		mockPool.ExpectQuery("SELECT (.+) FROM triggers WHERE event_type = \\$1 AND active = \\$2 ORDER BY").
			WithArgs("cron_tick", true).
			WillReturnRows(rows)

		out, err := repo.ListActive(testCtx(t), trigger.EventCronTick, "")

		require.NoError(t, err)
		assert.Len(t, out, 2)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should report not found when toggling a missing trigger", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTriggerRepo(mockPool)
		mockPool.ExpectExec("UPDATE triggers SET active").
			WithArgs(false, pgxmock.AnyArg(), "nope").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		_, err := repo.SetActive(testCtx(t), "nope", false)

		assert.ErrorIs(t, err, trigger.ErrTriggerNotFound)
	})
	t.Run("Should increment fire statistics atomically", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTriggerRepo(mockPool)
		mockPool.ExpectExec("UPDATE triggers SET fire_count = fire_count \\+ 1").
			WithArgs(now, "t1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.RecordFire(testCtx(t), "t1", now))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should wrap delete failures", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTriggerRepo(mockPool)
		mockPool.ExpectExec("DELETE FROM triggers").
			WithArgs("t1").
			WillReturnError(errors.New("conn reset"))

		err := repo.Delete(testCtx(t), "t1")

		assert.ErrorContains(t, err, "deleting trigger")
	})
}

func TestExecutionRepo(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Should append an execution", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewExecutionRepo(mockPool)
		runID := "run-1"
		mockPool.ExpectExec("INSERT INTO trigger_executions").
			WithArgs(core.ID("x1"), core.ID("t1"), pgxmock.AnyArg(), &runID, "success", (*string)(nil), now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Append(testCtx(t), &trigger.Execution{
			ID: "x1", TriggerID: "t1", RunID: &runID, Status: trigger.ExecutionSuccess, CreatedAt: now,
		})

		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should list executions newest first with a limit", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewExecutionRepo(mockPool)
		msg := "not deployable"
		rows := mockPool.NewRows([]string{"id", "trigger_id", "context", "run_id", "status", "error", "created_at"}).
			AddRow(core.ID("x2"), core.ID("t1"), []byte(`{"entityId":"e1"}`), (*string)(nil), "failed", &msg, now)
		mockPool.ExpectQuery("SELECT (.+) FROM trigger_executions WHERE trigger_id = \\$1 ORDER BY created_at DESC, id DESC LIMIT 5").
			WithArgs("t1").
			WillReturnRows(rows)

		out, err := repo.ListByTrigger(testCtx(t), "t1", 5)

		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, trigger.ExecutionFailed, out[0].Status)
		assert.Equal(t, "e1", out[0].Context["entityId"])
		assert.Equal(t, "not deployable", *out[0].Error)
	})
	t.Run("Should resolve a run link through the trigger", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewExecutionRepo(mockPool)
		rows := mockPool.NewRows([]string{"run_id", "execution_id", "definition_id"}).
			AddRow("run-1", core.ID("x1"), "def-1")
		mockPool.ExpectQuery("SELECT e.run_id, (.+) JOIN triggers t ON t.id = e.trigger_id WHERE e.run_id = \\$1").
			WithArgs("run-1").
			WillReturnRows(rows)

		link, err := repo.ResolveRun(testCtx(t), "run-1")

		require.NoError(t, err)
		assert.Equal(t, core.ID("x1"), link.ExecutionID)
		assert.Equal(t, "def-1", link.DefinitionID)
	})
	t.Run("Should report unknown runs", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewExecutionRepo(mockPool)
		mockPool.ExpectQuery("SELECT e.run_id").
			WithArgs("run-x").
			WillReturnRows(mockPool.NewRows([]string{"run_id", "execution_id", "definition_id"}))

		_, err := repo.ResolveRun(testCtx(t), "run-x")

		assert.ErrorIs(t, err, trigger.ErrRunNotFound)
	})
}

func TestAuditRepo(t *testing.T) {
	t.Run("Should insert an element audit", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewAuditRepo(mockPool)
		now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		mockPool.ExpectExec("INSERT INTO element_audits").
			WithArgs(core.ID("a1"), core.ID("x1"), "def-1", "run-1", "el-1", "update_status", "completed", now, int64(12), now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.AppendElementAudit(testCtx(t), &job.ElementAudit{
			ID: "a1", ExecutionID: "x1", DefinitionID: "def-1", ExternalRunID: "run-1", ElementID: "el-1",
			ElementType: "update_status", Outcome: job.OutcomeCompleted, StartedAt: now, DurationMS: 12, CreatedAt: now,
		})

		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestConfigDSN(t *testing.T) {
	t.Run("Should prefer the connection string", func(t *testing.T) {
		assert.Equal(t, "postgres://x", (&Config{ConnString: "postgres://x", Host: "h"}).DSN())
	})
	t.Run("Should synthesize a DSN from fields", func(t *testing.T) {
		dsn := (&Config{Host: "db", Port: "5432", User: "u", Password: "p@ss", DBName: "triggers"}).DSN()
		assert.Equal(t, "postgres://u:p%40ss@db:5432/triggers?sslmode=disable", dsn)
	})
	t.Run("Should clamp idle connections to the pool size", func(t *testing.T) {
		maxConns, minConns := deriveConnectionBounds(&Config{MaxOpenConns: 4, MaxIdleConns: 10})
		assert.Equal(t, int32(4), maxConns)
		assert.Equal(t, int32(4), minConns)
	})
}
