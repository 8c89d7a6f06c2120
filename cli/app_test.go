package cli

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/infra/repo"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/compozy/triggers/pkg/config"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	return logger.ContextWithLogger(t.Context(), logger.NewForTests())
}

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = repo.DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "triggers.db")
	cfg.Orchestrator.BaseURL = "http://127.0.0.1:1"
	return cfg
}

func TestNewApp(t *testing.T) {
	t.Run("Should wire the HTTP surface on SQLite without Redis", func(t *testing.T) {
		ctx := testCtx(t)
		a, err := newApp(ctx, sqliteConfig(t))
		require.NoError(t, err)
		defer a.close(ctx)

		assert.Nil(t, a.redis)
		assert.NotNil(t, a.scheduler)
		assert.Equal(t, repo.DriverSQLite, a.store.Driver())

		w := httptest.NewRecorder()
		a.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "database")

		w = httptest.NewRecorder()
		a.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "triggers_build_info")
	})
	t.Run("Should leave the scheduler out when disabled", func(t *testing.T) {
		ctx := testCtx(t)
		cfg := sqliteConfig(t)
		cfg.Scheduler.Enabled = false
		a, err := newApp(ctx, cfg)
		require.NoError(t, err)
		defer a.close(ctx)
		assert.Nil(t, a.scheduler)
	})
	t.Run("Should use Redis when configured", func(t *testing.T) {
		ctx := testCtx(t)
		mr := miniredis.RunT(t)
		cfg := sqliteConfig(t)
		cfg.Redis.URL = "redis://" + mr.Addr()
		a, err := newApp(ctx, cfg)
		require.NoError(t, err)
		defer a.close(ctx)

		require.NotNil(t, a.redis)
		assert.Contains(t, a.healthChecks(), "redis")
	})
	t.Run("Should fail without an orchestrator URL", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cfg.Orchestrator.BaseURL = ""
		_, err := newApp(testCtx(t), cfg)
		assert.ErrorContains(t, err, "orchestrator")
	})
}

func TestRun(t *testing.T) {
	t.Run("Should stop cleanly when the context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(testCtx(t))
		cfg := sqliteConfig(t)
		cfg.Server.Host = "127.0.0.1"
		cfg.Server.Port = freePort(t)
		a, err := newApp(ctx, cfg)
		require.NoError(t, err)
		defer a.close(ctx)

		done := make(chan error, 1)
		go func() { done <- a.run(ctx) }()
		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("app did not stop")
		}
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func seedExecution(t *testing.T, cfg *config.Config) {
	t.Helper()
	ctx := testCtx(t)
	store, err := repo.Open(ctx, repoConfig(cfg), nil)
	require.NoError(t, err)
	defer store.Close(ctx)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Triggers().Create(ctx, &trigger.Trigger{
		ID:                  "t1",
		WorkspaceID:         "w1",
		Name:                "Escalate",
		Slug:                "escalate",
		ProcessDefinitionID: "def-1",
		EventType:           trigger.EventManual,
		Conditions:          trigger.Conditions{},
		VariableMappings:    trigger.VariableMappings{},
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}))
	runID := "run-1"
	require.NoError(t, store.Executions().Append(ctx, &trigger.Execution{
		ID:        core.MustNewID(),
		TriggerID: "t1",
		Context:   trigger.EventContext{"entityId": "e1"},
		RunID:     &runID,
		Status:    trigger.ExecutionSuccess,
		CreatedAt: now,
	}))
}

func commandConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "triggers.yaml")
	writeFile(t, path, fmt.Sprintf("database:\n  driver: sqlite\n  path: %s\n", cfg.Database.Path))
	return path
}

func TestExecutionsCmd(t *testing.T) {
	t.Run("Should print executions as YAML", func(t *testing.T) {
		cfg := sqliteConfig(t)
		seedExecution(t, cfg)
		var out bytes.Buffer
		cmd := RootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{
			"executions", "t1",
			"--config", commandConfig(t, cfg),
			"--env-file", "",
			"-o", "yaml",
		})

		require.NoError(t, cmd.Execute())

		assert.Contains(t, out.String(), "trigger_id: t1")
		assert.Contains(t, out.String(), "run_id: run-1")
	})
	t.Run("Should fail for an unknown trigger", func(t *testing.T) {
		cfg := sqliteConfig(t)
		seedExecution(t, cfg)
		cmd := RootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"executions", "missing", "--config", commandConfig(t, cfg), "--env-file", ""})

		err := cmd.Execute()

		assert.ErrorIs(t, err, trigger.ErrTriggerNotFound)
	})
	t.Run("Should reject unknown output formats", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cmd := RootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"executions", "t1", "--config", commandConfig(t, cfg), "--env-file", "", "-o", "csv"})

		assert.ErrorContains(t, cmd.Execute(), "unsupported output format")
	})
}

func TestMigrateCmd(t *testing.T) {
	t.Run("Should create the schema for SQLite", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cmd := RootCmd()
		cmd.SetArgs([]string{"migrate", "--config", commandConfig(t, cfg), "--env-file", ""})

		require.NoError(t, cmd.Execute())

		cfg.Database.AutoMigrate = false
		ctx := testCtx(t)
		store, err := repo.Open(ctx, repoConfig(cfg), nil)
		require.NoError(t, err)
		defer store.Close(ctx)
		_, err = store.Triggers().List(ctx, &trigger.Filter{})
		assert.NoError(t, err)
	})
	t.Run("Should reject status for SQLite", func(t *testing.T) {
		cfg := sqliteConfig(t)
		cmd := RootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"migrate", "--status", "--config", commandConfig(t, cfg), "--env-file", ""})

		assert.ErrorContains(t, cmd.Execute(), "only supported for the postgres driver")
	})
}

func TestApplyServeFlags(t *testing.T) {
	t.Run("Should override host and port", func(t *testing.T) {
		cmd := ServeCmd()
		require.NoError(t, cmd.Flags().Set("host", "127.0.0.1"))
		require.NoError(t, cmd.Flags().Set("port", "7001"))
		cfg := config.Default()

		require.NoError(t, applyServeFlags(cmd, cfg))

		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 7001, cfg.Server.Port)
	})
	t.Run("Should reject an out of range port", func(t *testing.T) {
		cmd := ServeCmd()
		require.NoError(t, cmd.Flags().Set("port", "70000"))
		assert.Error(t, applyServeFlags(cmd, config.Default()))
	})
}
