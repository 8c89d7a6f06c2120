package store

import (
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerRow(t *testing.T) {
	t.Run("Should store empty objects for nil maps and omit empty secrets", func(t *testing.T) {
		row, err := NewTriggerRow(&trigger.Trigger{ID: "t1", EventType: trigger.EventManual})
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(row.Conditions))
		assert.JSONEq(t, `{}`, string(row.VariableMappings))
		assert.Nil(t, row.WebhookSecret)
	})
	t.Run("Should decode NULL columns into empty maps", func(t *testing.T) {
		fired := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
		tr, err := (&TriggerRow{
			ID:            core.ID("t1"),
			EventType:     "cron_tick",
			Conditions:    []byte(`{"schedule":"0 9 * * *"}`),
			WebhookSecret: func() *string { s := "x"; return &s }(),
			LastFiredAt:   &fired,
		}).ToTrigger()
		require.NoError(t, err)
		expr, _ := tr.Schedule()
		assert.Equal(t, "0 9 * * *", expr)
		assert.NotNil(t, tr.VariableMappings)
		assert.Equal(t, "x", tr.WebhookSecret)
		assert.Equal(t, time.UTC, tr.LastFiredAt.Location())
	})
	t.Run("Should surface corrupt json", func(t *testing.T) {
		_, err := (&TriggerRow{ID: "t1", Conditions: []byte(`[`)}).ToTrigger()
		assert.ErrorContains(t, err, "decoding conditions")
	})
}

func TestApplyFilter(t *testing.T) {
	t.Run("Should build a filtered and paginated query", func(t *testing.T) {
		ws := "w1"
		et := trigger.EventCronTick
		active := true
		sql, args, err := ApplyFilter(SelectTriggers(squirrel.Dollar), &trigger.Filter{
			WorkspaceID: &ws, EventType: &et, Active: &active, Limit: 10, Offset: 20,
		}).ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "FROM triggers WHERE workspace_id = $1 AND event_type = $2 AND active = $3")
		assert.Contains(t, sql, "ORDER BY created_at DESC, id DESC LIMIT 10 OFFSET 20")
		assert.Equal(t, []any{"w1", "cron_tick", true}, args)
	})
	t.Run("Should span workspaces for an empty workspace id", func(t *testing.T) {
		f := ActiveFilter(trigger.EventCronTick, "")
		assert.Nil(t, f.WorkspaceID)
		assert.True(t, *f.Active)
	})
}
