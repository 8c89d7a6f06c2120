package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/compozy/triggers/engine/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExecutions() []*trigger.Execution {
	runID := "run-1"
	return []*trigger.Execution{{
		ID:        "x1",
		TriggerID: "t1",
		Context:   trigger.EventContext{"entityId": "e1"},
		RunID:     &runID,
		Status:    trigger.ExecutionSuccess,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
}

func TestWriteOutput(t *testing.T) {
	t.Run("Should render indented JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeOutput(&buf, OutputFormatJSON, sampleExecutions()))
		assert.Contains(t, buf.String(), `"trigger_id": "t1"`)
		assert.Contains(t, buf.String(), `"run_id": "run-1"`)
	})
	t.Run("Should render YAML with the JSON field names", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeOutput(&buf, OutputFormatYAML, sampleExecutions()))
		out := buf.String()
		assert.Contains(t, out, "trigger_id: t1")
		assert.Contains(t, out, "run_id: run-1")
		assert.Contains(t, out, "entityId: e1")
		assert.Contains(t, out, "error: null")
	})
	t.Run("Should reject unknown formats", func(t *testing.T) {
		err := writeOutput(&bytes.Buffer{}, "table", nil)
		assert.ErrorContains(t, err, "unsupported output format")
	})
}
