package store

import (
	"github.com/Masterminds/squirrel"
	"github.com/compozy/triggers/engine/trigger"
)

// SelectTriggers starts a trigger query with the given placeholder format.
func SelectTriggers(ph squirrel.PlaceholderFormat) squirrel.SelectBuilder {
	return squirrel.Select(TriggerColumns...).From(TriggersTable).PlaceholderFormat(ph)
}

// ApplyFilter narrows sb by f. Rows are ordered newest first.
func ApplyFilter(sb squirrel.SelectBuilder, f *trigger.Filter) squirrel.SelectBuilder {
	if f != nil {
		if f.WorkspaceID != nil {
			sb = sb.Where(squirrel.Eq{"workspace_id": *f.WorkspaceID})
		}
		if f.EventType != nil {
			sb = sb.Where(squirrel.Eq{"event_type": f.EventType.String()})
		}
		if f.Active != nil {
			sb = sb.Where(squirrel.Eq{"active": *f.Active})
		}
		if f.Limit > 0 {
			sb = sb.Limit(uint64(f.Limit))
		}
		if f.Offset > 0 {
			sb = sb.Offset(uint64(f.Offset))
		}
	}
	return sb.OrderBy("created_at DESC", "id DESC")
}

// ActiveFilter builds the filter behind Repository.ListActive.
func ActiveFilter(eventType trigger.EventType, workspaceID string) *trigger.Filter {
	active := true
	f := &trigger.Filter{EventType: &eventType, Active: &active}
	if workspaceID != "" {
		f.WorkspaceID = &workspaceID
	}
	return f
}

func InsertTrigger(ph squirrel.PlaceholderFormat, row *TriggerRow) squirrel.InsertBuilder {
	return squirrel.Insert(TriggersTable).Columns(TriggerColumns...).Values(row.Values()...).PlaceholderFormat(ph)
}

func UpdateTrigger(ph squirrel.PlaceholderFormat, row *TriggerRow) squirrel.UpdateBuilder {
	return squirrel.Update(TriggersTable).
		SetMap(map[string]any{
			"name":                  row.Name,
			"description":           row.Description,
			"process_definition_id": row.ProcessDefinitionID,
			"conditions":            row.Conditions,
			"variable_mappings":     row.VariableMappings,
			"webhook_secret":        row.WebhookSecret,
			"active":                row.Active,
			"updated_at":            row.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": row.ID}).
		PlaceholderFormat(ph)
}

func InsertExecution(ph squirrel.PlaceholderFormat, row *ExecutionRow) squirrel.InsertBuilder {
	return squirrel.Insert(ExecutionsTable).Columns(ExecutionColumns...).Values(row.Values()...).PlaceholderFormat(ph)
}

func SelectExecutions(ph squirrel.PlaceholderFormat, triggerID string, limit int) squirrel.SelectBuilder {
	return squirrel.Select(ExecutionColumns...).
		From(ExecutionsTable).
		Where(squirrel.Eq{"trigger_id": triggerID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(ph)
}

// SelectRunLink resolves the newest execution that started externalRunID.
func SelectRunLink(ph squirrel.PlaceholderFormat, externalRunID string) squirrel.SelectBuilder {
	return squirrel.Select("e.run_id", "e.id AS execution_id", "t.process_definition_id AS definition_id").
		From(ExecutionsTable + " e").
		Join(TriggersTable + " t ON t.id = e.trigger_id").
		Where(squirrel.Eq{"e.run_id": externalRunID}).
		OrderBy("e.created_at DESC").
		Limit(1).
		PlaceholderFormat(ph)
}

func InsertAudit(ph squirrel.PlaceholderFormat, values []any) squirrel.InsertBuilder {
	return squirrel.Insert(AuditsTable).Columns(AuditColumns...).Values(values...).PlaceholderFormat(ph)
}
