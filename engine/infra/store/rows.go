package store

import (
	"fmt"
	"time"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/job"
	"github.com/compozy/triggers/engine/trigger"
)

const (
	TriggersTable   = "triggers"
	ExecutionsTable = "trigger_executions"
	AuditsTable     = "element_audits"
)

var TriggerColumns = []string{
	"id", "workspace_id", "name", "description", "slug", "process_definition_id",
	"event_type", "conditions", "variable_mappings", "webhook_secret", "active",
	"last_fired_at", "fire_count", "created_at", "updated_at",
}

var ExecutionColumns = []string{"id", "trigger_id", "context", "run_id", "status", "error", "created_at"}

var AuditColumns = []string{
	"id", "execution_id", "definition_id", "external_run_id", "element_id",
	"element_type", "outcome", "started_at", "duration_ms", "created_at",
}

// TriggerRow is the persisted shape of a trigger.
type TriggerRow struct {
	ID                  core.ID    `db:"id"`
	WorkspaceID         string     `db:"workspace_id"`
	Name                string     `db:"name"`
	Description         string     `db:"description"`
	Slug                string     `db:"slug"`
	ProcessDefinitionID string     `db:"process_definition_id"`
	EventType           string     `db:"event_type"`
	Conditions          []byte     `db:"conditions"`
	VariableMappings    []byte     `db:"variable_mappings"`
	WebhookSecret       *string    `db:"webhook_secret"`
	Active              bool       `db:"active"`
	LastFiredAt         *time.Time `db:"last_fired_at"`
	FireCount           int64      `db:"fire_count"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func NewTriggerRow(t *trigger.Trigger) (*TriggerRow, error) {
	conds, err := ToJSONB(nonNilMap(t.Conditions))
	if err != nil {
		return nil, fmt.Errorf("encoding conditions: %w", err)
	}
	mappings, err := ToJSONB(nonNilMap(t.VariableMappings))
	if err != nil {
		return nil, fmt.Errorf("encoding variable mappings: %w", err)
	}
	row := &TriggerRow{
		ID:                  t.ID,
		WorkspaceID:         t.WorkspaceID,
		Name:                t.Name,
		Description:         t.Description,
		Slug:                t.Slug,
		ProcessDefinitionID: t.ProcessDefinitionID,
		EventType:           t.EventType.String(),
		Conditions:          conds,
		VariableMappings:    mappings,
		Active:              t.Active,
		LastFiredAt:         t.LastFiredAt,
		FireCount:           t.FireCount,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	if t.WebhookSecret != "" {
		secret := t.WebhookSecret
		row.WebhookSecret = &secret
	}
	return row, nil
}

func (r *TriggerRow) ToTrigger() (*trigger.Trigger, error) {
	conds, err := fromJSONMap[trigger.Conditions](r.Conditions)
	if err != nil {
		return nil, fmt.Errorf("decoding conditions of %s: %w", r.ID, err)
	}
	mappings, err := fromJSONMap[trigger.VariableMappings](r.VariableMappings)
	if err != nil {
		return nil, fmt.Errorf("decoding variable mappings of %s: %w", r.ID, err)
	}
	t := &trigger.Trigger{
		ID:                  r.ID,
		WorkspaceID:         r.WorkspaceID,
		Name:                r.Name,
		Description:         r.Description,
		Slug:                r.Slug,
		ProcessDefinitionID: r.ProcessDefinitionID,
		EventType:           trigger.EventType(r.EventType),
		Conditions:          conds,
		VariableMappings:    mappings,
		Active:              r.Active,
		LastFiredAt:         utcPtr(r.LastFiredAt),
		FireCount:           r.FireCount,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
	if r.WebhookSecret != nil {
		t.WebhookSecret = *r.WebhookSecret
	}
	return t, nil
}

// Values returns the row in TriggerColumns order.
func (r *TriggerRow) Values() []any {
	return []any{
		r.ID, r.WorkspaceID, r.Name, r.Description, r.Slug, r.ProcessDefinitionID,
		r.EventType, r.Conditions, r.VariableMappings, r.WebhookSecret, r.Active,
		r.LastFiredAt, r.FireCount, r.CreatedAt, r.UpdatedAt,
	}
}

func ToTriggers(rows []*TriggerRow) ([]*trigger.Trigger, error) {
	out := make([]*trigger.Trigger, 0, len(rows))
	for _, row := range rows {
		t, err := row.ToTrigger()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

type ExecutionRow struct {
	ID        core.ID   `db:"id"`
	TriggerID core.ID   `db:"trigger_id"`
	Context   []byte    `db:"context"`
	RunID     *string   `db:"run_id"`
	Status    string    `db:"status"`
	Error     *string   `db:"error"`
	CreatedAt time.Time `db:"created_at"`
}

func NewExecutionRow(e *trigger.Execution) (*ExecutionRow, error) {
	ctx, err := ToJSONB(nonNilMap(e.Context))
	if err != nil {
		return nil, fmt.Errorf("encoding execution context: %w", err)
	}
	return &ExecutionRow{
		ID:        e.ID,
		TriggerID: e.TriggerID,
		Context:   ctx,
		RunID:     e.RunID,
		Status:    string(e.Status),
		Error:     e.Error,
		CreatedAt: e.CreatedAt,
	}, nil
}

// Values returns the row in ExecutionColumns order.
func (r *ExecutionRow) Values() []any {
	return []any{r.ID, r.TriggerID, r.Context, r.RunID, r.Status, r.Error, r.CreatedAt}
}

func (r *ExecutionRow) ToExecution() (*trigger.Execution, error) {
	ctx, err := fromJSONMap[trigger.EventContext](r.Context)
	if err != nil {
		return nil, fmt.Errorf("decoding execution context of %s: %w", r.ID, err)
	}
	return &trigger.Execution{
		ID:        r.ID,
		TriggerID: r.TriggerID,
		Context:   ctx,
		RunID:     r.RunID,
		Status:    trigger.ExecutionStatus(r.Status),
		Error:     r.Error,
		CreatedAt: r.CreatedAt.UTC(),
	}, nil
}

func ToExecutions(rows []*ExecutionRow) ([]*trigger.Execution, error) {
	out := make([]*trigger.Execution, 0, len(rows))
	for _, row := range rows {
		e, err := row.ToExecution()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// AuditValues returns a in AuditColumns order.
func AuditValues(a *job.ElementAudit) []any {
	return []any{
		a.ID, a.ExecutionID, a.DefinitionID, a.ExternalRunID, a.ElementID,
		a.ElementType, string(a.Outcome), a.StartedAt, a.DurationMS, a.CreatedAt,
	}
}

func nonNilMap[M ~map[K]V, K comparable, V any](m M) M {
	if m == nil {
		return make(M)
	}
	return m
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
