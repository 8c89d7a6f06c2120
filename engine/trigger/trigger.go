package trigger

import (
	"fmt"
	"time"

	"github.com/compozy/triggers/engine/core"
)

type EventType string

const (
	EventEntityCreated   EventType = "entity_created"
	EventStatusChanged   EventType = "status_changed"
	EventAssigneeChanged EventType = "assignee_changed"
	EventWebhookReceived EventType = "webhook_received"
	EventCronTick        EventType = "cron_tick"
	EventManual          EventType = "manual"
)

func (e EventType) String() string {
	return string(e)
}

func (e EventType) IsValid() bool {
	switch e {
	case EventEntityCreated, EventStatusChanged, EventAssigneeChanged,
		EventWebhookReceived, EventCronTick, EventManual:
		return true
	}
	return false
}

// Condition keys recognized by the evaluator and the scheduler.
const (
	CondFromStatus       = "fromStatus"
	CondToStatus         = "toStatus"
	CondPriority         = "priority"
	CondCategory         = "category"
	CondEntityTypes      = "entityTypes"
	CondOnlyWhenAssigned = "onlyWhenAssigned"
	CondCustomExpression = "customExpression"
	CondSchedule         = "schedule"
	CondTimezone         = "timezone"
)

// Context keys read from event contexts.
const (
	CtxEntityID      = "entityId"
	CtxWorkspaceID   = "workspaceId"
	CtxUserID        = "userId"
	CtxCreatedByID   = "createdById"
	CtxTriggerType   = "triggerType"
	CtxTriggeredBy   = "triggeredBy"
	CtxOldStatus     = "oldStatus"
	CtxNewStatus     = "newStatus"
	CtxEntityType    = "entityType"
	CtxNewAssigneeID = "newAssigneeId"
	CtxPriority      = "priority"
	CtxCategory      = "category"
)

type Conditions map[string]any

type VariableMappings map[string]string

// EventContext is the semi-structured payload an event carries into evaluation.
type EventContext map[string]any

// String returns the value at key when it is a non-empty string.
func (c EventContext) String(key string) string {
	if c == nil {
		return ""
	}
	switch v := c[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Actor returns the acting user id, preferring userId over createdById.
func (c EventContext) Actor() string {
	if v := c.String(CtxUserID); v != "" {
		return v
	}
	return c.String(CtxCreatedByID)
}

type Trigger struct {
	ID                  core.ID          `json:"id"`
	WorkspaceID         string           `json:"workspace_id"`
	Name                string           `json:"name"`
	Description         string           `json:"description"`
	Slug                string           `json:"slug"`
	ProcessDefinitionID string           `json:"process_definition_id"`
	EventType           EventType        `json:"event_type"`
	Conditions          Conditions       `json:"conditions"`
	VariableMappings    VariableMappings `json:"variable_mappings"`
	WebhookSecret       string           `json:"-"`
	Active              bool             `json:"active"`
	LastFiredAt         *time.Time       `json:"last_fired_at"`
	FireCount           int64            `json:"fire_count"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (t *Trigger) IsCron() bool {
	return t != nil && t.EventType == EventCronTick
}

// Schedule returns the cron expression and timezone stored in the conditions.
func (t *Trigger) Schedule() (expr string, tz string) {
	if t == nil || t.Conditions == nil {
		return "", ""
	}
	expr, _ = t.Conditions[CondSchedule].(string)
	tz, _ = t.Conditions[CondTimezone].(string)
	return expr, tz
}

type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// Execution is the append-only audit row of a single firing attempt.
type Execution struct {
	ID        core.ID         `json:"id"`
	TriggerID core.ID         `json:"trigger_id"`
	Context   EventContext    `json:"context"`
	RunID     *string         `json:"run_id"`
	Status    ExecutionStatus `json:"status"`
	Error     *string         `json:"error"`
	CreatedAt time.Time       `json:"created_at"`
}

// RunLink ties an orchestrator run id to the execution and definition that started it.
type RunLink struct {
	ExternalRunID string  `db:"run_id"`
	ExecutionID   core.ID `db:"execution_id"`
	DefinitionID  string  `db:"definition_id"`
}
