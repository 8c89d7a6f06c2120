// Package job executes the side effects an orchestrator hands out as jobs and
// reports the outcome back to it.
package job

import (
	"context"
	"errors"
	"time"

	"github.com/compozy/triggers/engine/core"
)

var ErrUnknownJobKind = errors.New("unknown job kind")

type Kind string

const (
	KindUpdateStatus     Kind = "update_status"
	KindUpdateAssignee   Kind = "update_assignee"
	KindSendNotification Kind = "send_notification"
	KindSendEmail        Kind = "send_email"
	KindLogActivity      Kind = "log_activity"
	KindClassifyEntity   Kind = "classify_entity"
	KindMarkCompleted    Kind = "mark_completed"
)

func (k Kind) String() string {
	return string(k)
}

// FailCapable reports whether failures of this kind are surfaced to the
// orchestrator's retry mechanism. Every other kind is best-effort.
func (k Kind) FailCapable() bool {
	return k == KindUpdateStatus || k == KindUpdateAssignee
}

// Kinds lists every kind the dispatcher handles.
func Kinds() []Kind {
	return []Kind{
		KindUpdateStatus,
		KindUpdateAssignee,
		KindSendNotification,
		KindSendEmail,
		KindLogActivity,
		KindClassifyEntity,
		KindMarkCompleted,
	}
}

// Job is one unit of work handed out by the orchestrator.
type Job struct {
	Key       string         `json:"key"`
	Kind      Kind           `json:"kind"`
	RunID     string         `json:"run_id"`
	ElementID string         `json:"element_id"`
	Retries   int            `json:"retries"`
	Variables map[string]any `json:"variables"`
}

// Reporter delivers job outcomes back to the orchestrator.
type Reporter interface {
	Complete(ctx context.Context, job *Job, result map[string]any) error
	Fail(ctx context.Context, job *Job, message string, retries int) error
}

type Outcome string

const (
	OutcomeCompleted          Outcome = "completed"
	OutcomeCompletedWithError Outcome = "completed_with_error"
	OutcomeSkipped            Outcome = "skipped"
	OutcomeFailed             Outcome = "failed"
)

// Report is what the dispatcher told the orchestrator.
type Report struct {
	Kind    Kind           `json:"kind"`
	Outcome Outcome        `json:"outcome"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
	Retries *int           `json:"retries,omitempty"`
}

// ElementAudit is the per-element audit row written after each job.
type ElementAudit struct {
	ID            core.ID   `json:"id"`
	ExecutionID   core.ID   `json:"execution_id"`
	DefinitionID  string    `json:"definition_id"`
	ExternalRunID string    `json:"external_run_id"`
	ElementID     string    `json:"element_id"`
	ElementType   string    `json:"element_type"`
	Outcome       Outcome   `json:"outcome"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

type AuditStore interface {
	AppendElementAudit(ctx context.Context, audit *ElementAudit) error
}
