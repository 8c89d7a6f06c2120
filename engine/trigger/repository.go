package trigger

import (
	"context"
	"time"

	"github.com/compozy/triggers/engine/core"
)

// Filter narrows trigger listings. Nil fields are not applied.
type Filter struct {
	WorkspaceID *string
	EventType   *EventType
	Active      *bool
	Limit       int
	Offset      int
}

// Repository persists triggers.
type Repository interface {
	Create(ctx context.Context, t *Trigger) error
	Get(ctx context.Context, id core.ID) (*Trigger, error)
	GetBySlug(ctx context.Context, workspaceID, slug string) (*Trigger, error)
	List(ctx context.Context, filter *Filter) ([]*Trigger, error)
	// ListActive returns active triggers of eventType. An empty workspaceID spans all workspaces.
	ListActive(ctx context.Context, eventType EventType, workspaceID string) ([]*Trigger, error)
	Update(ctx context.Context, t *Trigger) error
	SetActive(ctx context.Context, id core.ID, active bool) (*Trigger, error)
	Delete(ctx context.Context, id core.ID) error
	RecordFire(ctx context.Context, id core.ID, firedAt time.Time) error
}

// ExecutionRepository stores the append-only execution log.
type ExecutionRepository interface {
	Append(ctx context.Context, e *Execution) error
	ListByTrigger(ctx context.Context, triggerID core.ID, limit int) ([]*Execution, error)
	ResolveRun(ctx context.Context, externalRunID string) (*RunLink, error)
}

// ChangeListener is notified synchronously after every registry mutation.
type ChangeListener interface {
	OnTriggerChanged(ctx context.Context, t *Trigger)
	OnTriggerDeleted(ctx context.Context, id core.ID)
}
