package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
)

type CreateInput struct {
	WorkspaceID         string           `json:"workspace_id"          validate:"required,max=128"`
	Name                string           `json:"name"                  validate:"required,max=200"`
	Description         string           `json:"description"           validate:"max=2000"`
	ProcessDefinitionID string           `json:"process_definition_id" validate:"required"`
	EventType           EventType        `json:"event_type"            validate:"required"`
	Conditions          Conditions       `json:"conditions"`
	VariableMappings    VariableMappings `json:"variable_mappings"`
	WebhookSecret       string           `json:"webhook_secret"`
	Active              *bool            `json:"active"`
}

// UpdateInput replaces the fields that are set. Event type cannot change.
type UpdateInput struct {
	Name                *string          `json:"name"                  validate:"omitempty,max=200"`
	Description         *string          `json:"description"           validate:"omitempty,max=2000"`
	ProcessDefinitionID *string          `json:"process_definition_id" validate:"omitempty,min=1"`
	EventType           *EventType       `json:"event_type"`
	Conditions          Conditions       `json:"conditions"`
	VariableMappings    VariableMappings `json:"variable_mappings"`
	WebhookSecret       *string          `json:"webhook_secret"`
	Active              *bool            `json:"active"`
}

// Registry is the CRUD surface over triggers. Every mutation is followed by a
// synchronous notification to the registered listeners.
type Registry struct {
	repo      Repository
	validate  *validator.Validate
	now       func() time.Time
	mu        sync.RWMutex
	listeners []ChangeListener
}

func NewRegistry(repo Repository, listeners ...ChangeListener) *Registry {
	return &Registry{
		repo:      repo,
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
		listeners: listeners,
	}
}

func (r *Registry) AddListener(l ChangeListener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

func (r *Registry) Create(ctx context.Context, in *CreateInput) (*Trigger, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidTrigger)
	}
	if err := r.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTrigger, err)
	}
	if !in.EventType.IsValid() {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidTrigger, in.EventType)
	}
	id, err := core.NewID()
	if err != nil {
		return nil, err
	}
	now := r.now()
	t := &Trigger{
		ID:                  id,
		WorkspaceID:         in.WorkspaceID,
		Name:                in.Name,
		Description:         in.Description,
		ProcessDefinitionID: in.ProcessDefinitionID,
		EventType:           in.EventType,
		Conditions:          in.Conditions,
		VariableMappings:    in.VariableMappings,
		WebhookSecret:       in.WebhookSecret,
		Active:              in.Active == nil || *in.Active,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if t.Conditions == nil {
		t.Conditions = Conditions{}
	}
	if t.VariableMappings == nil {
		t.VariableMappings = VariableMappings{}
	}
	t.Slug, err = r.uniqueSlug(ctx, t)
	if err != nil {
		return nil, err
	}
	r.warnInertCron(ctx, t)
	if err := r.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating trigger: %w", err)
	}
	r.notifyChanged(ctx, t)
	return t, nil
}

func (r *Registry) Get(ctx context.Context, id core.ID) (*Trigger, error) {
	return r.repo.Get(ctx, id)
}

func (r *Registry) GetBySlug(ctx context.Context, workspaceID, s string) (*Trigger, error) {
	return r.repo.GetBySlug(ctx, workspaceID, s)
}

func (r *Registry) List(ctx context.Context, filter *Filter) ([]*Trigger, error) {
	return r.repo.List(ctx, filter)
}

func (r *Registry) Update(ctx context.Context, id core.ID, in *UpdateInput) (*Trigger, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidTrigger)
	}
	if err := r.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTrigger, err)
	}
	t, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.EventType != nil && *in.EventType != t.EventType {
		return nil, fmt.Errorf("%w: event type is immutable, delete and recreate the trigger", ErrInvalidTrigger)
	}
	applyUpdate(t, in)
	t.UpdatedAt = r.now()
	r.warnInertCron(ctx, t)
	if err := r.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("updating trigger: %w", err)
	}
	r.notifyChanged(ctx, t)
	return t, nil
}

func applyUpdate(t *Trigger, in *UpdateInput) {
	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.ProcessDefinitionID != nil {
		t.ProcessDefinitionID = *in.ProcessDefinitionID
	}
	if in.Conditions != nil {
		t.Conditions = in.Conditions
	}
	if in.VariableMappings != nil {
		t.VariableMappings = in.VariableMappings
	}
	if in.WebhookSecret != nil {
		t.WebhookSecret = *in.WebhookSecret
	}
	if in.Active != nil {
		t.Active = *in.Active
	}
}

// Toggle flips the active flag.
func (r *Registry) Toggle(ctx context.Context, id core.ID) (*Trigger, error) {
	current, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := r.repo.SetActive(ctx, id, !current.Active)
	if err != nil {
		return nil, fmt.Errorf("toggling trigger: %w", err)
	}
	r.notifyChanged(ctx, t)
	return t, nil
}

// Delete tears down any live timer before removing the record.
func (r *Registry) Delete(ctx context.Context, id core.ID) error {
	if _, err := r.repo.Get(ctx, id); err != nil {
		return err
	}
	r.notifyDeleted(ctx, id)
	if err := r.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting trigger: %w", err)
	}
	return nil
}

func (r *Registry) uniqueSlug(ctx context.Context, t *Trigger) (string, error) {
	base := slug.Make(t.Name)
	if base == "" {
		base = "trigger"
	}
	_, err := r.repo.GetBySlug(ctx, t.WorkspaceID, base)
	switch {
	case errors.Is(err, ErrTriggerNotFound):
		return base, nil
	case err != nil:
		return "", fmt.Errorf("checking slug: %w", err)
	}
	id := t.ID.String()
	return base + "-" + slug.Make(id[len(id)-6:]), nil
}

func (r *Registry) warnInertCron(ctx context.Context, t *Trigger) {
	if !t.IsCron() {
		return
	}
	if expr, _ := t.Schedule(); expr == "" {
		logger.FromContext(ctx).Warn("Cron trigger has no schedule and will stay inert", "trigger_id", t.ID)
	}
}

func (r *Registry) snapshotListeners() []ChangeListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ChangeListener(nil), r.listeners...)
}

func (r *Registry) notifyChanged(ctx context.Context, t *Trigger) {
	for _, l := range r.snapshotListeners() {
		l.OnTriggerChanged(ctx, t)
	}
}

func (r *Registry) notifyDeleted(ctx context.Context, id core.ID) {
	for _, l := range r.snapshotListeners() {
		l.OnTriggerDeleted(ctx, id)
	}
}
