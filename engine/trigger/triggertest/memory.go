package triggertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/trigger"
)

// MemoryRepository is an in-process trigger.Repository for tests.
type MemoryRepository struct {
	mu       sync.Mutex
	triggers map[core.ID]*trigger.Trigger
	// ListErr, when set, is returned by List and ListActive.
	ListErr error
	Lists   int
}

func NewMemoryRepository(ts ...*trigger.Trigger) *MemoryRepository {
	r := &MemoryRepository{triggers: make(map[core.ID]*trigger.Trigger)}
	for _, t := range ts {
		r.Put(t)
	}
	return r
}

// Put stores a copy of t without notifying anyone, like an external edit.
func (r *MemoryRepository) Put(t *trigger.Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.triggers[t.ID] = &cp
}

func (r *MemoryRepository) Remove(id core.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.triggers, id)
}

func (r *MemoryRepository) Create(_ context.Context, t *trigger.Trigger) error {
	r.Put(t)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id core.ID) (*trigger.Trigger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.triggers[id]
	if !ok {
		return nil, trigger.ErrTriggerNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) GetBySlug(_ context.Context, workspaceID, slug string) (*trigger.Trigger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.triggers {
		if t.WorkspaceID == workspaceID && t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, trigger.ErrTriggerNotFound
}

func (r *MemoryRepository) List(_ context.Context, filter *trigger.Filter) ([]*trigger.Trigger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lists++
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]*trigger.Trigger, 0, len(r.triggers))
	for _, t := range r.triggers {
		if filter != nil {
			if filter.WorkspaceID != nil && t.WorkspaceID != *filter.WorkspaceID {
				continue
			}
			if filter.EventType != nil && t.EventType != *filter.EventType {
				continue
			}
			if filter.Active != nil && t.Active != *filter.Active {
				continue
			}
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) ListActive(
	ctx context.Context,
	eventType trigger.EventType,
	workspaceID string,
) ([]*trigger.Trigger, error) {
	active := true
	filter := &trigger.Filter{EventType: &eventType, Active: &active}
	if workspaceID != "" {
		filter.WorkspaceID = &workspaceID
	}
	return r.List(ctx, filter)
}

func (r *MemoryRepository) Update(_ context.Context, t *trigger.Trigger) error {
	if _, err := r.Get(context.Background(), t.ID); err != nil {
		return err
	}
	r.Put(t)
	return nil
}

func (r *MemoryRepository) SetActive(_ context.Context, id core.ID, active bool) (*trigger.Trigger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.triggers[id]
	if !ok {
		return nil, trigger.ErrTriggerNotFound
	}
	t.Active = active
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id core.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.triggers[id]; !ok {
		return trigger.ErrTriggerNotFound
	}
	delete(r.triggers, id)
	return nil
}

func (r *MemoryRepository) RecordFire(_ context.Context, id core.ID, firedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.triggers[id]
	if !ok {
		return trigger.ErrTriggerNotFound
	}
	t.FireCount++
	t.LastFiredAt = &firedAt
	return nil
}
