package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/compozy/triggers/pkg/logger"
)

// Auditor writes per-element audit rows off the request path. Every failure
// is logged and dropped.
type Auditor struct {
	links *LinkCache
	store AuditStore
	now   func() time.Time
	wg    sync.WaitGroup
}

func NewAuditor(links *LinkCache, store AuditStore) *Auditor {
	return &Auditor{links: links, store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Record schedules the audit write for job. Jobs without an element id or run
// id are not audited.
func (a *Auditor) Record(ctx context.Context, job *Job, outcome Outcome, startedAt time.Time, took time.Duration) {
	if a == nil || a.store == nil || a.links == nil {
		return
	}
	if job.ElementID == "" || job.RunID == "" {
		return
	}
	bgCtx := context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(bgCtx).Error("Element audit panicked", "run_id", job.RunID, "panic", r)
			}
		}()
		a.write(bgCtx, job, outcome, startedAt, took)
	}()
}

func (a *Auditor) write(ctx context.Context, job *Job, outcome Outcome, startedAt time.Time, took time.Duration) {
	log := logger.FromContext(ctx).With("run_id", job.RunID, "element_id", job.ElementID)
	link, err := a.links.Resolve(ctx, job.RunID)
	if errors.Is(err, trigger.ErrRunNotFound) {
		log.Debug("Run not started by a trigger, skipping element audit")
		return
	}
	if err != nil {
		log.Warn("Failed to resolve run for element audit", "error", err)
		return
	}
	id, err := core.NewID()
	if err != nil {
		log.Warn("Failed to generate element audit id", "error", err)
		return
	}
	entry := &ElementAudit{
		ID:            id,
		ExecutionID:   link.ExecutionID,
		DefinitionID:  link.DefinitionID,
		ExternalRunID: job.RunID,
		ElementID:     job.ElementID,
		ElementType:   job.Kind.String(),
		Outcome:       outcome,
		StartedAt:     startedAt,
		DurationMS:    took.Milliseconds(),
		CreatedAt:     a.now(),
	}
	if err := a.store.AppendElementAudit(ctx, entry); err != nil {
		log.Warn("Failed to write element audit", "error", err)
	}
}

// Wait blocks until in-flight audit writes finish.
func (a *Auditor) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}
