package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultInterval = 60 * time.Second
	// SystemActor is the triggeredBy value of every cron firing.
	SystemActor = "system:cron"
)

// Source is the subset of the trigger registry the scheduler reads.
type Source interface {
	Get(ctx context.Context, id core.ID) (*trigger.Trigger, error)
	ListActive(ctx context.Context, eventType trigger.EventType, workspaceID string) ([]*trigger.Trigger, error)
}

// Firer runs the firing pipeline for one trigger.
type Firer interface {
	Fire(ctx context.Context, t *trigger.Trigger, eventCtx trigger.EventContext) *trigger.Execution
}

type timer struct {
	entryID  cron.EntryID
	expr     string
	timezone string
}

func (t *timer) matches(tr *trigger.Trigger) bool {
	expr, tz := tr.Schedule()
	return t.expr == expr && t.timezone == tz
}

// Scheduler keeps one cron timer per active cron trigger and reconciles the
// live set against the registry on startup, on change notifications and
// periodically.
type Scheduler struct {
	source   Source
	firer    Firer
	cron     *cron.Cron
	interval time.Duration
	metrics  *Metrics
	now      func() time.Time

	retryBase time.Duration
	retryMax  uint64

	mu       sync.Mutex
	timers   map[core.ID]*timer
	rejected map[core.ID]string
	baseCtx  context.Context

	reconcileMu    sync.Mutex
	periodicCancel context.CancelFunc
	periodicWG     sync.WaitGroup
}

var _ trigger.ChangeListener = (*Scheduler)(nil)

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithListRetry sets the backoff used when listing triggers during reconciliation.
func WithListRetry(base time.Duration, maxRetries uint64) Option {
	return func(s *Scheduler) {
		s.retryBase = base
		s.retryMax = maxRetries
	}
}

func NewScheduler(source Source, firer Firer, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:    source,
		firer:     firer,
		interval:  DefaultInterval,
		now:       func() time.Time { return time.Now().UTC() },
		retryBase: 200 * time.Millisecond,
		retryMax:  3,
		timers:    make(map[core.ID]*timer),
		rejected:  make(map[core.ID]string),
		baseCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(&cronLogger{log: logger.GetDefault()})),
		cron.WithLogger(&cronLogger{log: logger.GetDefault()}),
	)
	return s
}

// Start registers every active cron trigger, starts the timers and the
// periodic reconciliation loop. A failed initial listing is logged and left
// to the next periodic pass.
func (s *Scheduler) Start(ctx context.Context) error {
	log := logger.FromContext(ctx)
	s.mu.Lock()
	s.baseCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()
	if err := s.Reconcile(ctx); err != nil {
		log.Error("Initial schedule reconciliation failed", "error", err)
	}
	s.cron.Start()
	if s.interval > 0 {
		if err := s.StartPeriodicReconciliation(ctx, s.interval); err != nil {
			return err
		}
	}
	log.Info("Trigger scheduler started", "registered", len(s.Registered()), "interval", s.interval)
	return nil
}

// Stop ends periodic reconciliation and waits for running timer jobs.
func (s *Scheduler) Stop(ctx context.Context) {
	s.StopPeriodicReconciliation()
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		logger.FromContext(ctx).Warn("Timed out waiting for running cron jobs")
	}
}

// OnTriggerChanged tears down any existing timer and recreates it when the
// trigger is an active cron trigger.
func (s *Scheduler) OnTriggerChanged(ctx context.Context, t *trigger.Trigger) {
	if t == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rejected, t.ID)
	s.unregisterLocked(ctx, t.ID)
	if t.Active && t.IsCron() {
		s.registerLocked(ctx, t)
	}
	s.metrics.setRegistered(len(s.timers))
}

func (s *Scheduler) OnTriggerDeleted(ctx context.Context, id core.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rejected, id)
	s.unregisterLocked(ctx, id)
	s.metrics.setRegistered(len(s.timers))
}

// Reconcile converges the live timers on the set of active cron triggers.
// Registering an already registered trigger or unregistering an absent one is a no-op.
func (s *Scheduler) Reconcile(ctx context.Context) (err error) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()
	defer func() { s.metrics.observeReconcile(err) }()
	log := logger.FromContext(ctx)
	startTime := time.Now()
	desired, err := s.listDesired(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	toCreate, toDelete := s.planLocked(desired)
	for _, id := range toDelete {
		s.unregisterLocked(ctx, id)
	}
	for _, t := range toCreate {
		s.unregisterLocked(ctx, t.ID)
		s.registerLocked(ctx, t)
	}
	s.metrics.setRegistered(len(s.timers))
	if len(toCreate) > 0 || len(toDelete) > 0 {
		log.Info("Schedule reconciliation completed",
			"duration", time.Since(startTime),
			"created", len(toCreate),
			"deleted", len(toDelete),
			"registered", len(s.timers),
		)
	}
	return nil
}

func (s *Scheduler) listDesired(ctx context.Context) (map[core.ID]*trigger.Trigger, error) {
	var triggers []*trigger.Trigger
	backoff := retry.WithMaxRetries(s.retryMax, retry.NewExponential(s.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		triggers, err = s.source.ListActive(ctx, trigger.EventCronTick, "")
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing cron triggers: %w", err)
	}
	desired := make(map[core.ID]*trigger.Trigger, len(triggers))
	for _, t := range triggers {
		if t.Active && t.IsCron() {
			desired[t.ID] = t
		}
	}
	return desired, nil
}

func (s *Scheduler) planLocked(desired map[core.ID]*trigger.Trigger) ([]*trigger.Trigger, []core.ID) {
	toCreate := make([]*trigger.Trigger, 0)
	toDelete := make([]core.ID, 0)
	for id, t := range desired {
		if existing, ok := s.timers[id]; ok && existing.matches(t) {
			continue
		}
		if key, ok := s.rejected[id]; ok && key == scheduleKey(t) {
			continue
		}
		toCreate = append(toCreate, t)
	}
	for id := range s.timers {
		if _, ok := desired[id]; !ok {
			toDelete = append(toDelete, id)
		}
	}
	for id := range s.rejected {
		if _, ok := desired[id]; !ok {
			delete(s.rejected, id)
		}
	}
	sort.Slice(toCreate, func(i, j int) bool { return toCreate[i].ID < toCreate[j].ID })
	return toCreate, toDelete
}

func (s *Scheduler) registerLocked(ctx context.Context, t *trigger.Trigger) {
	expr, tz := t.Schedule()
	sched, err := ParseSchedule(expr, tz)
	if err != nil {
		s.rejected[t.ID] = scheduleKey(t)
		logger.FromContext(ctx).Warn("Cron trigger left unscheduled",
			"trigger_id", t.ID,
			"schedule", expr,
			"timezone", tz,
			"error", err,
		)
		return
	}
	id := t.ID
	entryID := s.cron.Schedule(sched, cron.FuncJob(func() { s.tick(id, expr) }))
	s.timers[id] = &timer{entryID: entryID, expr: expr, timezone: tz}
	logger.FromContext(ctx).Debug("Cron trigger registered", "trigger_id", id, "schedule", expr, "timezone", tz)
}

func (s *Scheduler) unregisterLocked(ctx context.Context, id core.ID) {
	existing, ok := s.timers[id]
	if !ok {
		return
	}
	s.cron.Remove(existing.entryID)
	delete(s.timers, id)
	logger.FromContext(ctx).Debug("Cron trigger unregistered", "trigger_id", id)
}

func scheduleKey(t *trigger.Trigger) string {
	expr, tz := t.Schedule()
	return expr + "\x00" + tz
}

// tick is the timer callback. The trigger is reloaded so that deactivations
// that bypassed notifications are honored.
func (s *Scheduler) tick(id core.ID, expr string) {
	s.metrics.observeTick()
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	log := logger.FromContext(ctx).With("trigger_id", id)
	t, err := s.source.Get(ctx, id)
	if errors.Is(err, trigger.ErrTriggerNotFound) {
		s.OnTriggerDeleted(ctx, id)
		return
	}
	if err != nil {
		log.Error("Failed to reload cron trigger", "error", err)
		return
	}
	if !t.Active || !t.IsCron() {
		s.OnTriggerDeleted(ctx, id)
		return
	}
	eventCtx := trigger.EventContext{
		"cronExpression":       expr,
		"firedAt":              s.now().Format(time.RFC3339),
		trigger.CtxWorkspaceID: t.WorkspaceID,
		trigger.CtxTriggeredBy: SystemActor,
		trigger.CtxTriggerType: string(trigger.EventCronTick),
		"triggerId":            id.String(),
	}
	s.firer.Fire(ctx, t, eventCtx)
}

// Registered returns the ids with a live timer.
func (s *Scheduler) Registered() []core.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]core.ID, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StartPeriodicReconciliation starts a background goroutine for periodic reconciliation
func (s *Scheduler) StartPeriodicReconciliation(ctx context.Context, interval time.Duration) error {
	log := logger.FromContext(ctx)
	if interval <= 0 {
		return fmt.Errorf("periodic reconciliation interval must be positive, got %v", interval)
	}
	s.StopPeriodicReconciliation()
	periodicCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.periodicCancel = cancel
	s.mu.Unlock()
	s.periodicWG.Add(1)
	go func() {
		defer s.periodicWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Info("Started periodic schedule reconciliation", "interval", interval)
		for {
			select {
			case <-periodicCtx.Done():
				log.Info("Stopping periodic schedule reconciliation")
				return
			case <-ticker.C:
				if err := s.Reconcile(periodicCtx); err != nil {
					log.Error("Periodic reconciliation failed", "error", err)
				}
			}
		}
	}()
	return nil
}

// StopPeriodicReconciliation stops the periodic reconciliation goroutine
func (s *Scheduler) StopPeriodicReconciliation() {
	s.mu.Lock()
	if s.periodicCancel != nil {
		s.periodicCancel()
		s.periodicCancel = nil
	}
	s.mu.Unlock()
	s.periodicWG.Wait()
}
