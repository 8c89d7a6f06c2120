package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultExecutionsLimit = 50
	MaxExecutionsLimit     = 500
)

// EvaluationResult summarizes one EvaluateTriggers call.
type EvaluationResult struct {
	Evaluated  int          `json:"evaluated"`
	Matched    int          `json:"matched"`
	Fired      int          `json:"fired"`
	Failed     int          `json:"failed"`
	Executions []*Execution `json:"executions"`
}

// Service is the trigger firing pipeline.
type Service struct {
	repo         Repository
	executions   ExecutionRepository
	orchestrator Orchestrator
	metrics      *Metrics
	now          func() time.Time
	retryBase    time.Duration
	retryMax     uint64
}

type Option func(*Service)

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithWriteRetry sets the backoff used for execution writes.
func WithWriteRetry(base time.Duration, maxRetries uint64) Option {
	return func(s *Service) {
		s.retryBase = base
		s.retryMax = maxRetries
	}
}

func NewService(repo Repository, executions ExecutionRepository, orchestrator Orchestrator, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		executions:   executions,
		orchestrator: orchestrator,
		now:          func() time.Time { return time.Now().UTC() },
		retryBase:    100 * time.Millisecond,
		retryMax:     2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EvaluateTriggers loads the active triggers for eventType in workspaceID and fires
// every one whose conditions match. A failing trigger never stops its siblings; only
// a failure to load the candidate set is returned.
func (s *Service) EvaluateTriggers(
	ctx context.Context,
	eventType EventType,
	eventCtx EventContext,
	workspaceID string,
) (*EvaluationResult, error) {
	log := logger.FromContext(ctx).With("event_type", eventType, "workspace_id", workspaceID)
	triggers, err := s.repo.ListActive(ctx, eventType, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("loading active triggers: %w", err)
	}
	result := &EvaluationResult{Executions: make([]*Execution, 0)}
	for _, t := range triggers {
		result.Evaluated++
		s.evaluateOne(ctx, t, eventCtx, result)
	}
	log.Debug("Evaluated triggers",
		"evaluated", result.Evaluated,
		"matched", result.Matched,
		"fired", result.Fired,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *Service) evaluateOne(ctx context.Context, t *Trigger, eventCtx EventContext, result *EvaluationResult) {
	defer func() {
		if r := recover(); r != nil {
			result.Failed++
			logger.FromContext(ctx).Error("Trigger evaluation panicked", "trigger_id", t.ID, "panic", r)
		}
	}()
	exec, matched := s.FireIfMatches(ctx, t, eventCtx)
	if !matched {
		return
	}
	result.Matched++
	result.Executions = append(result.Executions, exec)
	if exec.Status == ExecutionSuccess {
		result.Fired++
	} else {
		result.Failed++
	}
}

// FireIfMatches evaluates t against eventCtx and fires it on a match.
func (s *Service) FireIfMatches(ctx context.Context, t *Trigger, eventCtx EventContext) (*Execution, bool) {
	s.metrics.observeEvaluated()
	if !s.safeMatches(ctx, t, eventCtx) {
		return nil, false
	}
	return s.Fire(ctx, t, eventCtx), true
}

func (s *Service) safeMatches(ctx context.Context, t *Trigger, eventCtx EventContext) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("Condition evaluation panicked", "trigger_id", t.ID, "panic", r)
			matched = false
		}
	}()
	return Matches(t.Conditions, eventCtx)
}

// Fire starts a process run for t and records exactly one execution row. It never
// returns an error: failures are captured in the returned execution.
func (s *Service) Fire(ctx context.Context, t *Trigger, eventCtx EventContext) *Execution {
	log := logger.FromContext(ctx).With("trigger_id", t.ID, "definition_id", t.ProcessDefinitionID)
	exec := &Execution{
		ID:        core.MustNewID(),
		TriggerID: t.ID,
		Context:   core.CloneMap(eventCtx),
		CreatedAt: s.now(),
	}
	handle, err := s.start(ctx, t, eventCtx)
	if err != nil {
		msg := core.RedactError(err)
		exec.Status = ExecutionFailed
		exec.Error = &msg
		log.Warn("Trigger firing failed", "error", msg)
	} else {
		runID := handle.RunID
		exec.Status = ExecutionSuccess
		exec.RunID = &runID
		log.Info("Trigger fired", "run_id", runID)
	}
	writeCtx := context.WithoutCancel(ctx)
	s.appendExecution(writeCtx, exec)
	if exec.Status == ExecutionSuccess {
		if err := s.repo.RecordFire(writeCtx, t.ID, exec.CreatedAt); err != nil {
			log.Warn("Failed to record fire statistics", "error", err)
		}
	}
	s.metrics.observeFired(exec.Status)
	return exec
}

// FireByID loads the trigger and fires it without evaluating conditions.
func (s *Service) FireByID(ctx context.Context, id core.ID, eventCtx EventContext) (*Execution, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, fmt.Errorf("%w: trigger %s is inactive", ErrInvalidTrigger, id)
	}
	return s.Fire(ctx, t, eventCtx), nil
}

// GetExecutions returns the newest executions of a trigger.
func (s *Service) GetExecutions(ctx context.Context, triggerID core.ID, limit int) ([]*Execution, error) {
	if limit <= 0 {
		limit = DefaultExecutionsLimit
	}
	if limit > MaxExecutionsLimit {
		limit = MaxExecutionsLimit
	}
	return s.executions.ListByTrigger(ctx, triggerID, limit)
}

func (s *Service) start(ctx context.Context, t *Trigger, eventCtx EventContext) (_ *RunHandle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while firing trigger: %v", r)
		}
	}()
	deployable, err := s.orchestrator.IsDeployable(ctx, t.ProcessDefinitionID)
	if err != nil {
		return nil, fmt.Errorf("validating process definition: %w", err)
	}
	if !deployable {
		return nil, fmt.Errorf("%w: %s", ErrNotDeployable, t.ProcessDefinitionID)
	}
	vars := MapVariables(t.VariableMappings, eventCtx)
	opts := StartOptions{
		EntityID:    eventCtx.String(CtxEntityID),
		StartedByID: eventCtx.Actor(),
	}
	opts.BusinessKey = opts.EntityID
	if opts.BusinessKey == "" {
		opts.BusinessKey = uuid.NewString()
	}
	handle, err := s.orchestrator.StartProcess(ctx, t.ProcessDefinitionID, vars, opts)
	if err != nil {
		return nil, fmt.Errorf("starting process: %w", err)
	}
	if handle == nil || handle.RunID == "" {
		return nil, errors.New("orchestrator returned no run id")
	}
	return handle, nil
}

func (s *Service) appendExecution(ctx context.Context, exec *Execution) {
	backoff := retry.WithMaxRetries(s.retryMax, retry.NewExponential(s.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.executions.Append(ctx, exec); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Error("Failed to record execution",
			"execution_id", exec.ID,
			"trigger_id", exec.TriggerID,
			"error", err,
		)
	}
}
