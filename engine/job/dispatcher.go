package job

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/pkg/logger"
)

const timeLayout = time.RFC3339

// Dispatcher routes jobs to the handler of their kind, reports the outcome to
// the orchestrator and records a per-element audit entry in the background.
type Dispatcher struct {
	reporter Reporter
	collab   Collaborators
	auditor  *Auditor
	metrics  *Metrics
	now      func() time.Time
	handlers map[Kind]handlerFunc
}

type Option func(*Dispatcher)

func WithAuditor(a *Auditor) Option {
	return func(d *Dispatcher) { d.auditor = a }
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(reporter Reporter, collab Collaborators, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reporter: reporter,
		collab:   collab,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	d.handlers = d.buildHandlers()
	return d
}

// Handle runs the job and reports its outcome. The returned error is only
// non-nil for unknown kinds or when the report itself could not be delivered.
func (d *Dispatcher) Handle(ctx context.Context, job *Job) (*Report, error) {
	handler, ok := d.handlers[job.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobKind, job.Kind)
	}
	log := logger.FromContext(ctx).With("job_kind", job.Kind, "job_key", job.Key, "run_id", job.RunID)
	started := d.now()
	result, err := d.run(ctx, handler, job)
	report := d.buildReport(job, result, err)
	if err != nil {
		log.Warn("Job side effect failed", "error", report.Error, "outcome", report.Outcome)
	} else if report.Outcome == OutcomeSkipped {
		log.Info("Job skipped", "reason", result["reason"])
	}
	reportErr := d.deliver(ctx, job, report)
	d.metrics.observe(job.Kind, report.Outcome)
	d.auditor.Record(ctx, job, report.Outcome, started, d.now().Sub(started))
	if reportErr != nil {
		return report, fmt.Errorf("reporting %s job %s: %w", job.Kind, job.Key, reportErr)
	}
	return report, nil
}

func (d *Dispatcher) run(ctx context.Context, handler handlerFunc, job *Job) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", job.Kind, r)
		}
	}()
	return handler(ctx, job)
}

func (d *Dispatcher) buildReport(job *Job, result map[string]any, err error) *Report {
	report := &Report{Kind: job.Kind}
	switch {
	case err == nil && isSkipped(result):
		report.Outcome = OutcomeSkipped
		report.Result = result
	case err == nil:
		report.Outcome = OutcomeCompleted
		report.Result = result
	case job.Kind.FailCapable():
		retries := max(job.Retries-1, 0)
		report.Outcome = OutcomeFailed
		report.Error = core.RedactError(err)
		report.Retries = &retries
	default:
		report.Outcome = OutcomeCompletedWithError
		report.Error = core.RedactError(err)
		report.Result = map[string]any{"applied": false, "error": report.Error}
	}
	return report
}

func (d *Dispatcher) deliver(ctx context.Context, job *Job, report *Report) error {
	if d.reporter == nil {
		return nil
	}
	if report.Outcome == OutcomeFailed {
		return d.reporter.Fail(ctx, job, report.Error, *report.Retries)
	}
	return d.reporter.Complete(ctx, job, report.Result)
}

// Wait blocks until every background audit write has finished.
func (d *Dispatcher) Wait() {
	d.auditor.Wait()
}
