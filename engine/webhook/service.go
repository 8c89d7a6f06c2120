package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/compozy/triggers/engine/trigger"
	"github.com/compozy/triggers/pkg/logger"
)

var (
	ErrNotFound        = errors.New("webhook not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrBadRequest      = errors.New("bad request")
	ErrDuplicate       = errors.New("duplicate delivery")
	ErrPayloadTooLarge = errors.New("payload too large")
)

const (
	CtxPayload = "payload"
	CtxHeaders = "headers"
)

// Result is the HTTP status and body produced by Process.
type Result struct {
	Status  int
	Payload map[string]any
}

// Lookup resolves a webhook trigger from its public route.
type Lookup interface {
	GetBySlug(ctx context.Context, workspaceID, slug string) (*trigger.Trigger, error)
}

// Firer evaluates and fires a single trigger.
type Firer interface {
	FireIfMatches(ctx context.Context, t *trigger.Trigger, eventCtx trigger.EventContext) (*trigger.Execution, bool)
}

type Config struct {
	MaxBody          int64
	IdempotencyField string
	IdempotencyTTL   time.Duration
	ForwardHeaders   []string
}

func DefaultConfig() Config {
	return Config{
		MaxBody:          DefaultMaxBody,
		IdempotencyField: DefaultIdempotencyField,
		IdempotencyTTL:   DefaultIdempotencyTTL,
		ForwardHeaders:   []string{"Content-Type", "User-Agent", "X-Request-Id"},
	}
}

type Processor struct {
	lookup  Lookup
	firer   Firer
	idem    Service
	cfg     Config
	metrics *Metrics
}

type ProcessorOption func(*Processor)

func WithConfig(cfg Config) ProcessorOption {
	return func(p *Processor) { p.cfg = cfg }
}

func WithMetrics(m *Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// NewProcessor builds the ingress pipeline. A nil idem disables deduplication.
func NewProcessor(lookup Lookup, firer Firer, idem Service, opts ...ProcessorOption) *Processor {
	p := &Processor{lookup: lookup, firer: firer, idem: idem, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg.IdempotencyTTL <= 0 {
		p.cfg.IdempotencyTTL = DefaultIdempotencyTTL
	}
	return p
}

// Process authenticates the delivery, deduplicates it and fires the trigger
// addressed by workspace and slug.
func (p *Processor) Process(ctx context.Context, workspace, slug string, r *http.Request) (Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With("workspace_id", workspace, "slug", slug)
	res, err := p.process(ctx, workspace, slug, r)
	p.metrics.observe(res.Status, time.Since(start))
	if err != nil {
		log.Debug("Webhook rejected", "status", res.Status, "error", err)
	}
	return res, err
}

func (p *Processor) process(ctx context.Context, workspace, slug string, r *http.Request) (Result, error) {
	body, err := ReadRaw(r.Body, p.cfg.MaxBody)
	if err != nil {
		return Result{Status: http.StatusBadRequest}, err
	}
	t, err := p.lookupTrigger(ctx, workspace, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{Status: http.StatusNotFound}, err
		}
		return Result{Status: http.StatusInternalServerError}, err
	}
	if err := Verify(r, body, t.WebhookSecret); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return Result{Status: http.StatusUnauthorized}, err
		}
		return Result{Status: http.StatusInternalServerError}, err
	}
	payload, err := ParseObject(body)
	if err != nil {
		return Result{Status: http.StatusBadRequest}, err
	}
	if err := p.checkIdempotency(ctx, t, r.Header, body); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Result{Status: http.StatusConflict}, err
		}
		return Result{Status: http.StatusInternalServerError}, err
	}
	eventCtx := p.buildContext(workspace, payload, r.Header)
	exec, matched := p.firer.FireIfMatches(ctx, t, eventCtx)
	out := map[string]any{"matched": matched, "execution_id": nil, "status": nil}
	if exec != nil {
		out["execution_id"] = exec.ID
		out["status"] = exec.Status
	}
	return Result{Status: http.StatusAccepted, Payload: out}, nil
}

func (p *Processor) lookupTrigger(ctx context.Context, workspace, slug string) (*trigger.Trigger, error) {
	t, err := p.lookup.GetBySlug(ctx, workspace, slug)
	if errors.Is(err, trigger.ErrTriggerNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading webhook trigger: %w", err)
	}
	if t.EventType != trigger.EventWebhookReceived || !t.Active {
		return nil, ErrNotFound
	}
	return t, nil
}

func (p *Processor) checkIdempotency(ctx context.Context, t *trigger.Trigger, h http.Header, body []byte) error {
	if p.idem == nil {
		return nil
	}
	key := DeriveKey(h, body, p.cfg.IdempotencyField)
	if key == "" {
		return nil
	}
	return p.idem.CheckAndSet(ctx, KeyWithNamespace(t.ID.String(), key), p.cfg.IdempotencyTTL)
}

// buildContext lays the payload fields down first so the reserved keys always
// carry the ingress values.
func (p *Processor) buildContext(workspace string, payload map[string]any, h http.Header) trigger.EventContext {
	eventCtx := make(trigger.EventContext, len(payload)+4)
	for k, v := range payload {
		eventCtx[k] = v
	}
	headers := make(map[string]any, len(p.cfg.ForwardHeaders))
	for _, name := range p.cfg.ForwardHeaders {
		if v := h.Get(name); v != "" {
			headers[strings.ToLower(name)] = v
		}
	}
	eventCtx[trigger.CtxWorkspaceID] = workspace
	eventCtx[trigger.CtxTriggerType] = string(trigger.EventWebhookReceived)
	eventCtx[CtxPayload] = payload
	eventCtx[CtxHeaders] = headers
	return eventCtx
}
