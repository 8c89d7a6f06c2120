// Package orchestrator is the HTTP client for the external process engine. It
// starts and cancels process runs and reports job outcomes back.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/compozy/triggers/engine/job"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/go-resty/resty/v2"
	"github.com/slok/goresilience"
	"github.com/slok/goresilience/circuitbreaker"
	rerrors "github.com/slok/goresilience/errors"
	"github.com/slok/goresilience/retry"
	"github.com/slok/goresilience/timeout"
)

var (
	// ErrUnavailable is returned while the circuit breaker is open or a call timed out.
	ErrUnavailable = errors.New("orchestrator unavailable")
	ErrNotFound    = errors.New("orchestrator resource not found")
)

// Client implements trigger.Orchestrator and job.Reporter over HTTP.
type Client struct {
	http *resty.Client
	// reads may be retried; writes are not idempotent and run once.
	reads  goresilience.Runner
	writes goresilience.Runner
}

var (
	_ trigger.Orchestrator = (*Client)(nil)
	_ job.Reporter         = (*Client)(nil)
)

func NewClient(cfg *Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return nil, err
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}
	breaker := circuitbreaker.NewMiddleware(circuitbreaker.Config{
		ErrorPercentThresholdToOpen:        cfg.ErrorPercentThresholdToOpen,
		MinimumRequestToOpen:               cfg.MinimumRequestToOpen,
		SuccessfulRequiredOnHalfOpen:       1,
		WaitDurationInOpenState:            cfg.WaitDurationInOpenState,
		MetricsSlidingWindowBucketQuantity: 10,
		MetricsBucketDuration:              time.Second,
	})
	deadline := timeout.NewMiddleware(timeout.Config{Timeout: cfg.Timeout})
	return &Client{
		http: httpClient,
		reads: goresilience.RunnerChain(
			deadline,
			breaker,
			retry.NewMiddleware(retry.Config{Times: cfg.RetryTimes, WaitBase: cfg.RetryWaitBase}),
		),
		writes: goresilience.RunnerChain(deadline, breaker),
	}, nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("orchestrator base URL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid orchestrator base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("orchestrator base URL scheme must be http or https, got: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("orchestrator base URL must have a host, got: %s", raw)
	}
	return nil
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type definitionState struct {
	ID         string `json:"id"`
	Deployable bool   `json:"deployable"`
}

// IsDeployable reports whether the definition exists and is ready to start.
// An unknown definition is not deployable.
func (c *Client) IsDeployable(ctx context.Context, definitionID string) (bool, error) {
	var out envelope[definitionState]
	err := c.call(ctx, c.reads, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParam("id", definitionID).
			SetResult(&out).
			Get("/definitions/{id}")
	})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Data.Deployable, nil
}

type startRequest struct {
	DefinitionID string         `json:"definition_id"`
	Variables    map[string]any `json:"variables"`
	trigger.StartOptions
}

func (c *Client) StartProcess(
	ctx context.Context,
	definitionID string,
	vars map[string]any,
	opts trigger.StartOptions,
) (*trigger.RunHandle, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	var out envelope[trigger.RunHandle]
	err := c.call(ctx, c.writes, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetBody(startRequest{DefinitionID: definitionID, Variables: vars, StartOptions: opts}).
			SetResult(&out).
			Post("/process-instances")
	})
	if err != nil {
		return nil, err
	}
	if out.Data.DefinitionID == "" {
		out.Data.DefinitionID = definitionID
	}
	logger.FromContext(ctx).Debug("Process run started", "definition_id", definitionID, "run_id", out.Data.RunID)
	return &out.Data, nil
}

func (c *Client) Cancel(ctx context.Context, runID string) error {
	return c.call(ctx, c.writes, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParam("id", runID).
			Post("/process-instances/{id}/cancel")
	})
}

// Complete reports a finished job with its result variables.
func (c *Client) Complete(ctx context.Context, j *job.Job, result map[string]any) error {
	if result == nil {
		result = map[string]any{}
	}
	return c.call(ctx, c.writes, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParam("key", j.Key).
			SetBody(map[string]any{"variables": result}).
			Post("/jobs/{key}/complete")
	})
}

// Fail reports a failed job with the remaining retry budget.
func (c *Client) Fail(ctx context.Context, j *job.Job, message string, retries int) error {
	return c.call(ctx, c.writes, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParam("key", j.Key).
			SetBody(map[string]any{"error_message": message, "retries": retries}).
			Post("/jobs/{key}/fail")
	})
}

// call runs req under runner. Server errors count against the breaker; 4xx
// responses do not.
func (c *Client) call(
	ctx context.Context,
	runner goresilience.Runner,
	req func(ctx context.Context) (*resty.Response, error),
) error {
	var clientErr error
	err := runner.Run(ctx, func(ctx context.Context) error {
		resp, err := req(ctx)
		if err != nil {
			return err
		}
		status := resp.StatusCode()
		switch {
		case status == http.StatusNotFound:
			clientErr = ErrNotFound
		case status >= http.StatusInternalServerError:
			return fmt.Errorf("orchestrator returned status %d: %s", status, truncate(resp.String()))
		case status >= http.StatusBadRequest:
			clientErr = fmt.Errorf("orchestrator rejected request with status %d: %s", status, truncate(resp.String()))
		}
		return nil
	})
	switch {
	case errors.Is(err, rerrors.ErrCircuitOpen), errors.Is(err, rerrors.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	case err != nil:
		return err
	}
	return clientErr
}

func truncate(s string) string {
	const limit = 256
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
