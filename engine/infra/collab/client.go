// Package collab provides HTTP clients for the side-effect collaborators used
// by job handlers.
package collab

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/compozy/triggers/engine/job"
	"github.com/go-resty/resty/v2"
)

// New builds the collaborator set. Collaborators without a URL stay nil.
func New(cfg *Config) job.Collaborators {
	var out job.Collaborators
	if cfg == nil {
		return out
	}
	if cfg.EntitiesURL != "" {
		out.Entities = &EntityClient{http: newHTTPClient(cfg, cfg.EntitiesURL)}
	}
	if cfg.NotifierURL != "" {
		out.Notifier = &NotifierClient{http: newHTTPClient(cfg, cfg.NotifierURL)}
	}
	if cfg.AuditURL != "" {
		out.Audit = &AuditClient{http: newHTTPClient(cfg, cfg.AuditURL)}
	}
	if cfg.ClassifierURL != "" {
		out.Classifier = &ClassifierClient{http: newHTTPClient(cfg, cfg.ClassifierURL)}
	}
	return out
}

func newHTTPClient(cfg *Config, baseURL string) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(max(cfg.RetryCount, 0)).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	client.AddRetryCondition(retryCondition)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return client
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

type envelope[T any] struct {
	Data T `json:"data"`
}

func checkResponse(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > 256 {
			body = body[:256] + "..."
		}
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), body)
	}
	return nil
}

// EntityClient reaches the business entity store.
type EntityClient struct {
	http *resty.Client
}

func (c *EntityClient) UpdateStatus(ctx context.Context, entityID, status string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", entityID).
		SetBody(map[string]any{"status": status}).
		Patch("/entities/{id}/status")
	return checkResponse(resp, err, "updating entity status")
}

// UpdateAssignee sets or clears the assignee. A nil assigneeID unassigns.
func (c *EntityClient) UpdateAssignee(ctx context.Context, entityID string, assigneeID *string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", entityID).
		SetBody(map[string]any{"assignee_id": assigneeID}).
		Patch("/entities/{id}/assignee")
	return checkResponse(resp, err, "updating entity assignee")
}

func (c *EntityClient) FindOne(ctx context.Context, entityID string) (map[string]any, error) {
	var out envelope[map[string]any]
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", entityID).
		SetResult(&out).
		Get("/entities/{id}")
	if err := checkResponse(resp, err, "loading entity"); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *EntityClient) Create(ctx context.Context, data map[string]any, actorID string) (map[string]any, error) {
	var out envelope[map[string]any]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"data": data, "actor_id": actorID}).
		SetResult(&out).
		Post("/entities")
	if err := checkResponse(resp, err, "creating entity"); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// NotifierClient reaches the message delivery service.
type NotifierClient struct {
	http *resty.Client
}

func (c *NotifierClient) Send(ctx context.Context, msg job.Message) (bool, error) {
	var out envelope[struct {
		Sent bool `json:"sent"`
	}]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&out).
		Post("/messages")
	if err := checkResponse(resp, err, "sending message"); err != nil {
		return false, err
	}
	return out.Data.Sent, nil
}

// AuditClient writes business audit log entries.
type AuditClient struct {
	http *resty.Client
}

type auditEntry struct {
	Action    string         `json:"action"`
	ScopeID   string         `json:"scope_id"`
	ActorID   *string        `json:"actor_id"`
	SubjectID *string        `json:"subject_id"`
	Details   map[string]any `json:"details"`
}

func (c *AuditClient) Log(
	ctx context.Context,
	action string,
	scopeID string,
	actorID *string,
	details map[string]any,
	subjectID *string,
) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(auditEntry{
			Action:    action,
			ScopeID:   scopeID,
			ActorID:   actorID,
			SubjectID: subjectID,
			Details:   details,
		}).
		Post("/audit-logs")
	return checkResponse(resp, err, "writing audit log")
}

// ClassifierClient asks the classifier to categorize and persist an entity.
type ClassifierClient struct {
	http *resty.Client
}

func (c *ClassifierClient) ClassifyAndSave(ctx context.Context, entityID string) (*job.Classification, error) {
	var out envelope[*job.Classification]
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", entityID).
		SetResult(&out).
		Post("/entities/{id}/classify")
	if err := checkResponse(resp, err, "classifying entity"); err != nil {
		return nil, err
	}
	return out.Data, nil
}
