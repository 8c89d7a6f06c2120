package job

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

type handlerFunc func(ctx context.Context, job *Job) (map[string]any, error)

// EntityVars are the entity and actor variables most jobs read.
type EntityVars struct {
	EntityID    string `mapstructure:"entityId"`
	WorkspaceID string `mapstructure:"workspaceId"`
	UserID      string `mapstructure:"userId"`
	TriggeredBy string `mapstructure:"triggeredBy"`
}

func (in EntityVars) actor() *string {
	for _, v := range []string{in.UserID, in.TriggeredBy} {
		if v = strings.TrimSpace(v); v != "" {
			return &v
		}
	}
	return nil
}

type statusInput struct {
	EntityVars `mapstructure:",squash"`
	Status      string `mapstructure:"status"`
}

type assigneeInput struct {
	EntityVars `mapstructure:",squash"`
	AssigneeID  *string `mapstructure:"assigneeId"`
}

type notificationInput struct {
	EntityVars `mapstructure:",squash"`
	To          string `mapstructure:"to"`
	Subject     string `mapstructure:"subject"`
	Message     string `mapstructure:"message"`
}

type emailInput struct {
	To      string `mapstructure:"to"`
	Subject string `mapstructure:"subject"`
	Text    string `mapstructure:"text"`
	HTML    string `mapstructure:"html"`
}

type activityInput struct {
	EntityVars `mapstructure:",squash"`
	Action      string         `mapstructure:"action"`
	Details     map[string]any `mapstructure:"details"`
}

// decodeVariables decodes the job variables into out. Unknown variables are
// ignored since jobs share the whole process variable scope.
func decodeVariables(vars map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(vars); err != nil {
		return fmt.Errorf("failed to decode job variables: %w", err)
	}
	return nil
}

func skipped(reason string) map[string]any {
	return map[string]any{"skipped": true, "reason": reason}
}

func isSkipped(result map[string]any) bool {
	v, _ := result["skipped"].(bool)
	return v
}

func (d *Dispatcher) buildHandlers() map[Kind]handlerFunc {
	return map[Kind]handlerFunc{
		KindUpdateStatus:     d.updateStatus,
		KindUpdateAssignee:   d.updateAssignee,
		KindSendNotification: d.sendNotification,
		KindSendEmail:        d.sendEmail,
		KindLogActivity:      d.logActivity,
		KindClassifyEntity:   d.classifyEntity,
		KindMarkCompleted:    d.markCompleted,
	}
}

func (d *Dispatcher) updateStatus(ctx context.Context, job *Job) (map[string]any, error) {
	if d.collab.Entities == nil {
		return skipped("entity store not configured"), nil
	}
	var in statusInput
	if err := decodeVariables(job.Variables, &in); err != nil {
		return nil, err
	}
	if in.EntityID == "" || in.Status == "" {
		return nil, errors.New("entityId and status are required")
	}
	if err := d.collab.Entities.UpdateStatus(ctx, in.EntityID, in.Status); err != nil {
		return nil, fmt.Errorf("updating status of %s: %w", in.EntityID, err)
	}
	return map[string]any{"applied": true, "entityId": in.EntityID, "status": in.Status}, nil
}

func (d *Dispatcher) updateAssignee(ctx context.Context, job *Job) (map[string]any, error) {
	if d.collab.Entities == nil {
		return skipped("entity store not configured"), nil
	}
	var in assigneeInput
	if err := decodeVariables(job.Variables, &in); err != nil {
		return nil, err
	}
	if in.EntityID == "" {
		return nil, errors.New("entityId is required")
	}
	if in.AssigneeID != nil && strings.TrimSpace(*in.AssigneeID) == "" {
		in.AssigneeID = nil
	}
	if err := d.collab.Entities.UpdateAssignee(ctx, in.EntityID, in.AssigneeID); err != nil {
		return nil, fmt.Errorf("updating assignee of %s: %w", in.EntityID, err)
	}
	result := map[string]any{"applied": true, "entityId": in.EntityID, "assigneeId": nil}
	if in.AssigneeID != nil {
		result["assigneeId"] = *in.AssigneeID
	}
	return result, nil
}

func (d *Dispatcher) sendNotification(ctx context.Context, job *Job) (map[string]any, error) {
	if d.collab.Notifier == nil {
		return skipped("notifier not configured"), nil
	}
	var in notificationInput
	if err := decodeVariables(job.Variables, &in); err != nil {
		return nil, err
	}
	to := in.To
	if to == "" && in.EntityID != "" && d.collab.Entities != nil {
		entity, err := d.collab.Entities.FindOne(ctx, in.EntityID)
		if err != nil {
			return nil, fmt.Errorf("loading entity %s: %w", in.EntityID, err)
		}
		to, _ = entity["assigneeEmail"].(string)
	}
	if to == "" {
		return nil, errors.New("notification recipient is required")
	}
	return d.send(ctx, Message{To: to, Subject: in.Subject, Text: in.Message})
}

func (d *Dispatcher) sendEmail(ctx context.Context, job *Job) (map[string]any, error) {
	if d.collab.Notifier == nil {
		return skipped("notifier not configured"), nil
	}
	var in emailInput
	if err := decodeVariables(job.Variables, &in); err != nil {
		return nil, err
	}
	if in.To == "" || in.Subject == "" {
		return nil, errors.New("to and subject are required")
	}
	return d.send(ctx, Message(in))
}

func (d *Dispatcher) send(ctx context.Context, msg Message) (map[string]any, error) {
	sent, err := d.collab.Notifier.Send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	if !sent {
		return nil, errors.New("message was not accepted by the sender")
	}
	return map[string]any{"applied": true, "sent": true, "to": msg.To}, nil
}

func (d *Dispatcher) logActivity(ctx context.Context, job *Job) (map[string]any, error) {
	if d.collab.Audit == nil {
		return skipped("audit log not configured"), nil
	}
	var in activityInput
	if err := decodeVariables(job.Variables, &in); err != nil {
		return nil, err
	}
	action := in.Action
	if action == "" {
		action = "process_activity"
	}
	details := in.Details
	if details == nil {
		details = map[string]any{}
	}
	details["runId"] = job.RunID
	if err := d.collab.Audit.Log(ctx, action, in.WorkspaceID, in.actor(), details, optional(in.EntityID)); err != nil {
		return nil, fmt.Errorf("writing activity: %w", err)
	}
	return map[string]any{"applied": true, "action": action}, nil
}

func (d *Dispatcher) classifyEntity(ctx context.Context, job *Job) (map[string]any, error) {
	if d.collab.Classifier == nil {
		return skipped("classifier not configured"), nil
	}
	var in EntityVars
	if err := decodeVariables(job.Variables, &in); err != nil {
		return nil, err
	}
	if in.EntityID == "" {
		return nil, errors.New("entityId is required")
	}
	c, err := d.collab.Classifier.ClassifyAndSave(ctx, in.EntityID)
	if err != nil {
		return nil, fmt.Errorf("classifying %s: %w", in.EntityID, err)
	}
	if c == nil {
		return nil, errors.New("classifier returned no result")
	}
	return map[string]any{
		"applied":    true,
		"category":   c.Category,
		"priority":   c.Priority,
		"confidence": c.Confidence,
	}, nil
}

func (d *Dispatcher) markCompleted(ctx context.Context, job *Job) (map[string]any, error) {
	if d.collab.Audit == nil {
		return skipped("audit log not configured"), nil
	}
	var in EntityVars
	if err := decodeVariables(job.Variables, &in); err != nil {
		return nil, err
	}
	details := map[string]any{"runId": job.RunID, "completedAt": d.now().Format(timeLayout)}
	if err := d.collab.Audit.Log(ctx, "process_completed", in.WorkspaceID, in.actor(), details, optional(in.EntityID)); err != nil {
		return nil, fmt.Errorf("recording completion: %w", err)
	}
	return map[string]any{"completed": true}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
