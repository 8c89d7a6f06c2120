package job

import "context"

// EntityStore is the domain entity service jobs act upon.
type EntityStore interface {
	UpdateStatus(ctx context.Context, entityID, status string) error
	UpdateAssignee(ctx context.Context, entityID string, assigneeID *string) error
	FindOne(ctx context.Context, entityID string) (map[string]any, error)
	Create(ctx context.Context, data map[string]any, actorID string) (map[string]any, error)
}

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// Notifier sends notifications and email. Send reports whether the message was accepted.
type Notifier interface {
	Send(ctx context.Context, msg Message) (bool, error)
}

type AuditLog interface {
	Log(
		ctx context.Context,
		action string,
		scopeID string,
		actorID *string,
		details map[string]any,
		subjectID *string,
	) error
}

type Classification struct {
	Category   string  `json:"category"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

type Classifier interface {
	ClassifyAndSave(ctx context.Context, entityID string) (*Classification, error)
}

// Collaborators groups the optional side-effect targets. A nil field means the
// collaborator is not available and jobs that need it are skipped.
type Collaborators struct {
	Entities   EntityStore
	Notifier   Notifier
	Audit      AuditLog
	Classifier Classifier
}
