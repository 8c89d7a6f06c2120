package collab

import "time"

// Config holds the base URL of each collaborator. An empty URL leaves the
// collaborator absent.
type Config struct {
	EntitiesURL   string
	NotifierURL   string
	AuditURL      string
	ClassifierURL string
	APIKey        string
	Timeout       time.Duration
	RetryCount    int
}

const defaultTimeout = 10 * time.Second
