package trigger

import "context"

// StartOptions carries linkage hints for a new process run.
type StartOptions struct {
	EntityID    string `json:"entity_id,omitempty"`
	BusinessKey string `json:"business_key,omitempty"`
	StartedByID string `json:"started_by_id,omitempty"`
}

type RunHandle struct {
	RunID        string `json:"run_id"`
	DefinitionID string `json:"definition_id"`
}

// Orchestrator is the external process engine. Implementations bound every call
// with their own timeout.
type Orchestrator interface {
	IsDeployable(ctx context.Context, definitionID string) (bool, error)
	StartProcess(ctx context.Context, definitionID string, vars map[string]any, opts StartOptions) (*RunHandle, error)
	Cancel(ctx context.Context, runID string) error
}
