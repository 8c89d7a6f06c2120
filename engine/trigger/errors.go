package trigger

import "errors"

var (
	ErrTriggerNotFound = errors.New("trigger not found")
	ErrInvalidTrigger  = errors.New("invalid trigger")
	ErrDuplicateSlug   = errors.New("trigger slug already exists in workspace")
	ErrNotDeployable   = errors.New("process definition is not deployable")
	ErrRunNotFound     = errors.New("run not found")
)
