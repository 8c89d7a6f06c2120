package job

import (
	"errors"
	"net/http"

	"github.com/compozy/triggers/engine/infra/server/router"
	"github.com/gin-gonic/gin"
)

type Request struct {
	Key       string         `json:"key"        binding:"required"`
	RunID     string         `json:"run_id"`
	ElementID string         `json:"element_id"`
	Retries   int            `json:"retries"`
	Variables map[string]any `json:"variables"`
}

// Register mounts the job callback endpoint the orchestrator posts to.
func Register(apiBase *gin.RouterGroup, d *Dispatcher) {
	// POST /api/v1/jobs/:kind
	apiBase.POST("/jobs/:kind", func(c *gin.Context) {
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			router.RespondWithError(c, http.StatusBadRequest,
				router.NewRequestError(http.StatusBadRequest, "invalid job payload", err))
			return
		}
		job := &Job{
			Key:       req.Key,
			Kind:      Kind(c.Param("kind")),
			RunID:     req.RunID,
			ElementID: req.ElementID,
			Retries:   req.Retries,
			Variables: req.Variables,
		}
		if job.Variables == nil {
			job.Variables = map[string]any{}
		}
		report, err := d.Handle(c.Request.Context(), job)
		switch {
		case errors.Is(err, ErrUnknownJobKind):
			router.RespondWithError(c, http.StatusNotFound,
				router.NewRequestError(http.StatusNotFound, "unknown job kind", err))
		case err != nil:
			router.RespondWithError(c, http.StatusBadGateway,
				router.NewRequestError(http.StatusBadGateway, "failed to report job outcome", err))
		default:
			router.RespondOK(c, "job handled", report)
		}
	})
}
