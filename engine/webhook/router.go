package webhook

import (
	"context"
	"errors"
	"net/http"

	"github.com/compozy/triggers/engine/infra/server/router"
	"github.com/gin-gonic/gin"
)

// Ingress is the processing contract used by the HTTP router.
type Ingress interface {
	Process(ctx context.Context, workspace, slug string, r *http.Request) (Result, error)
}

// RegisterPublic mounts POST /:workspace/:slug under the provided group.
func RegisterPublic(r *gin.RouterGroup, p Ingress) {
	r.POST("/:workspace/:slug", func(c *gin.Context) {
		res, err := p.Process(c.Request.Context(), c.Param("workspace"), c.Param("slug"), c.Request)
		if err != nil {
			status := res.Status
			if status == 0 {
				status = http.StatusInternalServerError
			}
			router.RespondWithError(c, status, router.NewRequestError(status, reasonFor(err), err))
			return
		}
		router.RespondAccepted(c, "webhook accepted", res.Payload)
	})
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "webhook not found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrDuplicate):
		return "duplicate delivery"
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload too large"
	case errors.Is(err, ErrBadRequest):
		return "invalid payload"
	default:
		return "internal server error"
	}
}
