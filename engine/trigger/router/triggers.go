package trigrouter

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/infra/server/router"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/gin-gonic/gin"
)

func (h *handlers) createTrigger(c *gin.Context) {
	var in trigger.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		router.RespondWithError(c, http.StatusBadRequest,
			router.NewRequestError(http.StatusBadRequest, "invalid trigger payload", err))
		return
	}
	t, err := h.registry.Create(c.Request.Context(), &in)
	if err != nil {
		respondTriggerError(c, "failed to create trigger", err)
		return
	}
	router.RespondCreated(c, "trigger created", t)
}

func (h *handlers) listTriggers(c *gin.Context) {
	filter := &trigger.Filter{}
	if ws := strings.TrimSpace(c.Query("workspace")); ws != "" {
		filter.WorkspaceID = &ws
	}
	if et := strings.TrimSpace(c.Query("event_type")); et != "" {
		eventType := trigger.EventType(et)
		filter.EventType = &eventType
	}
	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			router.RespondWithError(c, http.StatusBadRequest,
				router.NewRequestError(http.StatusBadRequest, "invalid active filter", err))
			return
		}
		filter.Active = &active
	}
	filter.Limit = router.LimitOrDefault(c.Query("limit"), 100, 1000)
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset > 0 {
			filter.Offset = offset
		}
	}
	triggers, err := h.registry.List(c.Request.Context(), filter)
	if err != nil {
		respondTriggerError(c, "failed to list triggers", err)
		return
	}
	router.RespondOK(c, "triggers retrieved", gin.H{"triggers": triggers})
}

func (h *handlers) getTrigger(c *gin.Context) {
	id, ok := triggerID(c)
	if !ok {
		return
	}
	t, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		respondTriggerError(c, "failed to get trigger", err)
		return
	}
	router.RespondOK(c, "trigger retrieved", t)
}

func (h *handlers) updateTrigger(c *gin.Context) {
	id, ok := triggerID(c)
	if !ok {
		return
	}
	var in trigger.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		router.RespondWithError(c, http.StatusBadRequest,
			router.NewRequestError(http.StatusBadRequest, "invalid trigger payload", err))
		return
	}
	t, err := h.registry.Update(c.Request.Context(), id, &in)
	if err != nil {
		respondTriggerError(c, "failed to update trigger", err)
		return
	}
	router.RespondOK(c, "trigger updated", t)
}

func (h *handlers) toggleTrigger(c *gin.Context) {
	id, ok := triggerID(c)
	if !ok {
		return
	}
	t, err := h.registry.Toggle(c.Request.Context(), id)
	if err != nil {
		respondTriggerError(c, "failed to toggle trigger", err)
		return
	}
	router.RespondOK(c, "trigger toggled", t)
}

func (h *handlers) deleteTrigger(c *gin.Context) {
	id, ok := triggerID(c)
	if !ok {
		return
	}
	if err := h.registry.Delete(c.Request.Context(), id); err != nil {
		respondTriggerError(c, "failed to delete trigger", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func triggerID(c *gin.Context) (core.ID, bool) {
	raw := strings.TrimSpace(c.Param("trigger_id"))
	if raw == "" {
		router.RespondWithError(c, http.StatusBadRequest,
			router.NewRequestError(http.StatusBadRequest, "trigger id is required", nil))
		return "", false
	}
	return core.ID(raw), true
}

func respondTriggerError(c *gin.Context, reason string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, trigger.ErrTriggerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, trigger.ErrInvalidTrigger):
		status = http.StatusBadRequest
	case errors.Is(err, trigger.ErrDuplicateSlug):
		status = http.StatusConflict
	}
	router.RespondWithError(c, status, router.NewRequestError(status, reason, err))
}
