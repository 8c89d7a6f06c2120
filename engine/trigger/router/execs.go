package trigrouter

import (
	"net/http"

	"github.com/compozy/triggers/engine/infra/server/router"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/gin-gonic/gin"
)

type FireRequest struct {
	Context trigger.EventContext `json:"context"`
}

type EventRequest struct {
	EventType   trigger.EventType    `json:"event_type"   binding:"required"`
	WorkspaceID string               `json:"workspace_id" binding:"required"`
	Context     trigger.EventContext `json:"context"`
}

func (h *handlers) fireTrigger(c *gin.Context) {
	id, ok := triggerID(c)
	if !ok {
		return
	}
	var req FireRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			router.RespondWithError(c, http.StatusBadRequest,
				router.NewRequestError(http.StatusBadRequest, "invalid fire payload", err))
			return
		}
	}
	eventCtx := req.Context
	if eventCtx == nil {
		eventCtx = trigger.EventContext{}
	}
	if _, ok := eventCtx[trigger.CtxTriggerType]; !ok {
		eventCtx[trigger.CtxTriggerType] = string(trigger.EventManual)
	}
	exec, err := h.service.FireByID(c.Request.Context(), id, eventCtx)
	if err != nil {
		respondTriggerError(c, "failed to fire trigger", err)
		return
	}
	router.RespondAccepted(c, "trigger fired", exec)
}

func (h *handlers) listExecutions(c *gin.Context) {
	id, ok := triggerID(c)
	if !ok {
		return
	}
	limit := router.LimitOrDefault(c.Query("limit"), trigger.DefaultExecutionsLimit, trigger.MaxExecutionsLimit)
	execs, err := h.service.GetExecutions(c.Request.Context(), id, limit)
	if err != nil {
		respondTriggerError(c, "failed to list executions", err)
		return
	}
	router.RespondOK(c, "executions retrieved", gin.H{"executions": execs})
}

func (h *handlers) handleEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		router.RespondWithError(c, http.StatusBadRequest,
			router.NewRequestError(http.StatusBadRequest, "invalid event format", err))
		return
	}
	if !req.EventType.IsValid() {
		router.RespondWithError(c, http.StatusBadRequest,
			router.NewRequestError(http.StatusBadRequest, "unknown event type "+req.EventType.String(), nil))
		return
	}
	eventCtx := req.Context
	if eventCtx == nil {
		eventCtx = trigger.EventContext{}
	}
	if _, ok := eventCtx[trigger.CtxWorkspaceID]; !ok {
		eventCtx[trigger.CtxWorkspaceID] = req.WorkspaceID
	}
	if _, ok := eventCtx[trigger.CtxTriggerType]; !ok {
		eventCtx[trigger.CtxTriggerType] = req.EventType.String()
	}
	result, err := h.service.EvaluateTriggers(c.Request.Context(), req.EventType, eventCtx, req.WorkspaceID)
	if err != nil {
		respondTriggerError(c, "failed to evaluate triggers", err)
		return
	}
	router.RespondAccepted(c, "event evaluated", result)
}
