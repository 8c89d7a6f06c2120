package trigrouter

import (
	"github.com/compozy/triggers/engine/trigger"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	registry *trigger.Registry
	service  *trigger.Service
}

func Register(apiBase *gin.RouterGroup, registry *trigger.Registry, service *trigger.Service) {
	h := &handlers{registry: registry, service: service}
	triggersGroup := apiBase.Group("/triggers")
	{
		// POST /api/v1/triggers
		triggersGroup.POST("", h.createTrigger)

		// GET /api/v1/triggers?workspace=
		triggersGroup.GET("", h.listTriggers)

		// GET /api/v1/triggers/:trigger_id
		triggersGroup.GET("/:trigger_id", h.getTrigger)

		// PUT /api/v1/triggers/:trigger_id
		triggersGroup.PUT("/:trigger_id", h.updateTrigger)

		// PATCH /api/v1/triggers/:trigger_id/toggle
		triggersGroup.PATCH("/:trigger_id/toggle", h.toggleTrigger)

		// DELETE /api/v1/triggers/:trigger_id
		triggersGroup.DELETE("/:trigger_id", h.deleteTrigger)

		// POST /api/v1/triggers/:trigger_id/fire
		// Fire a single trigger without evaluating its conditions
		triggersGroup.POST("/:trigger_id/fire", h.fireTrigger)

		// GET /api/v1/triggers/:trigger_id/executions?limit=
		triggersGroup.GET("/:trigger_id/executions", h.listExecutions)
	}

	// POST /api/v1/events
	// Evaluate every active trigger of a workspace against one domain event
	apiBase.POST("/events", h.handleEvent)
}
