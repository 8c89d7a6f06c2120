package server

import (
	"context"
	"net/http"
	"time"

	"github.com/compozy/triggers/pkg/logger"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// CreateHealthHandler reports overall readiness. Any failing component makes
// the service not ready.
func CreateHealthHandler(checks map[string]HealthCheck, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		ready := true
		components := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.FromContext(ctx).Warn("Health check failed", "component", name, "error", err)
				components[name] = gin.H{"ready": false, "error": err.Error()}
				ready = false
				continue
			}
			components[name] = gin.H{"ready": true}
		}
		status := "healthy"
		code := http.StatusOK
		if !ready {
			status = "not_ready"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"data": gin.H{
				"status":     status,
				"version":    version,
				"ready":      ready,
				"components": components,
			},
			"message": "Success",
		})
	}
}
