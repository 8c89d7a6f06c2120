package server

import (
	"fmt"
	"strings"

	"github.com/compozy/triggers/engine/infra/monitoring"
	"github.com/compozy/triggers/engine/infra/server/middleware/ratelimit"
	"github.com/compozy/triggers/engine/infra/server/middleware/size"
	"github.com/compozy/triggers/engine/infra/server/routes"
	"github.com/compozy/triggers/engine/job"
	"github.com/compozy/triggers/engine/trigger"
	trigrouter "github.com/compozy/triggers/engine/trigger/router"
	"github.com/compozy/triggers/engine/webhook"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Deps are the components the HTTP surface exposes. Nil optional fields
// leave the matching routes unmounted.
type Deps struct {
	Registry    *trigger.Registry
	Service     *trigger.Service
	Dispatcher  *job.Dispatcher
	Webhooks    webhook.Ingress
	RateLimiter *ratelimit.Manager
	Monitoring  *monitoring.Service
	Health      map[string]HealthCheck
	Version     string
}

func (d *Deps) validate() error {
	if d.Registry == nil || d.Service == nil {
		return fmt.Errorf("trigger registry and service are required")
	}
	return nil
}

// BuildRouter assembles the gin engine for the API, webhook ingress, health
// and metrics endpoints.
func BuildRouter(log logger.Logger, cfg *Config, deps *Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if deps.Monitoring != nil && deps.Monitoring.IsInitialized() {
		r.Use(deps.Monitoring.GinMiddleware())
	}
	r.Use(LoggerMiddleware(log))
	if cfg.CORSEnabled {
		r.Use(CORSMiddleware(cfg.CORS))
	}
	if deps.Monitoring != nil && deps.Monitoring.IsInitialized() {
		r.GET(deps.Monitoring.Path(), gin.WrapH(deps.Monitoring.ExporterHandler()))
	}
	r.GET(routes.Health(), CreateHealthHandler(deps.Health, deps.Version))

	api := r.Group(routes.Base())
	trigrouter.Register(api, deps.Registry, deps.Service)
	if deps.Dispatcher != nil {
		job.Register(api, deps.Dispatcher)
	}

	if deps.Webhooks != nil {
		hooks := r.Group(routes.Hooks())
		if deps.RateLimiter != nil {
			hooks.Use(deps.RateLimiter.Middleware())
		}
		if cfg.HookBodyLimit > 0 {
			// one extra byte lets the processor tell oversized bodies apart
			hooks.Use(size.BodySizeLimiter(cfg.HookBodyLimit + 1))
		}
		webhook.RegisterPublic(hooks, deps.Webhooks)
	}
	return r, nil
}

func (s *Server) logStartupBanner() {
	httpURL := fmt.Sprintf("http://%s:%d", friendlyHost(s.cfg.Host), s.cfg.Port)
	lines := []string{
		fmt.Sprintf("Triggers %s", s.version),
		fmt.Sprintf("  API           > %s%s", httpURL, routes.Base()),
		fmt.Sprintf("  Health        > %s%s", httpURL, routes.Health()),
		fmt.Sprintf("  Webhooks      > %s%s", httpURL, routes.Hooks()),
	}
	s.log.Info("\n" + strings.Join(lines, "\n"))
}

func friendlyHost(h string) string {
	if h == hostAny || h == "::" || h == "" {
		return hostLoopback
	}
	return h
}
