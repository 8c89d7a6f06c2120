package ratelimit

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/compozy/triggers/engine/infra/server/router"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

type routeLimiter struct {
	prefix  string
	limiter *limiter.Limiter
}

// Manager applies per client IP limits, choosing the longest matching route
// prefix before falling back to the global rate.
type Manager struct {
	config  *Config
	global  *limiter.Limiter
	routes  []routeLimiter
	metrics *Metrics
}

// NewManager builds limiters backed by Redis when client is set, otherwise by
// an in-process store.
func NewManager(cfg *Config, client redis.UniversalClient, metrics *Metrics) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := limiter.StoreOptions{Prefix: cfg.Prefix, MaxRetry: cfg.MaxRetry}
	var store limiter.Store
	if client != nil {
		s, err := sredis.NewStoreWithOptions(client, opts)
		if err != nil {
			return nil, fmt.Errorf("creating redis rate limit store: %w", err)
		}
		store = s
	} else {
		store = memory.NewStoreWithOptions(opts)
	}
	m := &Manager{config: cfg, metrics: metrics}
	if !cfg.GlobalRate.Disabled {
		m.global = limiter.New(store, cfg.GlobalRate.ToLimiterRate())
	}
	for prefix, rate := range cfg.RouteRates {
		if rate.Disabled {
			continue
		}
		m.routes = append(m.routes, routeLimiter{
			prefix:  prefix,
			limiter: limiter.New(store, rate.ToLimiterRate(), limiter.WithTrustForwardHeader(false)),
		})
	}
	sort.Slice(m.routes, func(i, j int) bool { return len(m.routes[i].prefix) > len(m.routes[j].prefix) })
	return m, nil
}

func (m *Manager) pick(path string) (string, *limiter.Limiter) {
	for _, r := range m.routes {
		if strings.HasPrefix(path, r.prefix) {
			return r.prefix, r.limiter
		}
	}
	return "global", m.global
}

func (m *Manager) excluded(path string) bool {
	for _, p := range m.config.ExcludedPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if m.excluded(path) {
			c.Next()
			return
		}
		route, lim := m.pick(path)
		if lim == nil {
			c.Next()
			return
		}
		key := route + ":" + c.ClientIP()
		res, err := lim.Get(c.Request.Context(), key)
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("Rate limit store unavailable", "error", err)
			c.Next()
			return
		}
		if !m.config.DisableHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))
		}
		if res.Reached {
			m.metrics.incBlocked(route)
			router.RespondWithError(c, http.StatusTooManyRequests,
				router.NewRequestError(http.StatusTooManyRequests, "rate limit exceeded", nil))
			return
		}
		c.Next()
	}
}
