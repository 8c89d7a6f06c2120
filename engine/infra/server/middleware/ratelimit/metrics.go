package ratelimit

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	blocked *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		blocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_blocks_total",
			Help: "Total number of requests blocked by rate limiting.",
		}, []string{"route"}),
	}
	if reg != nil {
		reg.MustRegister(m.blocked)
	}
	return m
}

func (m *Metrics) incBlocked(route string) {
	if m == nil {
		return
	}
	m.blocked.WithLabelValues(route).Inc()
}
