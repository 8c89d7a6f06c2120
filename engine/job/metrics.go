package job

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	handled *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_handled_total",
			Help: "Jobs handled by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.handled)
	}
	return m
}

func (m *Metrics) observe(kind Kind, outcome Outcome) {
	if m == nil {
		return
	}
	m.handled.WithLabelValues(kind.String(), string(outcome)).Inc()
}
