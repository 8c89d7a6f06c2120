package trigger

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	evaluated prometheus.Counter
	fired     *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors on reg. A nil reg yields
// unregistered collectors, which is what tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		evaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triggers",
			Name:      "evaluated_total",
			Help:      "Trigger condition evaluations.",
		}),
		fired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triggers",
			Name:      "fired_total",
			Help:      "Trigger firing attempts by outcome.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.evaluated, m.fired)
	}
	return m
}

func (m *Metrics) observeEvaluated() {
	if m != nil {
		m.evaluated.Inc()
	}
}

func (m *Metrics) observeFired(status ExecutionStatus) {
	if m != nil {
		m.fired.WithLabelValues(string(status)).Inc()
	}
}
