package schedule

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	registered      prometheus.Gauge
	reconciliations *prometheus.CounterVec
	ticks           prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trigger_schedules_registered",
			Help: "Number of cron triggers with a live timer.",
		}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trigger_schedule_reconciliations_total",
			Help: "Reconciliation passes by result.",
		}, []string{"result"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trigger_schedule_ticks_total",
			Help: "Timer fires, including ticks of triggers that turned out inactive.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.registered, m.reconciliations, m.ticks)
	}
	return m
}

func (m *Metrics) setRegistered(n int) {
	if m == nil {
		return
	}
	m.registered.Set(float64(n))
}

func (m *Metrics) observeReconcile(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.reconciliations.WithLabelValues(result).Inc()
}

func (m *Metrics) observeTick() {
	if m == nil {
		return
	}
	m.ticks.Inc()
}
