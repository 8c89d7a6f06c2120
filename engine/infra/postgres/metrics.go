package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type statSource interface {
	Stat() *pgxpool.Stat
}

// poolCollector reports pgxpool statistics at scrape time.
type poolCollector struct {
	pool   statSource
	open   *prometheus.Desc
	inUse  *prometheus.Desc
	idle   *prometheus.Desc
	maxCfg *prometheus.Desc
}

func newPoolCollector(pool statSource) *poolCollector {
	return &poolCollector{
		pool:   pool,
		open:   prometheus.NewDesc("postgres_connections_open", "Number of open Postgres connections.", nil, nil),
		inUse:  prometheus.NewDesc("postgres_connections_in_use", "Postgres connections currently in use.", nil, nil),
		idle:   prometheus.NewDesc("postgres_connections_idle", "Idle Postgres connections.", nil, nil),
		maxCfg: prometheus.NewDesc("postgres_max_open_connections", "Configured Postgres pool size.", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.inUse
	ch <- c.idle
	ch <- c.maxCfg
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(stats.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(stats.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stats.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.maxCfg, prometheus.GaugeValue, float64(stats.MaxConns()))
}
