package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPgxPoolMetrics exposes pgx connection pool statistics as Prometheus
// gauges under the controlplane_db_pool namespace.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	newGauge := func(name, help string, value func(*pgxpool.Stat) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "controlplane",
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(value(pool.Stat()))
		})
	}

	prometheus.MustRegister(
		newGauge("acquired_conns", "Connections currently acquired from the pool",
			func(s *pgxpool.Stat) int32 { return s.AcquiredConns() }),
		newGauge("idle_conns", "Idle connections in the pool",
			func(s *pgxpool.Stat) int32 { return s.IdleConns() }),
		newGauge("total_conns", "Total connections in the pool",
			func(s *pgxpool.Stat) int32 { return s.TotalConns() }),
		newGauge("max_conns", "Configured connection ceiling for the pool",
			func(s *pgxpool.Stat) int32 { return s.MaxConns() }),
	)
}
