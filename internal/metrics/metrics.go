// Package metrics exposes Prometheus instruments for authentication outcomes,
// lockouts and the hashing pool.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	AuthOutcomes   *prometheus.CounterVec
	Lockouts       *prometheus.CounterVec
	CleanupDeleted *prometheus.CounterVec
	HashQueueDepth prometheus.Gauge
	HashWorkers    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_auth_outcomes_total",
				Help: "Total number of credential operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		Lockouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_lockouts_total",
				Help: "Total number of failed-login transitions by result",
			},
			[]string{"result"},
		),
		CleanupDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_cleanup_deleted_total",
				Help: "Total number of stale rows removed by background cleanup",
			},
			[]string{"table"},
		),
		HashQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warden_hash_queue_depth",
			Help: "Number of hashing jobs waiting for a worker",
		}),
		HashWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warden_hash_workers",
			Help: "Number of hashing worker goroutines",
		}),
	}

	reg.MustRegister(m.AuthOutcomes, m.Lockouts, m.CleanupDeleted, m.HashQueueDepth, m.HashWorkers)

	return m
}

// NewRegistry returns a registry with the Go and process collectors and the
// service metrics registered.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry, New(registry)
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Outcome counts one finished operation. Nil-safe.
func (m *Metrics) Outcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthOutcomes.WithLabelValues(operation, outcome).Inc()
}

// Lockout counts one lockout transition. Nil-safe.
func (m *Metrics) Lockout(result string) {
	if m == nil {
		return
	}
	m.Lockouts.WithLabelValues(result).Inc()
}

// Cleaned adds n removed rows for table. Nil-safe.
func (m *Metrics) Cleaned(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.CleanupDeleted.WithLabelValues(table).Add(float64(n))
}

// HashQueue records the current hashing queue depth. Nil-safe.
func (m *Metrics) HashQueue(depth int) {
	if m == nil {
		return
	}
	m.HashQueueDepth.Set(float64(depth))
}
