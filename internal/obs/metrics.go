// Package obs carries the engine's internal instrumentation: counters
// for mutations and queries, a latency histogram, and a live-entity
// gauge. Adapted from the teacher's metrics.go; this module has no
// Non-goal exemption for ambient instrumentation (spec.md §1's
// "metrics export format" Non-goal only excludes an HTTP exposition
// endpoint, not the counters themselves).
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every metric an Engine touches.
type Metrics struct {
	InsertsTotal prometheus.Counter
	RemovesTotal prometheus.Counter
	UpdatesTotal prometheus.Counter
	QueriesTotal *prometheus.CounterVec
	QueryLatency *prometheus.HistogramVec
	EntityCount  prometheus.Gauge
}

// NewMetrics creates a Metrics instance, registered into its own
// private registry rather than prometheus's global DefaultRegisterer —
// an Engine can be constructed many times in one process (tests,
// multiple trees), and sharing the global registerer would panic on
// the second registration of the same metric name. namespace prefixes
// every metric name. The private registry is not exposed on Metrics,
// so no other registry or exporter gathers these metrics.
func NewMetrics(namespace string) *Metrics {
	ns := "spatialidx"
	if namespace != "" {
		ns = "spatialidx_" + namespace
	}
	factory := promauto.With(prometheus.NewRegistry())
	return &Metrics{
		InsertsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: ns + "_inserts_total",
			Help: "Total entity insertions",
		}),
		RemovesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: ns + "_removes_total",
			Help: "Total entity removals",
		}),
		UpdatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: ns + "_updates_total",
			Help: "Total entity position updates",
		}),
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: ns + "_queries_total",
			Help: "Total queries by kind",
		}, []string{"kind"}),
		QueryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: ns + "_query_latency_seconds",
			Help: "Query latency by kind",
		}, []string{"kind"}),
		EntityCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: ns + "_entities",
			Help: "Live entity count",
		}),
	}
}
