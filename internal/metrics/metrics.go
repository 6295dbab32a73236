// Package metrics exposes the opaque counters the task engine and worker
// are required to update: request volume, in-flight processing, timeouts,
// errors and a response-latency histogram.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every instrument the query lifecycle engine touches.
type Metrics struct {
	Requests   prometheus.Counter
	Processing prometheus.Gauge
	Timeouts   prometheus.Counter
	Errors     *prometheus.CounterVec
	Latency    prometheus.Histogram
}

// New registers and returns the metric set against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eve",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total queries accepted by the orchestrator.",
		}),
		Processing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eve",
			Subsystem: "query",
			Name:      "processing",
			Help:      "Queries currently in flight.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eve",
			Subsystem: "query",
			Name:      "timeouts_total",
			Help:      "Response rows rewritten to Timeout on deadline.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eve",
			Subsystem: "query",
			Name:      "errors_total",
			Help:      "Errors encountered while processing queries, by stage.",
		}, []string{"stage"}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eve",
			Subsystem: "query",
			Name:      "latency_seconds",
			Help:      "Seconds between request.timestamp and a verified response.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Requests, m.Processing, m.Timeouts, m.Errors, m.Latency)
	return m
}

// ProcessingUp marks the start of a query's lifetime.
func (m *Metrics) ProcessingUp() { m.Processing.Inc() }

// ProcessingDown marks the end of a query's lifetime.
func (m *Metrics) ProcessingDown() { m.Processing.Dec() }
