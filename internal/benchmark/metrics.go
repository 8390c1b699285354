package benchmark

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes benchmark outcomes to prometheus. Attached to a Runner via
// WithMetrics; a nil Metrics disables instrumentation.
type Metrics struct {
	benchmarksTotal *prometheus.CounterVec
	opsPerSecond    *prometheus.GaugeVec
	meanLatency     *prometheus.GaugeVec
	suiteDuration   prometheus.Histogram
}

// NewMetrics registers benchmark metrics on the given registerer. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		benchmarksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corebench_benchmarks_total",
			Help: "Benchmarks executed, by category and outcome",
		}, []string{"category", "outcome"}),
		opsPerSecond: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corebench_ops_per_second",
			Help: "Throughput of the most recent run of each benchmark",
		}, []string{"benchmark"}),
		meanLatency: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corebench_mean_latency_seconds",
			Help: "Mean operation latency of the most recent run of each benchmark",
		}, []string{"benchmark"}),
		suiteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "corebench_suite_duration_seconds",
			Help:    "Wall-clock duration of completed benchmark suites",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// ObserveResult records one benchmark result.
func (m *Metrics) ObserveResult(result BenchmarkResult) {
	outcome := "success"
	switch {
	case result.Type == TypeSkipped:
		outcome = "skipped"
	case !result.Success:
		outcome = "failure"
	}
	m.benchmarksTotal.WithLabelValues(string(result.Category), outcome).Inc()

	if result.Type == TypeSkipped {
		return
	}
	m.opsPerSecond.WithLabelValues(result.Name).Set(result.OpsPerSecond)
	if result.Latency != nil {
		m.meanLatency.WithLabelValues(result.Name).Set(result.Latency.Mean.Seconds())
	}
}

// ObserveSuite records a completed suite.
func (m *Metrics) ObserveSuite(suite *BenchmarkSuite) {
	m.suiteDuration.Observe(suite.Duration.Seconds())
}
