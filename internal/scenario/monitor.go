package scenario

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"

	"github.com/enterprise/corebench/internal/components"
)

// MetricSampler produces one reading of a monitored metric.
type MetricSampler func() (float64, error)

// Baseline is the expected behavior of one monitored metric. A zero
// RegressionPercent disables regression checking for the metric.
type Baseline struct {
	Metric            string  `json:"metric"`
	Expected          float64 `json:"expected"`
	P95Threshold      float64 `json:"p95_threshold,omitempty"`
	RegressionPercent float64 `json:"regression_percent,omitempty"`
}

// Sample is one timestamped metric reading.
type Sample struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// MetricState is a snapshot of one monitored metric's recent history.
type MetricState struct {
	Name    string   `json:"name"`
	Samples []Sample `json:"samples"`
	Latest  float64  `json:"latest"`
}

const sampleRingSize = 120

type monitoredMetric struct {
	name     string
	interval time.Duration
	sampler  MetricSampler

	mu      sync.Mutex
	samples []Sample
	next    int
	full    bool
}

func (m *monitoredMetric) record(s Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) < sampleRingSize {
		m.samples = append(m.samples, s)
		return
	}
	m.samples[m.next] = s
	m.next = (m.next + 1) % sampleRingSize
	m.full = true
}

func (m *monitoredMetric) snapshot() MetricState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sample, len(m.samples))
	copy(out, m.samples)
	state := MetricState{Name: m.name, Samples: out}
	if len(out) > 0 {
		latest := m.next - 1
		if latest < 0 {
			latest = len(out) - 1
		}
		if !m.full {
			latest = len(out) - 1
		}
		state.Latest = out[latest].Value
	}
	return state
}

// Monitor samples registered metrics on per-metric intervals and warns when a
// reading regresses past its baseline.
type Monitor struct {
	logger      *logrus.Logger
	regressions *prometheus.CounterVec

	mu        sync.Mutex
	metrics   map[string]*monitoredMetric
	baselines map[string]Baseline
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
}

// MonitorOption tunes a Monitor.
type MonitorOption func(*Monitor)

// WithRegressionCounter registers a regression counter on reg, labeled by
// metric name.
func WithRegressionCounter(reg prometheus.Registerer) MonitorOption {
	return func(m *Monitor) {
		m.regressions = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "corebench_baseline_regressions_total",
			Help: "Metric readings that regressed past their baseline",
		}, []string{"metric"})
	}
}

// NewMonitor creates a stopped monitor.
func NewMonitor(logger *logrus.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		logger:    logger,
		metrics:   make(map[string]*monitoredMetric),
		baselines: make(map[string]Baseline),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterMetric adds a metric to sample every interval. Registration after
// Start takes effect on the next Start.
func (m *Monitor) RegisterMetric(name string, interval time.Duration, sampler MetricSampler) error {
	if name == "" {
		return fmt.Errorf("metric name must not be empty")
	}
	if interval <= 0 {
		return fmt.Errorf("metric %s: interval must be positive", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.metrics[name]; exists {
		return fmt.Errorf("metric %s already registered", name)
	}
	m.metrics[name] = &monitoredMetric{name: name, interval: interval, sampler: sampler}
	return nil
}

// SetBaseline sets or replaces the baseline for a metric.
func (m *Monitor) SetBaseline(baseline Baseline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines[baseline.Metric] = baseline
}

// Start launches one sampling goroutine per registered metric.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("monitor already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for _, metric := range m.metrics {
		m.wg.Add(1)
		go m.sampleLoop(ctx, metric)
	}

	m.logger.WithField("metrics", len(m.metrics)).Info("Continuous monitoring started")
	return nil
}

// Stop halts sampling and waits for all samplers to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("Continuous monitoring stopped")
}

func (m *Monitor) sampleLoop(ctx context.Context, metric *monitoredMetric) {
	defer m.wg.Done()

	ticker := time.NewTicker(metric.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			value, err := metric.sampler()
			if err != nil {
				m.logger.WithError(err).WithField("metric", metric.name).Warn("Metric sample failed")
				continue
			}
			metric.record(Sample{Value: value, Timestamp: time.Now()})
			m.checkBaseline(metric.name, value)
		}
	}
}

// checkBaseline warns when a reading deviates from its baseline by more than
// the configured regression percentage.
func (m *Monitor) checkBaseline(name string, value float64) {
	m.mu.Lock()
	baseline, ok := m.baselines[name]
	m.mu.Unlock()
	if !ok || baseline.RegressionPercent <= 0 || baseline.Expected == 0 {
		return
	}

	deviation := (value - baseline.Expected) / baseline.Expected * 100
	if deviation < 0 {
		deviation = -deviation
	}
	if deviation > baseline.RegressionPercent {
		if m.regressions != nil {
			m.regressions.WithLabelValues(name).Inc()
		}
		m.logger.WithFields(logrus.Fields{
			"metric":    name,
			"value":     value,
			"expected":  baseline.Expected,
			"deviation": fmt.Sprintf("%.1f%%", deviation),
		}).Warn("Metric regressed past baseline")
	}
}

// Snapshot returns the current state of every registered metric.
func (m *Monitor) Snapshot() map[string]MetricState {
	m.mu.Lock()
	metrics := make([]*monitoredMetric, 0, len(m.metrics))
	for _, metric := range m.metrics {
		metrics = append(metrics, metric)
	}
	m.mu.Unlock()

	out := make(map[string]MetricState, len(metrics))
	for _, metric := range metrics {
		out[metric.name] = metric.snapshot()
	}
	return out
}

// SetupCoreMetricsMonitoring registers the standard metric set for the given
// components: cache hit rate, latency and operation count when the cache
// reports metrics, limiter processing time and block rate when the limiter
// reports metrics, and process heap and CPU time unconditionally.
func SetupCoreMetricsMonitoring(monitor *Monitor, set components.Set, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	if reporter, ok := set.Cache.(components.CacheMetricsReporter); ok {
		if err := monitor.RegisterMetric("cache_hit_rate", interval, func() (float64, error) {
			return reporter.CacheMetrics().HitRate, nil
		}); err != nil {
			return err
		}
		if err := monitor.RegisterMetric("cache_response_time_ms", interval, func() (float64, error) {
			return float64(reporter.CacheMetrics().AvgResponseTime.Microseconds()) / 1000, nil
		}); err != nil {
			return err
		}
		if err := monitor.RegisterMetric("cache_operations_total", interval, func() (float64, error) {
			return float64(reporter.CacheMetrics().Operations), nil
		}); err != nil {
			return err
		}
		monitor.SetBaseline(Baseline{Metric: "cache_hit_rate", Expected: 0.8, RegressionPercent: 20})
		monitor.SetBaseline(Baseline{Metric: "cache_response_time_ms", Expected: 1, P95Threshold: 2, RegressionPercent: 100})
	}

	if reporter, ok := set.RateLimiter.(components.LimiterMetricsReporter); ok {
		if err := monitor.RegisterMetric("ratelimit_processing_time_ms", interval, func() (float64, error) {
			return float64(reporter.LimiterMetrics().AvgProcessingTime.Microseconds()) / 1000, nil
		}); err != nil {
			return err
		}
		if err := monitor.RegisterMetric("ratelimit_block_rate", interval, func() (float64, error) {
			return reporter.LimiterMetrics().BlockRate, nil
		}); err != nil {
			return err
		}
		monitor.SetBaseline(Baseline{Metric: "ratelimit_processing_time_ms", Expected: 5, RegressionPercent: 100})
	}

	if err := monitor.RegisterMetric("process_heap_mb", interval, func() (float64, error) {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		return float64(stats.HeapAlloc) / (1 << 20), nil
	}); err != nil {
		return err
	}

	if err := monitor.RegisterMetric("process_cpu_seconds", interval, func() (float64, error) {
		proc, err := procfs.Self()
		if err != nil {
			return 0, fmt.Errorf("read self proc: %w", err)
		}
		stat, err := proc.Stat()
		if err != nil {
			return 0, fmt.Errorf("read proc stat: %w", err)
		}
		return stat.CPUTime(), nil
	}); err != nil {
		return err
	}

	return nil
}
