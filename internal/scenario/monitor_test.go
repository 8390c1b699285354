package scenario

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enterprise/corebench/internal/components"
)

func TestMonitor_SamplesAndSnapshot(t *testing.T) {
	monitor := NewMonitor(quietLogger())

	var calls int64
	err := monitor.RegisterMetric("counter", 5*time.Millisecond, func() (float64, error) {
		return float64(atomic.AddInt64(&calls, 1)), nil
	})
	require.NoError(t, err)

	require.NoError(t, monitor.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	monitor.Stop()

	state := monitor.Snapshot()["counter"]
	assert.NotEmpty(t, state.Samples)
	assert.Greater(t, state.Latest, 0.0)
}

func TestMonitor_DuplicateMetricRejected(t *testing.T) {
	monitor := NewMonitor(quietLogger())
	require.NoError(t, monitor.RegisterMetric("dup", time.Second, func() (float64, error) { return 0, nil }))
	assert.Error(t, monitor.RegisterMetric("dup", time.Second, func() (float64, error) { return 0, nil }))
}

func TestMonitor_InvalidRegistration(t *testing.T) {
	monitor := NewMonitor(quietLogger())
	assert.Error(t, monitor.RegisterMetric("", time.Second, nil))
	assert.Error(t, monitor.RegisterMetric("bad", 0, nil))
}

func TestMonitor_DoubleStartRejected(t *testing.T) {
	monitor := NewMonitor(quietLogger())
	require.NoError(t, monitor.Start(context.Background()))
	assert.Error(t, monitor.Start(context.Background()))
	monitor.Stop()
}

func TestMonitor_StopIdempotent(t *testing.T) {
	monitor := NewMonitor(quietLogger())
	require.NoError(t, monitor.Start(context.Background()))
	monitor.Stop()
	monitor.Stop()
}

func TestMonitor_RegressionCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	monitor := NewMonitor(quietLogger(), WithRegressionCounter(registry))

	require.NoError(t, monitor.RegisterMetric("hit_rate", 5*time.Millisecond, func() (float64, error) {
		return 0.1, nil
	}))
	monitor.SetBaseline(Baseline{Metric: "hit_rate", Expected: 0.9, RegressionPercent: 10})

	require.NoError(t, monitor.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	monitor.Stop()

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "corebench_baseline_regressions_total", families[0].GetName())
	assert.Greater(t, families[0].GetMetric()[0].GetCounter().GetValue(), 0.0)
}

func TestSetupCoreMetricsMonitoring(t *testing.T) {
	monitor := NewMonitor(quietLogger())
	set := components.Set{
		Cache:       components.NewMemoryCache(),
		RateLimiter: components.NewMemoryRateLimiter(),
	}
	require.NoError(t, SetupCoreMetricsMonitoring(monitor, set, 5*time.Millisecond))

	require.NoError(t, monitor.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	monitor.Stop()

	snapshot := monitor.Snapshot()
	assert.Contains(t, snapshot, "cache_hit_rate")
	assert.Contains(t, snapshot, "cache_response_time_ms")
	assert.Contains(t, snapshot, "cache_operations_total")
	assert.Contains(t, snapshot, "ratelimit_processing_time_ms")
	assert.Contains(t, snapshot, "ratelimit_block_rate")
	assert.Contains(t, snapshot, "process_heap_mb")
	assert.Contains(t, snapshot, "process_cpu_seconds")
	assert.NotEmpty(t, snapshot["process_heap_mb"].Samples)
}

func TestSetupCoreMetricsMonitoring_EmptySetStillTracksProcess(t *testing.T) {
	monitor := NewMonitor(quietLogger())
	require.NoError(t, SetupCoreMetricsMonitoring(monitor, components.Set{}, time.Second))
	assert.Contains(t, monitor.Snapshot(), "process_heap_mb")
	assert.Contains(t, monitor.Snapshot(), "process_cpu_seconds")
	assert.NotContains(t, monitor.Snapshot(), "cache_hit_rate")
}
