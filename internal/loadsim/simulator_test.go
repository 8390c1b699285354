package loadsim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestSimulateLoad_Counts(t *testing.T) {
	sim := NewSimulator(testLogger())

	var calls int64
	results, err := sim.SimulateLoad(context.Background(), 100, 10, func(ctx context.Context) error {
		atomic.AddInt64(&calls, 1)
		return nil
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(100), atomic.LoadInt64(&calls))
	assert.Equal(t, 100, results.TotalRequests)
	assert.Equal(t, 100, results.SuccessfulRequests)
	assert.Equal(t, 0, results.FailedRequests)
	assert.Equal(t, 100.0, results.SuccessRate)
	assert.Greater(t, results.RequestsPerSecond, 0.0)
}

func TestSimulateLoad_AllFail(t *testing.T) {
	sim := NewSimulator(testLogger())

	boom := errors.New("boom")
	results, err := sim.SimulateLoad(context.Background(), 40, 8, func(ctx context.Context) error {
		return boom
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, 40, results.TotalRequests)
	assert.Equal(t, 0, results.SuccessfulRequests)
	assert.Equal(t, 40, results.FailedRequests)
	assert.Equal(t, 0.0, results.SuccessRate)
}

func TestSimulateLoad_MixedOutcomes(t *testing.T) {
	sim := NewSimulator(testLogger())

	var n int64
	results, err := sim.SimulateLoad(context.Background(), 100, 10, func(ctx context.Context) error {
		if atomic.AddInt64(&n, 1)%4 == 0 {
			return errors.New("every fourth fails")
		}
		return nil
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, 100, results.TotalRequests)
	assert.Equal(t, 75, results.SuccessfulRequests)
	assert.Equal(t, 25, results.FailedRequests)
	assert.InDelta(t, 75.0, results.SuccessRate, 0.001)
}

func TestSimulateLoad_ConcurrencyBound(t *testing.T) {
	sim := NewSimulator(testLogger())

	var active, peak int64
	var mu sync.Mutex
	_, err := sim.SimulateLoad(context.Background(), 60, 5, func(ctx context.Context) error {
		cur := atomic.AddInt64(&active, 1)
		mu.Lock()
		if cur > peak {
			peak = cur
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&active, -1)
		return nil
	}, 0)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(5))
}

func TestSimulateLoad_InvalidArgs(t *testing.T) {
	sim := NewSimulator(testLogger())
	noop := func(ctx context.Context) error { return nil }

	_, err := sim.SimulateLoad(context.Background(), 0, 5, noop, 0)
	assert.Error(t, err)
	_, err = sim.SimulateLoad(context.Background(), 10, 0, noop, 0)
	assert.Error(t, err)
	_, err = sim.SimulateLoad(context.Background(), 10, 5, nil, 0)
	assert.Error(t, err)
}

func TestSimulateLoad_BatchDelay(t *testing.T) {
	sim := NewSimulator(testLogger())
	noop := func(ctx context.Context) error { return nil }

	start := time.Now()
	_, err := sim.SimulateLoad(context.Background(), 30, 10, noop, 10*time.Millisecond)
	require.NoError(t, err)
	// Three batches, delay after the first two only.
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestReduce_Percentiles(t *testing.T) {
	results := make([]RequestResult, 100)
	for i := range results {
		results[i] = RequestResult{
			Success:  true,
			Duration: time.Duration(i+1) * time.Millisecond,
		}
	}

	reduced := Reduce(results, time.Second)
	require.NotNil(t, reduced)
	assert.Equal(t, 50*time.Millisecond, reduced.Percentiles.P50)
	assert.Equal(t, 90*time.Millisecond, reduced.Percentiles.P90)
	assert.Equal(t, 95*time.Millisecond, reduced.Percentiles.P95)
	assert.Equal(t, 99*time.Millisecond, reduced.Percentiles.P99)
	assert.LessOrEqual(t, reduced.Percentiles.P50, reduced.Percentiles.P90)
	assert.LessOrEqual(t, reduced.Percentiles.P90, reduced.Percentiles.P95)
	assert.LessOrEqual(t, reduced.Percentiles.P95, reduced.Percentiles.P99)
	assert.InDelta(t, 100.0, reduced.RequestsPerSecond, 0.001)
}

func TestPercentile_SmallSamples(t *testing.T) {
	assert.Equal(t, time.Duration(0), Percentile(nil, 95))
	single := []time.Duration{7 * time.Millisecond}
	assert.Equal(t, 7*time.Millisecond, Percentile(single, 50))
	assert.Equal(t, 7*time.Millisecond, Percentile(single, 99))
}

func TestRunSuite_FoldsScenarios(t *testing.T) {
	sim := NewSimulator(testLogger())
	noop := func(ctx context.Context) error { return nil }

	suite, err := sim.RunSuite(context.Background(), "smoke", []LoadTestScenario{
		{Name: "a", TotalRequests: 20, Concurrency: 5, Operation: noop},
		{Name: "b", TotalRequests: 30, Concurrency: 10, Operation: noop},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, suite.ID)
	assert.Equal(t, "smoke", suite.Name)
	require.Len(t, suite.Scenarios, 2)
	assert.Equal(t, 2, suite.Summary.TotalScenarios)
	assert.Equal(t, 50, suite.Summary.TotalRequests)
	assert.InDelta(t, 100.0, suite.Summary.AvgSuccessRate, 0.001)
	assert.True(t, suite.EndTime.After(suite.StartTime) || suite.EndTime.Equal(suite.StartTime))
}

func TestRunSuite_EmptyScenarioList(t *testing.T) {
	sim := NewSimulator(testLogger())
	_, err := sim.RunSuite(context.Background(), "empty", nil)
	assert.Error(t, err)
}
