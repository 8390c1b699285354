// Package benchmark runs categorized micro-benchmark batteries against the
// registered components and folds the measurements into a serializable suite
// report.
package benchmark

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/enterprise/corebench/internal/components"
)

// benchFunc executes one iteration of a benchmark.
type benchFunc func(ctx context.Context, iteration int) error

// Runner orchestrates benchmark batteries. Safe for sequential reuse; RunAll
// must not be called concurrently on the same Runner.
type Runner struct {
	logger    *logrus.Logger
	tracer    trace.Tracer
	cfg       Config
	metrics   *Metrics
	mu        sync.Mutex
	listeners []SuiteListener
}

// RunnerOption tunes a Runner.
type RunnerOption func(*Runner)

// WithMetrics attaches prometheus instrumentation to the runner.
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner creates a benchmark runner.
func NewRunner(logger *logrus.Logger, cfg Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: logger,
		tracer: otel.Tracer("benchmark_runner"),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddListener registers a lifecycle observer. Listeners added during a run
// are picked up by the next run.
func (r *Runner) AddListener(listener SuiteListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) snapshotListeners() []SuiteListener {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SuiteListener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

// RunAll executes every battery applicable to the registered components and
// returns the completed suite. A battery error aborts the run after notifying
// listeners; absent optional components produce skipped results, not errors.
func (r *Runner) RunAll(ctx context.Context, set components.Set) (*BenchmarkSuite, error) {
	ctx, span := r.tracer.Start(ctx, "run_all_benchmarks")
	defer span.End()

	suiteID := uuid.NewString()
	listeners := r.snapshotListeners()
	start := time.Now()

	span.SetAttributes(
		attribute.String("suite_id", suiteID),
		attribute.StringSlice("components", set.Present()),
	)

	r.logger.WithFields(logrus.Fields{
		"suite_id":   suiteID,
		"components": set.Present(),
	}).Info("Starting benchmark suite")

	for _, l := range listeners {
		l.SuiteStarted(suiteID)
	}

	var results []BenchmarkResult
	collect := func(battery string, batch []BenchmarkResult, err error) error {
		if err != nil {
			wrapped := fmt.Errorf("%s battery: %w", battery, err)
			for _, l := range listeners {
				l.SuiteFailed(suiteID, wrapped)
			}
			return wrapped
		}
		for _, res := range batch {
			for _, l := range listeners {
				l.BenchmarkCompleted(suiteID, res)
			}
			if r.metrics != nil {
				r.metrics.ObserveResult(res)
			}
			results = append(results, res)
		}
		return nil
	}

	notifyStart := func(name string) {
		for _, l := range listeners {
			l.BenchmarkStarted(suiteID, name)
		}
	}

	if set.Cache != nil {
		batch, err := r.runCacheBattery(ctx, set.Cache, notifyStart)
		if err := collect("cache", batch, err); err != nil {
			return nil, err
		}
	}
	if set.RateLimiter != nil {
		batch, err := r.runRateLimitBattery(ctx, set.RateLimiter, notifyStart)
		if err := collect("rate_limit", batch, err); err != nil {
			return nil, err
		}
	}
	if set.Logger != nil {
		batch, err := r.runLoggerBattery(ctx, set.Logger, notifyStart)
		if err := collect("logging", batch, err); err != nil {
			return nil, err
		}
	}
	if set.Validator != nil {
		batch, err := r.runValidatorBattery(ctx, set.Validator, notifyStart)
		if err := collect("validation", batch, err); err != nil {
			return nil, err
		}
	}
	if set.Count() > 1 {
		batch, err := r.runIntegrationBattery(ctx, set, notifyStart)
		if err := collect("integration", batch, err); err != nil {
			return nil, err
		}
	}

	suite := &BenchmarkSuite{
		ID:          suiteID,
		Timestamp:   start,
		Duration:    time.Since(start),
		Results:     results,
		Summary:     generateSummary(results),
		Environment: CaptureEnvironment(r.logger),
		Config:      r.cfg,
	}

	if r.metrics != nil {
		r.metrics.ObserveSuite(suite)
	}
	for _, l := range listeners {
		l.SuiteCompleted(suiteID, suite)
	}

	r.logger.WithFields(logrus.Fields{
		"suite_id":    suiteID,
		"duration":    suite.Duration,
		"total_tests": suite.Summary.TotalTests,
		"failed":      suite.Summary.FailedTests,
	}).Info("Benchmark suite completed")

	return suite, nil
}

// runBenchmark is the sequential measurement primitive: warmup iterations
// discarded, then timed iterations with per-operation latency samples. An
// iteration error marks the result failed but the remaining iterations still
// run and are timed; only context cancellation cuts the loop short.
func (r *Runner) runBenchmark(ctx context.Context, name string, category Category, iterations, warmup int, fn benchFunc) BenchmarkResult {
	r.logger.WithFields(logrus.Fields{
		"benchmark":  name,
		"iterations": iterations,
	}).Debug("Running benchmark")

	for w := 0; w < warmup; w++ {
		if err := fn(ctx, w); err != nil {
			break
		}
	}

	result := BenchmarkResult{
		Name:       name,
		Category:   category,
		Type:       TypePerformance,
		StartTime:  time.Now(),
		Iterations: iterations,
		Success:    true,
	}

	samples := make([]time.Duration, 0, iterations)
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			result.Success = false
			if result.Error == "" {
				result.Error = err.Error()
			}
			break
		}
		opStart := time.Now()
		err := fn(ctx, i)
		samples = append(samples, time.Since(opStart))
		if err != nil {
			result.Success = false
			result.Failures++
			if result.Error == "" {
				result.Error = err.Error()
			}
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Iterations = len(samples)
	result.Latency = computeLatencyStats(samples)
	if result.Duration > 0 {
		result.OpsPerSecond = float64(len(samples)) / result.Duration.Seconds()
	}
	return result
}

// runConcurrentBenchmark splits floor(iterations/concurrency) iterations per
// worker across concurrency goroutines; each worker records latencies into a
// local slice, flattened after the join. With fewer iterations than workers
// no iterations run at all.
func (r *Runner) runConcurrentBenchmark(ctx context.Context, name string, category Category, iterations, concurrency int, fn benchFunc) BenchmarkResult {
	if concurrency < 1 {
		concurrency = 1
	}
	perWorker := iterations / concurrency

	result := BenchmarkResult{
		Name:        name,
		Category:    category,
		Type:        TypeConcurrent,
		StartTime:   time.Now(),
		Concurrency: concurrency,
		Success:     true,
	}

	workerSamples := make([][]time.Duration, concurrency)
	workerErrs := make([]error, concurrency)
	workerFails := make([]int, concurrency)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			local := make([]time.Duration, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				if err := ctx.Err(); err != nil {
					if workerErrs[worker] == nil {
						workerErrs[worker] = err
					}
					break
				}
				opStart := time.Now()
				err := fn(ctx, worker*perWorker+i)
				local = append(local, time.Since(opStart))
				if err != nil {
					workerFails[worker]++
					if workerErrs[worker] == nil {
						workerErrs[worker] = err
					}
				}
			}
			workerSamples[worker] = local
		}(w)
	}
	wg.Wait()

	var samples []time.Duration
	for _, local := range workerSamples {
		samples = append(samples, local...)
	}
	for _, n := range workerFails {
		result.Failures += n
	}
	for _, err := range workerErrs {
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			break
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Iterations = len(samples)
	result.Latency = computeLatencyStats(samples)
	if result.Duration > 0 {
		result.OpsPerSecond = float64(len(samples)) / result.Duration.Seconds()
	}
	return result
}

// skippedResult records a benchmark that could not run because the component
// lacks an optional capability.
func skippedResult(name string, category Category, reason string) BenchmarkResult {
	now := time.Now()
	return BenchmarkResult{
		Name:       name,
		Category:   category,
		Type:       TypeSkipped,
		StartTime:  now,
		EndTime:    now,
		Success:    false,
		SkipReason: reason,
	}
}

// computeLatencyStats reduces raw samples to summary statistics. Returns nil
// for an empty sample set.
func computeLatencyStats(samples []time.Duration) *LatencyStats {
	if len(samples) == 0 {
		return nil
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, s := range sorted {
		total += s
	}

	return &LatencyStats{
		Mean: total / time.Duration(len(sorted)),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		P50:  percentileOf(sorted, 50),
		P90:  percentileOf(sorted, 90),
		P95:  percentileOf(sorted, 95),
		P99:  percentileOf(sorted, 99),
	}
}

// percentileOf picks the nearest-rank percentile from an ascending slice.
func percentileOf(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// generateSummary folds results into per-category aggregates. Skipped results
// count toward SkippedTests only; failed results are excluded from category
// averages.
func generateSummary(results []BenchmarkResult) BenchmarkSummary {
	summary := BenchmarkSummary{
		TotalTests: len(results),
		Categories: make(map[Category]CategoryStats),
	}

	type acc struct {
		tests      int
		ops        float64
		latency    time.Duration
		latencyN   int
		iterations int
	}
	accs := make(map[Category]*acc)

	for _, res := range results {
		if res.Type == TypeSkipped {
			summary.SkippedTests++
			continue
		}
		if !res.Success {
			summary.FailedTests++
			continue
		}
		summary.SuccessfulTests++

		a := accs[res.Category]
		if a == nil {
			a = &acc{}
			accs[res.Category] = a
		}
		a.tests++
		a.ops += res.OpsPerSecond
		a.iterations += res.Iterations
		if res.Latency != nil {
			a.latency += res.Latency.Mean
			a.latencyN++
		}
	}

	for category, a := range accs {
		stats := CategoryStats{
			Tests:           a.tests,
			TotalIterations: a.iterations,
		}
		if a.tests > 0 {
			stats.AvgOpsPerSecond = a.ops / float64(a.tests)
		}
		if a.latencyN > 0 {
			stats.AvgLatency = a.latency / time.Duration(a.latencyN)
		}
		summary.Categories[category] = stats
	}

	return summary
}
