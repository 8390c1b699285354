package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/enterprise/corebench/internal/components"
)

var limiterKeySweep = []int{100, 1000, 10000, 50000}

// runRateLimitBattery exercises a rate limiter: single-key decisions, a
// high-concurrency burst, a spread multi-key workload, a per-algorithm
// latency comparison, and per-key state growth.
func (r *Runner) runRateLimitBattery(ctx context.Context, limiter components.RateLimiter, notify func(string)) ([]BenchmarkResult, error) {
	cfg := r.cfg.RateLimit
	iterations := orDefault(cfg.Iterations, 10000)
	warmup := orDefault(cfg.Warmup, 100)
	concurrency := orDefault(cfg.Concurrency, 100)

	var results []BenchmarkResult

	notify("ratelimit_single_key")
	results = append(results, r.runBenchmark(ctx, "ratelimit_single_key", CategoryRateLimit, iterations, warmup, func(ctx context.Context, i int) error {
		_, err := limiter.Hit(ctx, "bench:single", iterations*2, time.Minute)
		return err
	}))

	notify("ratelimit_burst")
	results = append(results, r.runConcurrentBenchmark(ctx, "ratelimit_burst", CategoryRateLimit, iterations, concurrency, func(ctx context.Context, i int) error {
		_, err := limiter.Hit(ctx, "bench:burst", iterations*2, time.Minute)
		return err
	}))

	notify("ratelimit_multi_key")
	results = append(results, r.runConcurrentBenchmark(ctx, "ratelimit_multi_key", CategoryRateLimit, iterations, concurrency, func(ctx context.Context, i int) error {
		_, err := limiter.Hit(ctx, fmt.Sprintf("bench:key:%d", i%1000), 100, time.Minute)
		return err
	}))

	notify("ratelimit_algorithm_comparison")
	if selector, ok := limiter.(components.AlgorithmSelector); ok {
		results = append(results, r.runAlgorithmComparison(ctx, selector, iterations/len(components.Algorithms())))
	} else {
		results = append(results, skippedResult("ratelimit_algorithm_comparison", CategoryRateLimit, "limiter does not support algorithm selection"))
	}

	notify("ratelimit_memory_growth")
	sweep, err := r.runLimiterMemorySweep(ctx, limiter)
	if err != nil {
		return results, err
	}
	results = append(results, sweep)

	return results, nil
}

// runAlgorithmComparison measures mean decision latency per algorithm under
// an identical single-key workload.
func (r *Runner) runAlgorithmComparison(ctx context.Context, selector components.AlgorithmSelector, perAlgorithm int) BenchmarkResult {
	if perAlgorithm < 1 {
		perAlgorithm = 1
	}

	result := BenchmarkResult{
		Name:      "ratelimit_algorithm_comparison",
		Category:  CategoryRateLimit,
		Type:      TypeComparison,
		StartTime: time.Now(),
		Success:   true,
	}

	means := make(map[string]time.Duration, len(components.Algorithms()))
	for _, algorithm := range components.Algorithms() {
		var total time.Duration
		for i := 0; i < perAlgorithm; i++ {
			opStart := time.Now()
			_, err := selector.HitWithAlgorithm(ctx, fmt.Sprintf("bench:algo:%s", algorithm), perAlgorithm*2, time.Minute, algorithm)
			total += time.Since(opStart)
			if err != nil {
				result.Success = false
				result.Error = err.Error()
				return result
			}
			result.Iterations++
		}
		means[string(algorithm)] = total / time.Duration(perAlgorithm)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if result.Duration > 0 {
		result.OpsPerSecond = float64(result.Iterations) / result.Duration.Seconds()
	}
	result.Payload = &ResultPayload{
		Kind:                PayloadAlgorithmComparison,
		AlgorithmComparison: &AlgorithmComparisonPayload{MeanLatency: means},
	}
	return result
}

// runLimiterMemorySweep records heap growth as the tracked key population
// expands.
func (r *Runner) runLimiterMemorySweep(ctx context.Context, limiter components.RateLimiter) (BenchmarkResult, error) {
	result := BenchmarkResult{
		Name:      "ratelimit_memory_growth",
		Category:  CategoryMemory,
		Type:      TypeMemory,
		StartTime: time.Now(),
		Success:   true,
	}

	points := make([]MemoryBenchmarkPoint, 0, len(limiterKeySweep))
	for _, keys := range limiterKeySweep {
		runtime.GC()
		var before runtime.MemStats
		runtime.ReadMemStats(&before)

		for i := 0; i < keys; i++ {
			if _, err := limiter.Hit(ctx, fmt.Sprintf("bench:growth:%d:%d", keys, i), 100, time.Minute); err != nil {
				result.Success = false
				result.Error = err.Error()
				return result, nil
			}
			result.Iterations++
		}

		var after runtime.MemStats
		runtime.ReadMemStats(&after)

		points = append(points, MemoryBenchmarkPoint{
			Entries:        keys,
			HeapUsedDelta:  int64(after.HeapAlloc) - int64(before.HeapAlloc),
			HeapTotalDelta: int64(after.HeapSys) - int64(before.HeapSys),
			ExternalDelta:  (int64(after.Sys) - int64(after.HeapSys)) - (int64(before.Sys) - int64(before.HeapSys)),
		})
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Payload = &ResultPayload{
		Kind:        PayloadMemorySweep,
		MemorySweep: &MemorySweepPayload{Points: points},
	}
	return result, nil
}
