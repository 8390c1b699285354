package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/enterprise/corebench/internal/components"
)

var cacheSweepSizes = []int{1 << 10, 10 << 10, 100 << 10, 1 << 20, 10 << 20}

// runCacheBattery exercises a cache component: single operations, batch
// operations when the cache supports them, concurrent access, a payload-size
// memory sweep, and a large-value latency sweep.
func (r *Runner) runCacheBattery(ctx context.Context, cache components.Cache, notify func(string)) ([]BenchmarkResult, error) {
	cfg := r.cfg.Cache
	iterations := orDefault(cfg.Iterations, 10000)
	warmup := orDefault(cfg.Warmup, 100)
	concurrency := orDefault(cfg.Concurrency, 50)

	value := make([]byte, 256)
	rand.Read(value)

	var results []BenchmarkResult

	notify("cache_set")
	results = append(results, r.runBenchmark(ctx, "cache_set", CategoryCache, iterations, warmup, func(ctx context.Context, i int) error {
		return cache.Set(ctx, fmt.Sprintf("bench:set:%d", i), value, time.Minute)
	}))

	notify("cache_get")
	// Populate a working set so reads mostly hit.
	for i := 0; i < 1000; i++ {
		if err := cache.Set(ctx, fmt.Sprintf("bench:get:%d", i), value, time.Minute); err != nil {
			return results, fmt.Errorf("cache get prefill: %w", err)
		}
	}
	results = append(results, r.runBenchmark(ctx, "cache_get", CategoryCache, iterations, warmup, func(ctx context.Context, i int) error {
		_, _, err := cache.Get(ctx, fmt.Sprintf("bench:get:%d", i%1000))
		return err
	}))

	notify("cache_delete")
	results = append(results, r.runBenchmark(ctx, "cache_delete", CategoryCache, iterations, warmup, func(ctx context.Context, i int) error {
		key := fmt.Sprintf("bench:del:%d", i)
		if err := cache.Set(ctx, key, value, time.Minute); err != nil {
			return err
		}
		return cache.Delete(ctx, key)
	}))

	if batch, ok := cache.(components.BatchCache); ok {
		keys := make([]string, 100)
		pairs := make(map[string][]byte, 100)
		for i := range keys {
			keys[i] = fmt.Sprintf("bench:batch:%d", i)
			pairs[keys[i]] = value
		}

		notify("cache_batch_set")
		results = append(results, r.runBenchmark(ctx, "cache_batch_set", CategoryCache, iterations/10, warmup, func(ctx context.Context, i int) error {
			return batch.MSet(ctx, pairs, time.Minute)
		}))

		notify("cache_batch_get")
		results = append(results, r.runBenchmark(ctx, "cache_batch_get", CategoryCache, iterations/10, warmup, func(ctx context.Context, i int) error {
			_, err := batch.MGet(ctx, keys)
			return err
		}))
	} else {
		results = append(results,
			skippedResult("cache_batch_set", CategoryCache, "cache does not support batch operations"),
			skippedResult("cache_batch_get", CategoryCache, "cache does not support batch operations"))
	}

	notify("cache_concurrent_read")
	results = append(results, r.runConcurrentBenchmark(ctx, "cache_concurrent_read", CategoryCache, iterations, concurrency, func(ctx context.Context, i int) error {
		_, _, err := cache.Get(ctx, fmt.Sprintf("bench:get:%d", i%1000))
		return err
	}))

	notify("cache_concurrent_write")
	results = append(results, r.runConcurrentBenchmark(ctx, "cache_concurrent_write", CategoryCache, iterations, concurrency, func(ctx context.Context, i int) error {
		return cache.Set(ctx, fmt.Sprintf("bench:cw:%d", i), value, time.Minute)
	}))

	notify("cache_mixed_ops")
	results = append(results, r.runConcurrentBenchmark(ctx, "cache_mixed_ops", CategoryCache, iterations, concurrency, func(ctx context.Context, i int) error {
		key := fmt.Sprintf("bench:mixed:%d", i%500)
		switch i % 10 {
		case 0:
			return cache.Delete(ctx, key)
		case 1, 2, 3:
			return cache.Set(ctx, key, value, time.Minute)
		default:
			_, _, err := cache.Get(ctx, key)
			return err
		}
	}))

	notify("cache_memory_sweep")
	sweep, err := r.runCacheMemorySweep(ctx, cache)
	if err != nil {
		return results, err
	}
	results = append(results, sweep)

	notify("cache_large_value_latency")
	large, err := r.runLargeValueSweep(ctx, cache)
	if err != nil {
		return results, err
	}
	results = append(results, large)

	return results, nil
}

// runCacheMemorySweep stores entries at each payload size and records heap
// growth between forced collections. The entry count shrinks for large
// payloads to keep the sweep within a fixed byte budget.
func (r *Runner) runCacheMemorySweep(ctx context.Context, cache components.Cache) (BenchmarkResult, error) {
	const sweepBudget = 64 << 20

	result := BenchmarkResult{
		Name:      "cache_memory_sweep",
		Category:  CategoryMemory,
		Type:      TypeMemory,
		StartTime: time.Now(),
		Success:   true,
	}

	points := make([]MemoryBenchmarkPoint, 0, len(cacheSweepSizes))
	for _, size := range cacheSweepSizes {
		entries := sweepBudget / size
		if entries > 100 {
			entries = 100
		}
		if entries < 2 {
			entries = 2
		}

		payload := make([]byte, size)
		rand.Read(payload)

		runtime.GC()
		var before runtime.MemStats
		runtime.ReadMemStats(&before)

		for i := 0; i < entries; i++ {
			if err := cache.Set(ctx, fmt.Sprintf("bench:mem:%d:%d", size, i), payload, time.Minute); err != nil {
				result.Success = false
				result.Error = err.Error()
				return result, nil
			}
			result.Iterations++
		}

		var after runtime.MemStats
		runtime.ReadMemStats(&after)

		points = append(points, MemoryBenchmarkPoint{
			PayloadSize:    size,
			Entries:        entries,
			HeapUsedDelta:  int64(after.HeapAlloc) - int64(before.HeapAlloc),
			HeapTotalDelta: int64(after.HeapSys) - int64(before.HeapSys),
			ExternalDelta:  (int64(after.Sys) - int64(after.HeapSys)) - (int64(before.Sys) - int64(before.HeapSys)),
		})

		for i := 0; i < entries; i++ {
			if err := cache.Delete(ctx, fmt.Sprintf("bench:mem:%d:%d", size, i)); err != nil {
				return result, fmt.Errorf("memory sweep cleanup: %w", err)
			}
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Payload = &ResultPayload{
		Kind:        PayloadMemorySweep,
		MemorySweep: &MemorySweepPayload{Points: points},
	}
	return result, nil
}

// runLargeValueSweep measures single set/get round-trip latency per payload
// size.
func (r *Runner) runLargeValueSweep(ctx context.Context, cache components.Cache) (BenchmarkResult, error) {
	result := BenchmarkResult{
		Name:      "cache_large_value_latency",
		Category:  CategoryCache,
		Type:      TypeComparison,
		StartTime: time.Now(),
		Success:   true,
	}

	points := make([]LargeValuePoint, 0, len(cacheSweepSizes))
	for _, size := range cacheSweepSizes {
		payload := make([]byte, size)
		rand.Read(payload)
		key := fmt.Sprintf("bench:large:%d", size)

		setStart := time.Now()
		if err := cache.Set(ctx, key, payload, time.Minute); err != nil {
			result.Success = false
			result.Error = err.Error()
			return result, nil
		}
		setLatency := time.Since(setStart)

		getStart := time.Now()
		if _, _, err := cache.Get(ctx, key); err != nil {
			result.Success = false
			result.Error = err.Error()
			return result, nil
		}
		getLatency := time.Since(getStart)

		if err := cache.Delete(ctx, key); err != nil {
			return result, fmt.Errorf("large value cleanup: %w", err)
		}

		points = append(points, LargeValuePoint{
			PayloadSize: size,
			SetLatency:  setLatency,
			GetLatency:  getLatency,
		})
		result.Iterations++
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Payload = &ResultPayload{
		Kind:            PayloadLargeValueSweep,
		LargeValueSweep: &LargeValueSweepPayload{Points: points},
	}
	return result, nil
}
