package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/enterprise/corebench/internal/components"
)

// runIntegrationBattery chains components into request-shaped pipelines.
// Pipelines whose components are absent produce skipped results.
func (r *Runner) runIntegrationBattery(ctx context.Context, set components.Set, notify func(string)) ([]BenchmarkResult, error) {
	cfg := r.cfg.Integration
	iterations := orDefault(cfg.Iterations, 5000)
	warmup := orDefault(cfg.Warmup, 50)
	concurrency := orDefault(cfg.Concurrency, 25)

	value := []byte(`{"status":"ok","payload":"integration"}`)

	var results []BenchmarkResult

	notify("integration_full_pipeline")
	if set.RateLimiter != nil && set.Cache != nil && set.Logger != nil {
		results = append(results, r.runConcurrentBenchmark(ctx, "integration_full_pipeline", CategoryIntegration, iterations, concurrency, func(ctx context.Context, i int) error {
			decision, err := set.RateLimiter.Hit(ctx, fmt.Sprintf("pipeline:%d", i%100), iterations*2, time.Minute)
			if err != nil {
				return err
			}
			if !decision.Allowed {
				return nil
			}
			key := fmt.Sprintf("pipeline:data:%d", i%100)
			if _, found, err := set.Cache.Get(ctx, key); err != nil {
				return err
			} else if !found {
				if err := set.Cache.Set(ctx, key, value, time.Minute); err != nil {
					return err
				}
			}
			set.Logger.Info("pipeline request", components.Fields{"key": key})
			return nil
		}))
	} else {
		results = append(results, skippedResult("integration_full_pipeline", CategoryIntegration, "requires rate limiter, cache and logger"))
	}

	notify("integration_cache_validation")
	if set.Cache != nil && set.Validator != nil {
		if registrar, ok := set.Validator.(components.SchemaRegistrar); ok {
			if err := registrar.RegisterSchema("bench_simple", benchSimpleSchema); err != nil {
				return results, fmt.Errorf("register pipeline schema: %w", err)
			}
		}
		record := map[string]interface{}{
			"name":  "pipeline user",
			"email": "pipeline@example.com",
			"age":   29,
		}
		results = append(results, r.runBenchmark(ctx, "integration_cache_validation", CategoryIntegration, iterations, warmup, func(ctx context.Context, i int) error {
			validated, err := set.Validator.Validate(ctx, "bench_simple", record)
			if err != nil {
				return err
			}
			key := fmt.Sprintf("pipeline:valid:%d", i%100)
			if err := set.Cache.Set(ctx, key, value, time.Minute); err != nil {
				return err
			}
			if _, found, err := set.Cache.Get(ctx, key); err != nil {
				return err
			} else if !found {
				return fmt.Errorf("cached record %s missing on read-back", key)
			}
			_, err = set.Validator.Validate(ctx, "bench_simple", validated)
			return err
		}))
	} else {
		results = append(results, skippedResult("integration_cache_validation", CategoryIntegration, "requires cache and validator"))
	}

	notify("integration_ratelimit_logging")
	if set.RateLimiter != nil && set.Logger != nil {
		results = append(results, r.runBenchmark(ctx, "integration_ratelimit_logging", CategoryIntegration, iterations, warmup, func(ctx context.Context, i int) error {
			decision, err := set.RateLimiter.Hit(ctx, "pipeline:audit", iterations*2, time.Minute)
			if err != nil {
				return err
			}
			if decision.Allowed {
				set.Logger.Info("request allowed", components.Fields{"remaining": decision.Remaining})
			} else {
				set.Logger.Warn("request throttled", components.Fields{"retry_after": decision.RetryAfter.String()})
			}
			return nil
		}))
	} else {
		results = append(results, skippedResult("integration_ratelimit_logging", CategoryIntegration, "requires rate limiter and logger"))
	}

	return results, nil
}
