package benchmark

import (
	"context"
	"fmt"

	"github.com/enterprise/corebench/internal/components"
)

// runLoggerBattery exercises a structured logger: single entries, burst
// writes, concurrent writes, deeply structured payloads, and scoped context
// propagation when the logger supports it.
func (r *Runner) runLoggerBattery(ctx context.Context, logger components.EventLogger, notify func(string)) ([]BenchmarkResult, error) {
	cfg := r.cfg.Logging
	iterations := orDefault(cfg.Iterations, 10000)
	warmup := orDefault(cfg.Warmup, 100)
	concurrency := orDefault(cfg.Concurrency, 50)

	var results []BenchmarkResult

	notify("logging_single_entry")
	results = append(results, r.runBenchmark(ctx, "logging_single_entry", CategoryLogging, iterations, warmup, func(ctx context.Context, i int) error {
		logger.Info("benchmark entry", components.Fields{"iteration": i})
		return nil
	}))

	notify("logging_burst")
	results = append(results, r.runBenchmark(ctx, "logging_burst", CategoryLogging, iterations/100, warmup/10, func(ctx context.Context, i int) error {
		for j := 0; j < 100; j++ {
			logger.Info("burst entry", components.Fields{"batch": i, "seq": j})
		}
		return nil
	}))

	notify("logging_concurrent")
	results = append(results, r.runConcurrentBenchmark(ctx, "logging_concurrent", CategoryLogging, iterations, concurrency, func(ctx context.Context, i int) error {
		logger.Info("concurrent entry", components.Fields{"iteration": i})
		return nil
	}))

	notify("logging_structured_payload")
	results = append(results, r.runBenchmark(ctx, "logging_structured_payload", CategoryLogging, iterations, warmup, func(ctx context.Context, i int) error {
		logger.Info("structured entry", components.Fields{
			"request": components.Fields{
				"id":     fmt.Sprintf("req-%d", i),
				"method": "GET",
				"path":   "/api/resource",
			},
			"response": components.Fields{
				"status":  200,
				"elapsed": i % 100,
			},
			"tags": []string{"benchmark", "structured"},
		})
		return nil
	}))

	notify("logging_context_propagation")
	if scoped, ok := logger.(components.ContextLogger); ok {
		results = append(results, r.runBenchmark(ctx, "logging_context_propagation", CategoryLogging, iterations, warmup, func(ctx context.Context, i int) error {
			scoped.WithContext(components.Fields{"trace_id": fmt.Sprintf("trace-%d", i)}, func(inner components.EventLogger) {
				inner.Info("scoped entry", components.Fields{"step": "start"})
				inner.Info("scoped entry", components.Fields{"step": "end"})
			})
			return nil
		}))
	} else {
		// Fall back to inlining the scope fields on each entry.
		results = append(results, r.runBenchmark(ctx, "logging_context_propagation", CategoryLogging, iterations, warmup, func(ctx context.Context, i int) error {
			trace := fmt.Sprintf("trace-%d", i)
			logger.Info("scoped entry", components.Fields{"trace_id": trace, "step": "start"})
			logger.Info("scoped entry", components.Fields{"trace_id": trace, "step": "end"})
			return nil
		}))
	}

	return results, nil
}
