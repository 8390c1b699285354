// Package scenario builds ready-to-run load-test scenarios for the supported
// component kinds, watches live component metrics against baselines, and
// scores completed benchmark suites.
package scenario

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/enterprise/corebench/internal/components"
	"github.com/enterprise/corebench/internal/loadsim"
)

// CreateCacheTestScenario builds a mixed read/write cache workload.
func CreateCacheTestScenario(cache components.Cache) loadsim.LoadTestScenario {
	value := []byte(`{"scenario":"cache","payload":"load-test"}`)
	return loadsim.LoadTestScenario{
		Name:          "cache_load",
		Description:   "Mixed cache reads and writes over a bounded key space",
		TotalRequests: 1000,
		Concurrency:   50,
		BatchDelay:    10 * time.Millisecond,
		Operation: func(ctx context.Context) error {
			key := fmt.Sprintf("load:cache:%d", rand.Intn(200))
			if rand.Float64() < 0.7 {
				_, _, err := cache.Get(ctx, key)
				return err
			}
			return cache.Set(ctx, key, value, time.Minute)
		},
	}
}

// CreateRateLimitTestScenario builds a multi-key rate-limit workload. Denied
// decisions are successes; only transport errors fail the request.
func CreateRateLimitTestScenario(limiter components.RateLimiter) loadsim.LoadTestScenario {
	return loadsim.LoadTestScenario{
		Name:          "ratelimit_load",
		Description:   "Rate-limit decisions spread across a rotating key space",
		TotalRequests: 1000,
		Concurrency:   50,
		BatchDelay:    10 * time.Millisecond,
		Operation: func(ctx context.Context) error {
			key := fmt.Sprintf("load:limit:%d", rand.Intn(100))
			_, err := limiter.Hit(ctx, key, 500, time.Minute)
			return err
		},
	}
}

// CreateLoggingTestScenario builds a structured logging workload.
func CreateLoggingTestScenario(logger components.EventLogger) loadsim.LoadTestScenario {
	return loadsim.LoadTestScenario{
		Name:          "logging_load",
		Description:   "Structured log entries with varying field payloads",
		TotalRequests: 1000,
		Concurrency:   50,
		BatchDelay:    10 * time.Millisecond,
		Operation: func(ctx context.Context) error {
			logger.Info("load test entry", components.Fields{
				"request_id": rand.Intn(100000),
				"latency_ms": rand.Intn(250),
				"route":      fmt.Sprintf("/api/resource/%d", rand.Intn(10)),
			})
			return nil
		},
	}
}

// CreateValidationTestScenario builds a record validation workload. The
// scenario registers its schema up front when the validator supports it.
func CreateValidationTestScenario(v components.Validator) loadsim.LoadTestScenario {
	if registrar, ok := v.(components.SchemaRegistrar); ok {
		// Registration errors surface on first use as unknown-schema failures.
		_ = registrar.RegisterSchema("load_record", map[string]string{
			"name":  "required,min=2",
			"email": "required,email",
			"age":   "gte=0,lte=150",
		})
	}
	return loadsim.LoadTestScenario{
		Name:          "validation_load",
		Description:   "Record validation against a registered schema",
		TotalRequests: 1000,
		Concurrency:   50,
		BatchDelay:    10 * time.Millisecond,
		Operation: func(ctx context.Context) error {
			record := map[string]interface{}{
				"name":  fmt.Sprintf("user-%d", rand.Intn(1000)),
				"email": fmt.Sprintf("user%d@example.com", rand.Intn(1000)),
				"age":   rand.Intn(100),
			}
			_, err := v.Validate(ctx, "load_record", record)
			return err
		},
	}
}

// CreateComprehensiveTestSuite builds one scenario per present component,
// plus a cross-component integration scenario when more than one component is
// registered.
func CreateComprehensiveTestSuite(set components.Set) []loadsim.LoadTestScenario {
	var scenarios []loadsim.LoadTestScenario
	if set.Cache != nil {
		scenarios = append(scenarios, CreateCacheTestScenario(set.Cache))
	}
	if set.RateLimiter != nil {
		scenarios = append(scenarios, CreateRateLimitTestScenario(set.RateLimiter))
	}
	if set.Logger != nil {
		scenarios = append(scenarios, CreateLoggingTestScenario(set.Logger))
	}
	if set.Validator != nil {
		scenarios = append(scenarios, CreateValidationTestScenario(set.Validator))
	}
	if set.Count() > 1 {
		scenarios = append(scenarios, createIntegrationScenario(set))
	}
	return scenarios
}

// createIntegrationScenario chains whichever components are present into one
// request path. A denied rate-limit decision short-circuits the request as a
// success.
func createIntegrationScenario(set components.Set) loadsim.LoadTestScenario {
	value := []byte(`{"scenario":"integration"}`)
	if registrar, ok := set.Validator.(components.SchemaRegistrar); ok {
		_ = registrar.RegisterSchema("load_record", map[string]string{
			"name":  "required,min=2",
			"email": "required,email",
			"age":   "gte=0,lte=150",
		})
	}
	return loadsim.LoadTestScenario{
		Name:          "integration_load",
		Description:   "Request path chaining the registered components",
		TotalRequests: 1000,
		Concurrency:   25,
		BatchDelay:    20 * time.Millisecond,
		Operation: func(ctx context.Context) error {
			if set.RateLimiter != nil {
				decision, err := set.RateLimiter.Hit(ctx, fmt.Sprintf("load:integration:%d", rand.Intn(50)), 2000, time.Minute)
				if err != nil {
					return err
				}
				if !decision.Allowed {
					return nil
				}
			}
			if set.Validator != nil {
				record := map[string]interface{}{
					"name":  "integration user",
					"email": "integration@example.com",
					"age":   40,
				}
				if _, err := set.Validator.Validate(ctx, "load_record", record); err != nil {
					return err
				}
			}
			if set.Cache != nil {
				key := fmt.Sprintf("load:integration:data:%d", rand.Intn(100))
				if _, found, err := set.Cache.Get(ctx, key); err != nil {
					return err
				} else if !found {
					if err := set.Cache.Set(ctx, key, value, time.Minute); err != nil {
						return err
					}
				}
			}
			if set.Logger != nil {
				set.Logger.Info("integration request", components.Fields{"path": "full"})
			}
			return nil
		},
	}
}
