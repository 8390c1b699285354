package loadsim

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
)

// Simulator executes operations under controlled concurrency and reduces the
// per-call outcomes into LoadTestResults.
type Simulator struct {
	logger *logrus.Logger
	tracer trace.Tracer
}

// NewSimulator creates a load simulator.
func NewSimulator(logger *logrus.Logger) *Simulator {
	return &Simulator{
		logger: logger,
		tracer: otel.Tracer("load_simulator"),
	}
}

// SimulateLoad runs op totalRequests times in sequential batches of at most
// concurrency concurrent calls, pausing batchDelay between batches when set.
// Operation failures are recorded as failed RequestResults and never abort the
// run; the returned results are always complete.
func (s *Simulator) SimulateLoad(ctx context.Context, totalRequests, concurrency int, op Operation, batchDelay time.Duration) (*LoadTestResults, error) {
	if totalRequests <= 0 {
		return nil, fmt.Errorf("total requests must be positive, got %d", totalRequests)
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	if op == nil {
		return nil, fmt.Errorf("operation must not be nil")
	}

	ctx, span := s.tracer.Start(ctx, "simulate_load")
	defer span.End()

	span.SetAttributes(
		attribute.Int("total_requests", totalRequests),
		attribute.Int("concurrency", concurrency),
	)

	s.logger.WithFields(logrus.Fields{
		"total_requests": totalRequests,
		"concurrency":    concurrency,
		"batch_delay":    batchDelay,
	}).Info("Starting load simulation")

	results := make([]RequestResult, totalRequests)
	start := time.Now()

	for offset := 0; offset < totalRequests; offset += concurrency {
		batchEnd := offset + concurrency
		if batchEnd > totalRequests {
			batchEnd = totalRequests
		}

		var wg sync.WaitGroup
		for i := offset; i < batchEnd; i++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				results[slot] = runTimed(ctx, op)
			}(i)
		}
		wg.Wait()

		if batchDelay > 0 && batchEnd < totalRequests {
			time.Sleep(batchDelay)
		}
	}

	elapsed := time.Since(start)
	aggregated := Reduce(results, elapsed)

	s.logger.WithFields(logrus.Fields{
		"total_requests": aggregated.TotalRequests,
		"success_rate":   aggregated.SuccessRate,
		"rps":            aggregated.RequestsPerSecond,
		"p95":            aggregated.Percentiles.P95,
	}).Info("Load simulation completed")

	return aggregated, nil
}

// RunSuite executes each scenario in turn (never concurrently with each other)
// and folds the per-scenario results into suite-level totals.
func (s *Simulator) RunSuite(ctx context.Context, name string, scenarios []LoadTestScenario) (*LoadTestSuite, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("suite %q has no scenarios", name)
	}

	ctx, span := s.tracer.Start(ctx, "run_load_suite")
	defer span.End()

	span.SetAttributes(
		attribute.String("suite", name),
		attribute.Int("scenarios", len(scenarios)),
	)

	suite := &LoadTestSuite{
		ID:        uuid.NewString(),
		Name:      name,
		StartTime: time.Now(),
		Scenarios: make([]ScenarioResult, 0, len(scenarios)),
	}

	for _, scenario := range scenarios {
		s.logger.WithFields(logrus.Fields{
			"suite":    name,
			"scenario": scenario.Name,
		}).Info("Running scenario")

		results, err := s.SimulateLoad(ctx, scenario.TotalRequests, scenario.Concurrency, scenario.Operation, scenario.BatchDelay)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}

		suite.Scenarios = append(suite.Scenarios, ScenarioResult{
			Name:        scenario.Name,
			Description: scenario.Description,
			Results:     *results,
		})
	}

	suite.EndTime = time.Now()
	suite.Duration = suite.EndTime.Sub(suite.StartTime)
	suite.Summary = summarize(suite.Scenarios)

	s.logger.WithFields(logrus.Fields{
		"suite":            name,
		"scenarios":        suite.Summary.TotalScenarios,
		"avg_success_rate": suite.Summary.AvgSuccessRate,
	}).Info("Load suite completed")

	return suite, nil
}

func runTimed(ctx context.Context, op Operation) RequestResult {
	start := time.Now()
	err := op(ctx)
	result := RequestResult{
		Success:  err == nil,
		Duration: time.Since(start),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// Reduce folds per-request outcomes into aggregate results over the given
// wall-clock window.
func Reduce(results []RequestResult, elapsed time.Duration) *LoadTestResults {
	aggregated := &LoadTestResults{
		TotalRequests: len(results),
		TotalDuration: elapsed,
	}

	durations := make([]time.Duration, 0, len(results))
	var totalResponse time.Duration
	for _, r := range results {
		if r.Success {
			aggregated.SuccessfulRequests++
		} else {
			aggregated.FailedRequests++
		}
		durations = append(durations, r.Duration)
		totalResponse += r.Duration
	}

	if len(results) > 0 {
		aggregated.AvgResponseTime = totalResponse / time.Duration(len(results))
		aggregated.SuccessRate = float64(aggregated.SuccessfulRequests) / float64(aggregated.TotalRequests) * 100
	}
	if elapsed > 0 {
		aggregated.RequestsPerSecond = float64(aggregated.TotalRequests) / elapsed.Seconds()
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	aggregated.Percentiles = Percentiles{
		P50: Percentile(durations, 50),
		P90: Percentile(durations, 90),
		P95: Percentile(durations, 95),
		P99: Percentile(durations, 99),
	}

	return aggregated
}

// Percentile returns the pth percentile of sorted durations, indexing at
// ceil(p/100*n)-1. It returns zero for an empty sample.
func Percentile(sorted []time.Duration, p float64) time.Duration {
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

func summarize(scenarios []ScenarioResult) SuiteSummary {
	summary := SuiteSummary{TotalScenarios: len(scenarios)}
	if len(scenarios) == 0 {
		return summary
	}

	var successRateSum float64
	var responseSum time.Duration
	for _, sc := range scenarios {
		summary.TotalRequests += sc.Results.TotalRequests
		successRateSum += sc.Results.SuccessRate
		responseSum += sc.Results.AvgResponseTime
	}
	summary.AvgSuccessRate = successRateSum / float64(len(scenarios))
	summary.AvgResponseTime = responseSum / time.Duration(len(scenarios))
	return summary
}
