package loadsim

import (
	"context"
	"time"
)

// Operation is one unit of work executed under load. A returned error marks
// the call failed; it is recorded, never propagated.
type Operation func(ctx context.Context) error

// RequestResult is the outcome of a single executed operation.
type RequestResult struct {
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Percentiles holds the standard latency percentile set.
type Percentiles struct {
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// LoadTestResults aggregates one load run.
//
// Invariants: SuccessfulRequests + FailedRequests == TotalRequests and the
// percentile set is monotonically non-decreasing.
type LoadTestResults struct {
	TotalRequests      int           `json:"total_requests"`
	SuccessfulRequests int           `json:"successful_requests"`
	FailedRequests     int           `json:"failed_requests"`
	TotalDuration      time.Duration `json:"total_duration"`
	AvgResponseTime    time.Duration `json:"avg_response_time"`
	Percentiles        Percentiles   `json:"percentiles"`
	SuccessRate        float64       `json:"success_rate"`
	RequestsPerSecond  float64       `json:"requests_per_second"`
}

// LoadTestScenario is a named, immutable unit of load work.
type LoadTestScenario struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	TotalRequests int           `json:"total_requests"`
	Concurrency   int           `json:"concurrency"`
	BatchDelay    time.Duration `json:"batch_delay,omitempty"`
	Operation     Operation     `json:"-"`
}

// ScenarioResult tags one scenario's results with its identity.
type ScenarioResult struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Results     LoadTestResults `json:"results"`
}

// SuiteSummary folds per-scenario results into cross-scenario aggregates.
type SuiteSummary struct {
	TotalScenarios  int           `json:"total_scenarios"`
	TotalRequests   int           `json:"total_requests"`
	AvgSuccessRate  float64       `json:"avg_success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// LoadTestSuite is a named collection of scenario results.
type LoadTestSuite struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Duration  time.Duration    `json:"duration"`
	Scenarios []ScenarioResult `json:"scenarios"`
	Summary   SuiteSummary     `json:"summary"`
}
