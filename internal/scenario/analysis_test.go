package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/enterprise/corebench/internal/benchmark"
)

func healthySuite() *benchmark.BenchmarkSuite {
	return &benchmark.BenchmarkSuite{
		ID: "suite-1",
		Results: []benchmark.BenchmarkResult{
			{Name: "cache_get", Category: benchmark.CategoryCache, Success: true, OpsPerSecond: 50000, Latency: &benchmark.LatencyStats{Mean: 20 * time.Microsecond}},
			{Name: "ratelimit_single_key", Category: benchmark.CategoryRateLimit, Success: true, OpsPerSecond: 80000},
			{Name: "logging_single_entry", Category: benchmark.CategoryLogging, Success: true, OpsPerSecond: 90000},
		},
		Summary: benchmark.BenchmarkSummary{
			Categories: map[benchmark.Category]benchmark.CategoryStats{
				benchmark.CategoryCache:     {Tests: 1, AvgOpsPerSecond: 50000},
				benchmark.CategoryRateLimit: {Tests: 1, AvgOpsPerSecond: 80000},
				benchmark.CategoryLogging:   {Tests: 1, AvgOpsPerSecond: 90000},
			},
		},
	}
}

func TestAnalyzeResults_HealthySuiteScores100(t *testing.T) {
	analysis := AnalyzeResults(healthySuite())
	assert.Equal(t, 100, analysis.Score)
	assert.Empty(t, analysis.CriticalIssues)
	assert.Empty(t, analysis.Warnings)
	assert.Equal(t, 3, analysis.Summary.SuccessfulTests)
}

func TestAnalyzeResults_SlowCacheIsCritical(t *testing.T) {
	suite := healthySuite()
	suite.Summary.Categories[benchmark.CategoryCache] = benchmark.CategoryStats{Tests: 1, AvgOpsPerSecond: 900}

	analysis := AnalyzeResults(suite)
	assert.Equal(t, 80, analysis.Score)
	assert.Len(t, analysis.CriticalIssues, 1)
	assert.NotEmpty(t, analysis.Recommendations)
}

func TestAnalyzeResults_SlowGetLatencyIsWarning(t *testing.T) {
	suite := healthySuite()
	suite.Results[0].Latency = &benchmark.LatencyStats{Mean: 3 * time.Millisecond}

	analysis := AnalyzeResults(suite)
	assert.Equal(t, 95, analysis.Score)
	assert.Len(t, analysis.Warnings, 1)
}

func TestAnalyzeResults_FailedBenchmarkIsCritical(t *testing.T) {
	suite := healthySuite()
	suite.Results[1].Success = false
	suite.Results[1].Error = "limiter exploded"

	analysis := AnalyzeResults(suite)
	assert.Equal(t, 80, analysis.Score)
	assert.Equal(t, 1, analysis.Summary.FailedTests)
	assert.Contains(t, analysis.CriticalIssues[0], "limiter exploded")
}

func TestAnalyzeResults_MemorySweepWarning(t *testing.T) {
	suite := healthySuite()
	suite.Results = append(suite.Results, benchmark.BenchmarkResult{
		Name:     "cache_memory_sweep",
		Category: benchmark.CategoryMemory,
		Type:     benchmark.TypeMemory,
		Success:  true,
		Payload: &benchmark.ResultPayload{
			Kind: benchmark.PayloadMemorySweep,
			MemorySweep: &benchmark.MemorySweepPayload{
				Points: []benchmark.MemoryBenchmarkPoint{
					{Entries: 100, HeapUsedDelta: 600 << 20},
				},
			},
		},
	})

	analysis := AnalyzeResults(suite)
	assert.Equal(t, 95, analysis.Score)
	assert.Len(t, analysis.Warnings, 1)
}

func TestAnalyzeResults_ScoreFloorsAtZero(t *testing.T) {
	suite := healthySuite()
	for i := range suite.Results {
		suite.Results[i].Success = false
		suite.Results[i].Error = "down"
	}
	suite.Summary.Categories[benchmark.CategoryCache] = benchmark.CategoryStats{AvgOpsPerSecond: 1}
	suite.Summary.Categories[benchmark.CategoryRateLimit] = benchmark.CategoryStats{AvgOpsPerSecond: 1}
	suite.Summary.Categories[benchmark.CategoryLogging] = benchmark.CategoryStats{AvgOpsPerSecond: 1}

	analysis := AnalyzeResults(suite)
	assert.Equal(t, 0, analysis.Score)
}

func TestAnalyzeResults_SkippedResultsIgnored(t *testing.T) {
	suite := healthySuite()
	suite.Results = append(suite.Results, benchmark.BenchmarkResult{
		Name: "ratelimit_algorithm_comparison",
		Type: benchmark.TypeSkipped, Success: false, SkipReason: "no capability",
	})

	analysis := AnalyzeResults(suite)
	assert.Equal(t, 3, analysis.Summary.TotalTests)
	assert.Equal(t, 100, analysis.Score)
}
