package scenario

import (
	"fmt"
	"time"

	"github.com/enterprise/corebench/internal/benchmark"
)

// AnalysisSummary condenses the suite counts the analysis was computed from.
type AnalysisSummary struct {
	TotalTests      int     `json:"total_tests"`
	SuccessfulTests int     `json:"successful_tests"`
	FailedTests     int     `json:"failed_tests"`
	AvgOpsPerSecond float64 `json:"avg_ops_per_second"`
}

// PerformanceAnalysis is the scored assessment of one benchmark suite. Score
// is deterministic: 100 minus 20 per critical issue and 5 per warning,
// floored at zero.
type PerformanceAnalysis struct {
	SuiteID         string          `json:"suite_id"`
	Score           int             `json:"score"`
	CriticalIssues  []string        `json:"critical_issues"`
	Warnings        []string        `json:"warnings"`
	Recommendations []string        `json:"recommendations"`
	Summary         AnalysisSummary `json:"summary"`
}

const (
	cacheThroughputFloor   = 5000
	limiterThroughputFloor = 2000
	loggingThroughputFloor = 5000
	cacheGetLatencyCeiling = time.Millisecond
	heapDeltaCeiling       = 500 << 20
)

// AnalyzeResults inspects a completed suite against fixed thresholds and
// produces a scored analysis.
func AnalyzeResults(suite *benchmark.BenchmarkSuite) *PerformanceAnalysis {
	analysis := &PerformanceAnalysis{
		SuiteID:         suite.ID,
		CriticalIssues:  []string{},
		Warnings:        []string{},
		Recommendations: []string{},
	}

	var opsTotal float64
	var opsTests int
	for _, res := range suite.Results {
		if res.Type == benchmark.TypeSkipped {
			continue
		}
		analysis.Summary.TotalTests++
		if !res.Success {
			analysis.Summary.FailedTests++
			analysis.CriticalIssues = append(analysis.CriticalIssues,
				fmt.Sprintf("%s failed: %s", res.Name, res.Error))
			continue
		}
		analysis.Summary.SuccessfulTests++
		if res.OpsPerSecond > 0 {
			opsTotal += res.OpsPerSecond
			opsTests++
		}
	}
	if opsTests > 0 {
		analysis.Summary.AvgOpsPerSecond = opsTotal / float64(opsTests)
	}

	if stats, ok := suite.Summary.Categories[benchmark.CategoryCache]; ok {
		if stats.AvgOpsPerSecond < cacheThroughputFloor {
			analysis.CriticalIssues = append(analysis.CriticalIssues,
				fmt.Sprintf("cache throughput %.0f ops/s below floor %d", stats.AvgOpsPerSecond, cacheThroughputFloor))
			analysis.Recommendations = append(analysis.Recommendations,
				"Profile the cache backend; consider batching or a faster serializer")
		}
	}

	for _, res := range suite.Results {
		if res.Name == "cache_get" && res.Success && res.Latency != nil && res.Latency.Mean > cacheGetLatencyCeiling {
			analysis.Warnings = append(analysis.Warnings,
				fmt.Sprintf("cache_get mean latency %s exceeds %s", res.Latency.Mean, cacheGetLatencyCeiling))
			analysis.Recommendations = append(analysis.Recommendations,
				"Check cache network round-trips; co-locate or use a local tier")
		}
	}

	if stats, ok := suite.Summary.Categories[benchmark.CategoryRateLimit]; ok {
		if stats.AvgOpsPerSecond < limiterThroughputFloor {
			analysis.CriticalIssues = append(analysis.CriticalIssues,
				fmt.Sprintf("rate limiter throughput %.0f ops/s below floor %d", stats.AvgOpsPerSecond, limiterThroughputFloor))
			analysis.Recommendations = append(analysis.Recommendations,
				"Reduce per-decision allocations or shard limiter state by key")
		}
	}

	if stats, ok := suite.Summary.Categories[benchmark.CategoryLogging]; ok {
		if stats.AvgOpsPerSecond < loggingThroughputFloor {
			analysis.Warnings = append(analysis.Warnings,
				fmt.Sprintf("logging throughput %.0f ops/s below %d", stats.AvgOpsPerSecond, loggingThroughputFloor))
			analysis.Recommendations = append(analysis.Recommendations,
				"Buffer log writes or lower the sampled field count")
		}
	}

	for _, res := range suite.Results {
		if res.Payload == nil || res.Payload.Kind != benchmark.PayloadMemorySweep || res.Payload.MemorySweep == nil {
			continue
		}
		for _, point := range res.Payload.MemorySweep.Points {
			if point.HeapUsedDelta > heapDeltaCeiling {
				analysis.Warnings = append(analysis.Warnings,
					fmt.Sprintf("%s grew the heap by %dMB at %d entries", res.Name, point.HeapUsedDelta>>20, point.Entries))
				analysis.Recommendations = append(analysis.Recommendations,
					"Cap entry counts or add eviction to bound memory growth")
				break
			}
		}
	}

	analysis.Score = 100 - 20*len(analysis.CriticalIssues) - 5*len(analysis.Warnings)
	if analysis.Score < 0 {
		analysis.Score = 0
	}

	return analysis
}
