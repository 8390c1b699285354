package benchmark

import (
	"time"
)

// Category groups benchmarks by the component they exercise.
type Category string

const (
	CategoryCache       Category = "cache"
	CategoryRateLimit   Category = "rate_limit"
	CategoryLogging     Category = "logging"
	CategoryValidation  Category = "validation"
	CategoryIntegration Category = "integration"
	CategoryMemory      Category = "memory"
)

// ResultType distinguishes the shape of a result within a category.
type ResultType string

const (
	TypePerformance ResultType = "performance"
	TypeConcurrent  ResultType = "concurrent"
	TypeMemory      ResultType = "memory"
	TypeComparison  ResultType = "comparison"
	TypeSkipped     ResultType = "skipped"
)

// LatencyStats summarizes per-operation latency for one benchmark.
type LatencyStats struct {
	Mean time.Duration `json:"mean"`
	Min  time.Duration `json:"min"`
	Max  time.Duration `json:"max"`
	P50  time.Duration `json:"p50"`
	P90  time.Duration `json:"p90"`
	P95  time.Duration `json:"p95"`
	P99  time.Duration `json:"p99"`
}

// PayloadKind tags the extra-data union attached to specialized results.
type PayloadKind string

const (
	PayloadNone                PayloadKind = ""
	PayloadMemorySweep         PayloadKind = "memory_sweep"
	PayloadAlgorithmComparison PayloadKind = "algorithm_comparison"
	PayloadLargeValueSweep     PayloadKind = "large_value_sweep"
)

// MemoryBenchmarkPoint captures heap deltas for one payload size or key count
// in a memory sweep.
type MemoryBenchmarkPoint struct {
	PayloadSize    int   `json:"payload_size,omitempty"`
	Entries        int   `json:"entries"`
	HeapUsedDelta  int64 `json:"heap_used_delta"`
	HeapTotalDelta int64 `json:"heap_total_delta"`
	ExternalDelta  int64 `json:"external_delta"`
}

// MemorySweepPayload is the extra data of a memory-sweep result.
type MemorySweepPayload struct {
	Points []MemoryBenchmarkPoint `json:"points"`
}

// AlgorithmComparisonPayload carries per-algorithm mean latencies.
type AlgorithmComparisonPayload struct {
	MeanLatency map[string]time.Duration `json:"mean_latency"`
}

// LargeValuePoint is one payload-size measurement in a large-value sweep.
type LargeValuePoint struct {
	PayloadSize int           `json:"payload_size"`
	SetLatency  time.Duration `json:"set_latency"`
	GetLatency  time.Duration `json:"get_latency"`
}

// LargeValueSweepPayload is the extra data of a large-value latency sweep.
type LargeValueSweepPayload struct {
	Points []LargeValuePoint `json:"points"`
}

// ResultPayload is a tagged union of the specialized result shapes. Exactly
// one of the pointer fields matching Kind is set.
type ResultPayload struct {
	Kind                PayloadKind                 `json:"kind"`
	MemorySweep         *MemorySweepPayload         `json:"memory_sweep,omitempty"`
	AlgorithmComparison *AlgorithmComparisonPayload `json:"algorithm_comparison,omitempty"`
	LargeValueSweep     *LargeValueSweepPayload     `json:"large_value_sweep,omitempty"`
}

// BenchmarkResult is the outcome of one benchmark in a suite.
type BenchmarkResult struct {
	Name         string         `json:"name"`
	Category     Category       `json:"category"`
	Type         ResultType     `json:"type"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	Duration     time.Duration  `json:"duration"`
	Iterations   int            `json:"iterations"`
	OpsPerSecond float64        `json:"ops_per_second"`
	Latency      *LatencyStats  `json:"latency,omitempty"`
	Concurrency  int            `json:"concurrency,omitempty"`
	Payload      *ResultPayload `json:"payload,omitempty"`
	Success      bool           `json:"success"`
	Failures     int            `json:"failures,omitempty"`
	Error        string         `json:"error,omitempty"`
	SkipReason   string         `json:"skip_reason,omitempty"`
}

// CategoryStats aggregates the successful results within one category.
type CategoryStats struct {
	Tests           int           `json:"tests"`
	AvgOpsPerSecond float64       `json:"avg_ops_per_second"`
	AvgLatency      time.Duration `json:"avg_latency"`
	TotalIterations int           `json:"total_iterations"`
}

// BenchmarkSummary rolls up a completed suite.
type BenchmarkSummary struct {
	TotalTests      int                        `json:"total_tests"`
	SuccessfulTests int                        `json:"successful_tests"`
	FailedTests     int                        `json:"failed_tests"`
	SkippedTests    int                        `json:"skipped_tests"`
	Categories      map[Category]CategoryStats `json:"categories"`
}

// ProcessMemory is the runtime and resident memory of this process at capture
// time. Deltas in memory sweeps use the same heap accounting.
type ProcessMemory struct {
	HeapUsed  uint64 `json:"heap_used"`
	HeapTotal uint64 `json:"heap_total"`
	External  uint64 `json:"external"`
	Resident  uint64 `json:"resident,omitempty"`
}

// EnvironmentInfo snapshots the host and runtime a suite ran on.
type EnvironmentInfo struct {
	GoVersion   string        `json:"go_version"`
	OS          string        `json:"os"`
	Arch        string        `json:"arch"`
	CPUs        int           `json:"cpus"`
	TotalMemory uint64        `json:"total_memory,omitempty"`
	FreeMemory  uint64        `json:"free_memory,omitempty"`
	Process     ProcessMemory `json:"process"`
}

// BenchmarkSuite is the serializable report of one full run.
type BenchmarkSuite struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Duration    time.Duration     `json:"duration"`
	Results     []BenchmarkResult `json:"results"`
	Summary     BenchmarkSummary  `json:"summary"`
	Environment EnvironmentInfo   `json:"environment"`
	Config      Config            `json:"config"`
}

// CategoryConfig tunes one battery. Zero values fall back to defaults at the
// point of use.
type CategoryConfig struct {
	Iterations  int `mapstructure:"iterations" json:"iterations,omitempty"`
	Warmup      int `mapstructure:"warmup" json:"warmup,omitempty"`
	Concurrency int `mapstructure:"concurrency" json:"concurrency,omitempty"`
}

// Config tunes a benchmark run. All fields are optional.
type Config struct {
	Cache       CategoryConfig `mapstructure:"cache" json:"cache,omitempty"`
	RateLimit   CategoryConfig `mapstructure:"rate_limit" json:"rate_limit,omitempty"`
	Logging     CategoryConfig `mapstructure:"logging" json:"logging,omitempty"`
	Validation  CategoryConfig `mapstructure:"validation" json:"validation,omitempty"`
	Integration CategoryConfig `mapstructure:"integration" json:"integration,omitempty"`
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
