package components

import (
	"context"
	"time"
)

// Cache is the cache-like capability consumed by the harness.
type Cache interface {
	// Get retrieves a value; the second return reports whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error
}

// BatchCache is an optional capability for multi-key operations. Components opt
// in by implementing it; batteries that need it skip when the assertion fails.
type BatchCache interface {
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
}

// CacheMetrics is a point-in-time view of a cache's own counters.
type CacheMetrics struct {
	HitRate         float64       `json:"hit_rate"`
	Operations      int64         `json:"operations"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// CacheMetricsReporter is an optional capability used by continuous monitoring.
type CacheMetricsReporter interface {
	CacheMetrics() CacheMetrics
}

// Algorithm names a rate-limiting algorithm for comparison batteries.
type Algorithm string

const (
	AlgorithmSlidingWindow Algorithm = "sliding_window"
	AlgorithmTokenBucket   Algorithm = "token_bucket"
	AlgorithmFixedWindow   Algorithm = "fixed_window"
)

// Algorithms lists the algorithms the comparison battery exercises.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmSlidingWindow, AlgorithmTokenBucket, AlgorithmFixedWindow}
}

// RateLimitDecision is the outcome of a single rate-limit check.
type RateLimitDecision struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"retry_after"`
}

// RateLimiter is the rate-limiter-like capability consumed by the harness.
type RateLimiter interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}

// AlgorithmSelector is an optional capability for limiters that implement more
// than one algorithm; the comparison battery skips without it.
type AlgorithmSelector interface {
	HitWithAlgorithm(ctx context.Context, key string, limit int, window time.Duration, algorithm Algorithm) (RateLimitDecision, error)
}

// LimiterMetrics is a point-in-time view of a limiter's own counters.
type LimiterMetrics struct {
	BlockRate         float64       `json:"block_rate"`
	AvgProcessingTime time.Duration `json:"avg_processing_time"`
}

// LimiterMetricsReporter is an optional capability used by continuous monitoring.
type LimiterMetricsReporter interface {
	LimiterMetrics() LimiterMetrics
}

// Fields carries structured log payload data.
type Fields map[string]interface{}

// EventLogger is the logger-like capability consumed by the harness.
type EventLogger interface {
	Info(message string, fields Fields)
	Warn(message string, fields Fields)
}

// ContextLogger is an optional capability for scoped structured context; the
// context-propagation battery falls back to inline fields without it.
type ContextLogger interface {
	WithContext(fields Fields, fn func(EventLogger))
}

// Validator is the validator-like capability consumed by the harness.
type Validator interface {
	Validate(ctx context.Context, schema string, data interface{}) (interface{}, error)
	ValidateBatch(ctx context.Context, schema string, data []interface{}) ([]interface{}, error)
}

// SchemaRegistrar is an optional capability for validators with an explicit
// schema compilation step.
type SchemaRegistrar interface {
	RegisterSchema(name string, rules map[string]string) error
}

// Set bundles the optional component handles a benchmark or scenario run
// targets. A nil field means the component is absent and its batteries are
// skipped entirely.
type Set struct {
	Cache       Cache
	RateLimiter RateLimiter
	Logger      EventLogger
	Validator   Validator
}

// Present returns the names of the non-nil components, in battery order.
func (s Set) Present() []string {
	names := make([]string, 0, 4)
	if s.Cache != nil {
		names = append(names, "cache")
	}
	if s.RateLimiter != nil {
		names = append(names, "rate_limiter")
	}
	if s.Logger != nil {
		names = append(names, "logger")
	}
	if s.Validator != nil {
		names = append(names, "validator")
	}
	return names
}

// Count returns the number of present components.
func (s Set) Count() int {
	return len(s.Present())
}
