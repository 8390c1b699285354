package components

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// MemoryRateLimiter is an in-process limiter implementing sliding-window,
// fixed-window and token-bucket algorithms over per-key state. It is the
// default rate-limiter target for benchmarks and the fixture for tests.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	sliding map[string][]time.Time
	fixed   map[string]*fixedWindow
	buckets map[string]*rate.Limiter

	hits       int64
	blocked    int64
	totalNanos int64
}

type fixedWindow struct {
	start time.Time
	count int
}

// NewMemoryRateLimiter creates a limiter with no existing key state.
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		sliding: make(map[string][]time.Time),
		fixed:   make(map[string]*fixedWindow),
		buckets: make(map[string]*rate.Limiter),
	}
}

// Hit checks the key against the limit using the sliding-window algorithm.
func (l *MemoryRateLimiter) Hit(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error) {
	return l.HitWithAlgorithm(ctx, key, limit, window, AlgorithmSlidingWindow)
}

// HitWithAlgorithm checks the key against the limit using the named algorithm.
func (l *MemoryRateLimiter) HitWithAlgorithm(ctx context.Context, key string, limit int, window time.Duration, algorithm Algorithm) (RateLimitDecision, error) {
	start := time.Now()
	defer func() {
		atomic.AddInt64(&l.hits, 1)
		atomic.AddInt64(&l.totalNanos, int64(time.Since(start)))
	}()

	var decision RateLimitDecision
	var err error

	switch algorithm {
	case AlgorithmSlidingWindow:
		decision = l.hitSlidingWindow(key, limit, window)
	case AlgorithmFixedWindow:
		decision = l.hitFixedWindow(key, limit, window)
	case AlgorithmTokenBucket:
		decision = l.hitTokenBucket(key, limit, window)
	default:
		err = fmt.Errorf("unknown rate limit algorithm: %s", algorithm)
	}
	if err != nil {
		return RateLimitDecision{}, err
	}

	if !decision.Allowed {
		atomic.AddInt64(&l.blocked, 1)
	}
	return decision, nil
}

func (l *MemoryRateLimiter) hitSlidingWindow(key string, limit int, window time.Duration) RateLimitDecision {
	now := time.Now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.sliding[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		l.sliding[key] = kept
		return RateLimitDecision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: kept[0].Add(window).Sub(now),
		}
	}

	l.sliding[key] = append(kept, now)
	return RateLimitDecision{Allowed: true, Remaining: limit - len(kept) - 1}
}

func (l *MemoryRateLimiter) hitFixedWindow(key string, limit int, window time.Duration) RateLimitDecision {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	fw := l.fixed[key]
	if fw == nil || now.Sub(fw.start) >= window {
		fw = &fixedWindow{start: now}
		l.fixed[key] = fw
	}

	if fw.count >= limit {
		return RateLimitDecision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: fw.start.Add(window).Sub(now),
		}
	}

	fw.count++
	return RateLimitDecision{Allowed: true, Remaining: limit - fw.count}
}

func (l *MemoryRateLimiter) hitTokenBucket(key string, limit int, window time.Duration) RateLimitDecision {
	l.mu.Lock()
	bucket := l.buckets[key]
	if bucket == nil {
		// Refill at limit tokens per window with a burst of the full limit.
		bucket = rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	if !bucket.Allow() {
		return RateLimitDecision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: window / time.Duration(limit),
		}
	}
	return RateLimitDecision{Allowed: true, Remaining: int(bucket.Tokens())}
}

// KeyCount returns the number of keys with sliding-window state, used by the
// memory-growth battery to confirm state creation.
func (l *MemoryRateLimiter) KeyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sliding) + len(l.fixed) + len(l.buckets)
}

// Reset drops all per-key state.
func (l *MemoryRateLimiter) Reset() {
	l.mu.Lock()
	l.sliding = make(map[string][]time.Time)
	l.fixed = make(map[string]*fixedWindow)
	l.buckets = make(map[string]*rate.Limiter)
	l.mu.Unlock()
}

// LimiterMetrics reports block rate and mean processing time.
func (l *MemoryRateLimiter) LimiterMetrics() LimiterMetrics {
	hits := atomic.LoadInt64(&l.hits)
	blocked := atomic.LoadInt64(&l.blocked)
	totalNanos := atomic.LoadInt64(&l.totalNanos)

	metrics := LimiterMetrics{}
	if hits > 0 {
		metrics.BlockRate = float64(blocked) / float64(hits)
		metrics.AvgProcessingTime = time.Duration(totalNanos / hits)
	}
	return metrics
}
