// Package chaos implements deliberate, time-boxed fault simulation: latency
// windows, probabilistic error bursts, and resource-exhaustion strategies.
// Resource percentages are approximate; the strategies create pressure, they
// do not pin exact utilization numbers.
package chaos

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrInjected marks an error deliberately raised by the error-injection phase.
// Callers exercising resilience paths match it with errors.Is.
var ErrInjected = errors.New("injected failure")

// PatternKind tags the variant of a failure pattern.
type PatternKind int

const (
	PatternLatency PatternKind = iota
	PatternError
	PatternResource
)

func (k PatternKind) String() string {
	switch k {
	case PatternLatency:
		return "latency"
	case PatternError:
		return "error"
	case PatternResource:
		return "resource"
	default:
		return "unknown"
	}
}

// ResourceKind selects a resource-exhaustion strategy.
type ResourceKind int

const (
	ResourceMemory ResourceKind = iota
	ResourceCPU
	ResourceConnections
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceMemory:
		return "memory"
	case ResourceCPU:
		return "cpu"
	case ResourceConnections:
		return "connections"
	default:
		return "unknown"
	}
}

// FailurePattern describes one synthetic fault to execute. Consumed once per
// injection run, never persisted.
type FailurePattern struct {
	Kind          PatternKind   `json:"kind"`
	Magnitude     time.Duration `json:"magnitude,omitempty"`
	Rate          float64       `json:"rate,omitempty"`
	Resource      ResourceKind  `json:"resource,omitempty"`
	TargetPercent float64       `json:"target_percent,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// LatencyOptions configures a network-latency injection window.
type LatencyOptions struct {
	Delay    time.Duration `json:"delay"`
	Duration time.Duration `json:"duration"`
}

// ErrorRateOptions configures a probabilistic error-burst window. Percentage is
// the per-poll probability in [0,1].
type ErrorRateOptions struct {
	Percentage float64       `json:"percentage"`
	Duration   time.Duration `json:"duration"`
}

// ResourceOptions configures a resource-exhaustion window. TargetPercent is
// interpreted per strategy: percentage of current heap for memory, duty cycle
// for cpu, percentage of MaxConnections for connections.
type ResourceOptions struct {
	Resource       ResourceKind  `json:"resource"`
	TargetPercent  float64       `json:"target_percent"`
	Duration       time.Duration `json:"duration"`
	MaxConnections int           `json:"max_connections,omitempty"`
}

// Options selects which failure patterns an injection run executes.
type Options struct {
	NetworkLatency     *LatencyOptions   `json:"network_latency,omitempty"`
	ErrorRate          *ErrorRateOptions `json:"error_rate,omitempty"`
	ResourceExhaustion *ResourceOptions  `json:"resource_exhaustion,omitempty"`
	DelayBetween       time.Duration     `json:"delay_between,omitempty"`
}

// Injector executes failure patterns sequentially.
type Injector struct {
	logger       *logrus.Logger
	tracer       trace.Tracer
	pollInterval time.Duration
	allocChunk   int
	rng          *rand.Rand
	mu           sync.Mutex
}

// Option tunes an Injector.
type Option func(*Injector)

// WithPollInterval overrides the error-injection poll granularity. The default
// is 100ms; tests shrink it to keep windows short.
func WithPollInterval(interval time.Duration) Option {
	return func(i *Injector) {
		if interval > 0 {
			i.pollInterval = interval
		}
	}
}

// WithAllocChunk overrides the buffer size used by the memory strategy.
func WithAllocChunk(bytes int) Option {
	return func(i *Injector) {
		if bytes > 0 {
			i.allocChunk = bytes
		}
	}
}

// NewInjector creates an injector with default poll granularity.
func NewInjector(logger *logrus.Logger, opts ...Option) *Injector {
	inj := &Injector{
		logger:       logger,
		tracer:       otel.Tracer("chaos_injector"),
		pollInterval: 100 * time.Millisecond,
		allocChunk:   1 << 20, // 1MB
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(inj)
	}
	return inj
}

// InjectFailures builds the failure patterns selected by opts and executes
// them sequentially, honoring DelayBetween. An error from the error-injection
// phase is the mechanism under test and propagates to the caller.
func (i *Injector) InjectFailures(ctx context.Context, opts Options) error {
	ctx, span := i.tracer.Start(ctx, "inject_failures")
	defer span.End()

	patterns := buildPatterns(opts)
	if len(patterns) == 0 {
		return fmt.Errorf("no failure patterns configured")
	}

	span.SetAttributes(attribute.Int("patterns", len(patterns)))

	for idx, pattern := range patterns {
		i.logger.WithFields(logrus.Fields{
			"pattern":  pattern.Kind.String(),
			"duration": pattern.Duration,
		}).Info("Executing failure pattern")

		if err := i.execute(ctx, pattern, opts); err != nil {
			return err
		}

		if opts.DelayBetween > 0 && idx < len(patterns)-1 {
			time.Sleep(opts.DelayBetween)
		}
	}

	return nil
}

func buildPatterns(opts Options) []FailurePattern {
	patterns := make([]FailurePattern, 0, 3)
	if opts.NetworkLatency != nil {
		patterns = append(patterns, FailurePattern{
			Kind:      PatternLatency,
			Magnitude: opts.NetworkLatency.Delay,
			Duration:  opts.NetworkLatency.Duration,
		})
	}
	if opts.ErrorRate != nil {
		patterns = append(patterns, FailurePattern{
			Kind:     PatternError,
			Rate:     opts.ErrorRate.Percentage,
			Duration: opts.ErrorRate.Duration,
		})
	}
	if opts.ResourceExhaustion != nil {
		patterns = append(patterns, FailurePattern{
			Kind:          PatternResource,
			Resource:      opts.ResourceExhaustion.Resource,
			TargetPercent: opts.ResourceExhaustion.TargetPercent,
			Duration:      opts.ResourceExhaustion.Duration,
		})
	}
	return patterns
}

func (i *Injector) execute(ctx context.Context, pattern FailurePattern, opts Options) error {
	switch pattern.Kind {
	case PatternLatency:
		return i.injectLatency(ctx, pattern)
	case PatternError:
		return i.injectErrors(ctx, pattern)
	case PatternResource:
		maxConns := 0
		if opts.ResourceExhaustion != nil {
			maxConns = opts.ResourceExhaustion.MaxConnections
		}
		return i.exhaustResource(ctx, pattern, maxConns)
	default:
		return fmt.Errorf("unknown failure pattern kind: %d", pattern.Kind)
	}
}

// injectLatency repeatedly sleeps for the configured magnitude until the
// window elapses.
func (i *Injector) injectLatency(ctx context.Context, pattern FailurePattern) error {
	deadline := time.Now().Add(pattern.Duration)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pattern.Magnitude):
		}
	}
	return nil
}

// injectErrors polls at the configured interval and probabilistically raises
// ErrInjected inside the window.
func (i *Injector) injectErrors(ctx context.Context, pattern FailurePattern) error {
	deadline := time.Now().Add(pattern.Duration)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(i.pollInterval):
		}

		i.mu.Lock()
		roll := i.rng.Float64()
		i.mu.Unlock()

		if roll < pattern.Rate {
			i.logger.WithField("rate", pattern.Rate).Warn("Raising injected error")
			return fmt.Errorf("error injection at rate %.2f: %w", pattern.Rate, ErrInjected)
		}
	}
	return nil
}

func (i *Injector) exhaustResource(ctx context.Context, pattern FailurePattern, maxConns int) error {
	i.logger.WithFields(logrus.Fields{
		"resource":       pattern.Resource.String(),
		"target_percent": pattern.TargetPercent,
	}).Info("Simulating resource exhaustion")

	switch pattern.Resource {
	case ResourceMemory:
		return i.exhaustMemory(ctx, pattern)
	case ResourceCPU:
		return i.exhaustCPU(ctx, pattern)
	case ResourceConnections:
		return i.exhaustConnections(ctx, pattern, maxConns)
	default:
		return fmt.Errorf("unknown resource kind: %d", pattern.Resource)
	}
}

// exhaustMemory allocates fixed-size buffers until the byte target, a
// percentage of the heap in use at start, is reached, then holds them for the
// remainder of the window.
func (i *Injector) exhaustMemory(ctx context.Context, pattern FailurePattern) error {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	target := uint64(float64(stats.HeapAlloc) * pattern.TargetPercent / 100)
	deadline := time.Now().Add(pattern.Duration)

	var held [][]byte
	var allocated uint64
	for allocated < target && time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf := make([]byte, i.allocChunk)
		// Touch the pages so the allocation is real.
		for j := 0; j < len(buf); j += 4096 {
			buf[j] = 1
		}
		held = append(held, buf)
		allocated += uint64(i.allocChunk)
	}

	i.logger.WithFields(logrus.Fields{
		"allocated_bytes": allocated,
		"target_bytes":    target,
	}).Debug("Memory pressure established")

	if remaining := time.Until(deadline); remaining > 0 {
		select {
		case <-ctx.Done():
			held = nil
			return ctx.Err()
		case <-time.After(remaining):
		}
	}

	held = nil
	runtime.GC()
	return nil
}

// exhaustCPU alternates a tight compute loop and a sleep; the fraction of each
// slice spent computing equals the target percentage.
func (i *Injector) exhaustCPU(ctx context.Context, pattern FailurePattern) error {
	const slice = 100 * time.Millisecond
	busy := time.Duration(float64(slice) * pattern.TargetPercent / 100)
	idle := slice - busy

	deadline := time.Now().Add(pattern.Duration)
	sink := 0.0
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}

		busyUntil := time.Now().Add(busy)
		for time.Now().Before(busyUntil) {
			sink += math.Sqrt(float64(time.Now().UnixNano() % 1024))
		}
		if idle > 0 {
			time.Sleep(idle)
		}
	}

	_ = sink
	return nil
}

// exhaustConnections parks a batch of goroutines, each holding a simulated
// connection for the full window, and waits for all of them.
func (i *Injector) exhaustConnections(ctx context.Context, pattern FailurePattern, maxConns int) error {
	if maxConns <= 0 {
		maxConns = 1000
	}
	count := int(float64(maxConns) * pattern.TargetPercent / 100)
	if count <= 0 {
		count = 1
	}

	i.logger.WithField("connections", count).Debug("Holding simulated connections")

	var wg sync.WaitGroup
	for c := 0; c < count; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-ctx.Done():
			case <-time.After(pattern.Duration):
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}
