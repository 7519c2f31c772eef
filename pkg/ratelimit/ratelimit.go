// Package ratelimit implements the four pluggable client-side rate-limiting
// strategies described by the request governance core: pass-through, fixed
// token bucket, adaptive AIMD token bucket, and congestion-aware
// concurrency control driven by Little's Law.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of an Acquire call.
type Result int

const (
	// Acquired means a permit was obtained; Wait reports how long the
	// caller must sleep before issuing the request.
	Acquired Result = iota
	// Timeout means no permit could be obtained within MaxWaitTime.
	// The limiter's state is left byte-identical to before the call.
	Timeout
)

// AcquireResult is returned by Limiter.Acquire.
type AcquireResult struct {
	Result Result
	Wait   time.Duration
}

// Limiter is implemented by all four rate-limiting strategies.
type Limiter interface {
	// Acquire attempts to obtain one permit as of now. A non-zero Wait
	// must be honored by the caller before the request is issued.
	Acquire(ctx context.Context, now time.Time) AcquireResult

	// OnSuccess is a feedback hook invoked after a 2xx response.
	OnSuccess()

	// OnRateLimited is a feedback hook invoked after a 429 response.
	OnRateLimited()

	// RecordLatency records observed request latency. Only ever called
	// for successful responses (see congestion-aware EMA rationale).
	RecordLatency(d time.Duration)

	// ReleaseConcurrency pairs with every Acquired result; must be called
	// exactly once per acquisition, regardless of outcome. Idempotent and
	// tolerant of over-release.
	ReleaseConcurrency()

	// EffectiveRate reports the limiter's current ceiling, for observability.
	EffectiveRate() float64
}

// Strategy names the rate-limiting algorithm to use.
type Strategy string

const (
	StrategyNone             Strategy = "none"
	StrategyTokenBucket      Strategy = "token_bucket"
	StrategyAdaptive         Strategy = "adaptive"
	StrategyCongestionAware  Strategy = "congestion_aware"
)

// New is the factory that selects a Limiter implementation by strategy tag.
// This is the systems-language replacement for the source's runtime
// dispatch: a tagged sum plus a small interface, no reflection.
func New(strategy Strategy, cfg Config) Limiter {
	switch strategy {
	case StrategyNone:
		return NewPassThrough()
	case StrategyTokenBucket:
		return NewTokenBucket(cfg)
	case StrategyAdaptive:
		return NewAdaptive(cfg)
	case StrategyCongestionAware:
		return NewCongestionAware(cfg)
	default:
		panic("ratelimit: unknown strategy " + string(strategy))
	}
}
