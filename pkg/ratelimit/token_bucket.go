package ratelimit

import (
	"context"
	"sync"
	"time"
)

// tokenBucket is the classical fixed-rate token bucket of spec §4.2.1.
// Capacity is MaxRequests, refill rate is MaxRequests/TimeWindow per
// second. All mutable state lives behind mu; no blocking operation occurs
// while mu is held — the critical section only computes a wait duration.
type tokenBucket struct {
	mu sync.Mutex

	maxRequests float64
	timeWindow  float64
	maxWait     float64
	hasMaxWait  bool

	tokens     float64
	lastRefill time.Time
	hasRefill  bool

	// nowFunc is set to time.Now at construction; Acquire does not read
	// it and takes the current time from its now argument instead.
	nowFunc func() time.Time
}

// NewTokenBucket constructs a fixed token bucket from cfg.
func NewTokenBucket(cfg Config) Limiter {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return &tokenBucket{
		maxRequests: float64(cfg.MaxRequests),
		timeWindow:  cfg.TimeWindow,
		maxWait:     cfg.MaxWaitTime,
		hasMaxWait:  cfg.HasMaxWait,
		tokens:      float64(cfg.MaxRequests),
		nowFunc:     time.Now,
	}
}

func (b *tokenBucket) Acquire(_ context.Context, now time.Time) AcquireResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	prevTokens, prevRefill, prevHasRefill := b.tokens, b.lastRefill, b.hasRefill
	if !b.hasRefill {
		b.lastRefill = now
		b.hasRefill = true
	}

	refillRate := b.maxRequests / b.timeWindow
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.maxRequests, b.tokens+elapsed*refillRate)
	}
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens--
		return AcquireResult{Result: Acquired, Wait: 0}
	}

	waitSeconds := (1.0 - b.tokens) / refillRate
	if b.hasMaxWait && waitSeconds > b.maxWait {
		// Timeout is pure: the refill applied above is rolled back so
		// the bucket is left exactly as it was before the call.
		b.tokens, b.lastRefill, b.hasRefill = prevTokens, prevRefill, prevHasRefill
		return AcquireResult{Result: Timeout}
	}

	// Reserve the token now, permitting a negative "debt" balance. This
	// lets many concurrent callers serialize into a queue without moving
	// lastRefill into the future, which would corrupt refill arithmetic
	// for other callers sharing this bucket. Unlike the adaptive variant,
	// the plain bucket does not jitter this wait — jitter only matters
	// where AIMD steps need desynchronizing across peer processes.
	b.tokens--
	return AcquireResult{Result: Acquired, Wait: time.Duration(waitSeconds * float64(time.Second))}
}

func (b *tokenBucket) OnSuccess()     {}
func (b *tokenBucket) OnRateLimited() {}

func (b *tokenBucket) RecordLatency(time.Duration) {}
func (b *tokenBucket) ReleaseConcurrency()          {}

func (b *tokenBucket) EffectiveRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxRequests
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
