package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rafaelpontezup/stkai-go/pkg/jitter"
)

// adaptive implements the AIMD token bucket of spec §4.2.2: acquisition
// mirrors the fixed bucket, but effectiveMax replaces maxRequests in the
// refill computation and evolves with success/rate-limited feedback.
type adaptive struct {
	mu sync.Mutex

	maxRequests float64
	timeWindow  float64
	maxWait     float64
	hasMaxWait  bool

	minRateFloor   float64
	penaltyFactor  float64
	recoveryFactor float64

	effectiveMax float64
	minEffective float64
	tokens       float64
	lastRefill   time.Time
	hasRefill    bool

	jitter *jitter.Source
}

// NewAdaptive constructs an AIMD token bucket from cfg.
func NewAdaptive(cfg Config) Limiter {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return newAdaptiveWithFingerprint(cfg, 0)
}

func newAdaptiveWithFingerprint(cfg Config, fingerprint int64) *adaptive {
	return &adaptive{
		maxRequests:    float64(cfg.MaxRequests),
		timeWindow:     cfg.TimeWindow,
		maxWait:        cfg.MaxWaitTime,
		hasMaxWait:     cfg.HasMaxWait,
		minRateFloor:   cfg.MinRateFloor,
		penaltyFactor:  cfg.PenaltyFactor,
		recoveryFactor: cfg.RecoveryFactor,
		effectiveMax:   float64(cfg.MaxRequests),
		minEffective:   float64(cfg.MaxRequests) * cfg.MinRateFloor,
		tokens:         float64(cfg.MaxRequests),
		jitter:         jitter.NewWithFingerprint(cfg.JitterFactor, fingerprint),
	}
}

func (a *adaptive) Acquire(_ context.Context, now time.Time) AcquireResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquireLocked(now)
}

func (a *adaptive) acquireLocked(now time.Time) AcquireResult {
	prevTokens, prevRefill, prevHasRefill := a.tokens, a.lastRefill, a.hasRefill
	if !a.hasRefill {
		a.lastRefill = now
		a.hasRefill = true
	}

	refillRate := a.effectiveMax / a.timeWindow
	elapsed := now.Sub(a.lastRefill).Seconds()
	if elapsed > 0 {
		a.tokens = min(a.effectiveMax, a.tokens+elapsed*refillRate)
	}
	a.lastRefill = now

	if a.tokens >= 1.0 {
		a.tokens--
		return AcquireResult{Result: Acquired, Wait: 0}
	}

	waitSeconds := (1.0 - a.tokens) / refillRate
	jittered := jitter.SleepDuration(
		time.Duration(waitSeconds*float64(time.Second)), a.jitter.Factor())

	if a.hasMaxWait && jittered.Seconds() > a.maxWait {
		a.tokens, a.lastRefill, a.hasRefill = prevTokens, prevRefill, prevHasRefill
		return AcquireResult{Result: Timeout}
	}

	a.tokens--
	return AcquireResult{Result: Acquired, Wait: jittered}
}

// OnSuccess applies additive increase: effectiveMax grows toward
// maxRequests, jittered to desynchronize peer processes.
func (a *adaptive) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	recovery := a.maxRequests * a.recoveryFactor * a.jitter.Next()
	a.effectiveMax = min(a.maxRequests, a.effectiveMax+recovery)
}

// OnRateLimited applies multiplicative decrease, floored at minEffective,
// then re-clamps tokens to preserve the tokens <= effectiveMax invariant.
func (a *adaptive) OnRateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()

	jitteredPenalty := a.penaltyFactor * a.jitter.Next()
	a.effectiveMax = max(a.minEffective, a.effectiveMax*(1.0-jitteredPenalty))
	a.tokens = min(a.tokens, a.effectiveMax)
}

func (a *adaptive) RecordLatency(time.Duration) {}
func (a *adaptive) ReleaseConcurrency()          {}

func (a *adaptive) EffectiveRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.effectiveMax
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
