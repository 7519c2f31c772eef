package ratelimit

import (
	"context"
	"time"
)

// passThrough is a no-op limiter: every Acquire call succeeds immediately.
// Used as the "none" strategy, primarily as the negative baseline in
// scenario S2 (no limiter, high contention).
type passThrough struct{}

// NewPassThrough returns a Limiter that never blocks or rejects.
func NewPassThrough() Limiter {
	return passThrough{}
}

func (passThrough) Acquire(_ context.Context, _ time.Time) AcquireResult {
	return AcquireResult{Result: Acquired, Wait: 0}
}

func (passThrough) OnSuccess()               {}
func (passThrough) OnRateLimited()           {}
func (passThrough) RecordLatency(time.Duration) {}
func (passThrough) ReleaseConcurrency()      {}
func (passThrough) EffectiveRate() float64   { return 0 }
