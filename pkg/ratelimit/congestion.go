package ratelimit

import (
	"context"
	"sync"
	"time"
)

// congestionSuspendThreshold is the number of consecutive OnRateLimited
// feedback events after which pressure-based backpressure is suspended;
// the next OnSuccess or RecordLatency call ends the suspension. See
// SPEC_FULL.md §4.2 Open Question.
const congestionSuspendThreshold = 4

const latencyEMAAlpha = 0.2

// congestionAware wraps an inner adaptive limiter and adds a proactive
// concurrency gate driven by Little's Law (pressure = rate x latency),
// per spec §4.2.3.
type congestionAware struct {
	mu sync.Mutex

	delegate *adaptive

	pressureThreshold float64

	latencyEMA    float64
	hasLatency    bool
	nonSuccessRun int

	maxConcurrency int
	inFlight       int
}

// NewCongestionAware constructs a congestion-aware limiter wrapping a
// fresh adaptive limiter built from the same cfg.
func NewCongestionAware(cfg Config) Limiter {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return &congestionAware{
		delegate:          newAdaptiveWithFingerprint(cfg, 0),
		pressureThreshold: cfg.PressureThreshold,
		maxConcurrency:    cfg.MaxConcurrency,
	}
}

func (c *congestionAware) Acquire(ctx context.Context, now time.Time) AcquireResult {
	pressureWait := c.pressureWait()

	result := c.delegate.Acquire(ctx, now)
	if result.Result == Timeout {
		return result
	}

	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()

	return AcquireResult{
		Result: Acquired,
		Wait:   pressureWait + result.Wait,
	}
}

func (c *congestionAware) pressureWait() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasLatency || c.nonSuccessRun >= congestionSuspendThreshold {
		// No fresh latency sample to reason about, or pressure has been
		// suspended after a run of non-success feedback: defer entirely
		// to the inner adaptive limiter's own AIMD contraction.
		return 0
	}

	rate := c.delegate.EffectiveRate() / 60.0
	pressure := rate * c.latencyEMA

	excess := pressure / c.pressureThreshold
	if excess <= 1 {
		return 0
	}

	return time.Duration(c.latencyEMA * (excess - 1) * float64(time.Second))
}

func (c *congestionAware) OnSuccess() {
	c.delegate.OnSuccess()
	c.mu.Lock()
	c.nonSuccessRun = 0
	c.mu.Unlock()
}

func (c *congestionAware) OnRateLimited() {
	c.delegate.OnRateLimited()
	c.mu.Lock()
	c.nonSuccessRun++
	c.mu.Unlock()
}

// RecordLatency updates the latency EMA. Only ever called for successful
// responses: 429 rejections return near-instantly and would otherwise
// depress the estimate, masking the true pressure signal.
func (c *congestionAware) RecordLatency(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seconds := d.Seconds()
	if !c.hasLatency {
		c.latencyEMA = seconds
		c.hasLatency = true
	} else {
		c.latencyEMA = latencyEMAAlpha*seconds + (1-latencyEMAAlpha)*c.latencyEMA
	}
	c.nonSuccessRun = 0
}

// ReleaseConcurrency releases one in-flight slot. Idempotent: the counter
// is clamped to zero and never goes negative regardless of over-release
// (testable property 5).
func (c *congestionAware) ReleaseConcurrency() {
	c.delegate.ReleaseConcurrency()

	c.mu.Lock()
	if c.inFlight > 0 {
		c.inFlight--
	}
	c.mu.Unlock()
}

// InFlight reports the current number of unreleased acquisitions, for
// observability and tests.
func (c *congestionAware) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *congestionAware) EffectiveRate() float64 {
	return c.delegate.EffectiveRate()
}
