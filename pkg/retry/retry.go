// Package retry implements the request governance core's retry controller:
// exponential backoff with jitter, honored server Retry-After, and a
// distinguished "retryable-by-nature" error kind.
package retry

import (
	"errors"
	"strconv"
	"time"

	"github.com/rafaelpontezup/stkai-go/pkg/jitter"
)

// Retryable is implemented by errors that should always trigger a retry,
// regardless of status-code configuration. The Go analogue of the
// source's RetryableError exception base class: new transient error
// kinds opt in by implementing this marker instead of extending a class.
type Retryable interface {
	error
	RetryableByNature() bool
}

// Outcome describes what happened on one attempt, as reported by the
// caller to Controller.Next.
type Outcome struct {
	// Err is the error that occurred, or nil on success.
	Err error
	// StatusCode is the HTTP status code, if the outcome came from an
	// HTTP response (0 if not applicable).
	StatusCode int
	// RetryAfter is the parsed Retry-After value, if present.
	RetryAfter time.Duration
	HasRetryAfter bool
}

// ExhaustedError wraps the last outcome once all retry attempts are used
// up. Callers inspect Unwrap() for the originating cause.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return "retry: exhausted after " + strconv.Itoa(e.Attempts) + " attempts: " + e.Last.Error()
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Config configures a Controller. Immutable; one instance per client.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	JitterFactor float64
	MaxRetryAfter time.Duration

	// RetryableStatusCodes is the set of HTTP status codes that trigger
	// a retry. Defaults to {408, 429, 500, 502, 503, 504}.
	RetryableStatusCodes map[int]struct{}

	// RetryOnFuncs matches additional error kinds that should retry: an
	// error is retried when any predicate in the list returns true.
	RetryOnFuncs []func(error) bool

	// SkipFuncs matches error kinds that must never retry, checked
	// before anything else.
	SkipFuncs []func(error) bool
}

// DefaultConfig returns the spec's default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		JitterFactor:  0.10,
		MaxRetryAfter: 60 * time.Second,
		RetryableStatusCodes: map[int]struct{}{
			408: {}, 429: {}, 500: {}, 502: {}, 503: {}, 504: {},
		},
	}
}

// Validate enforces the data-model invariants; called at Controller
// construction so invalid configuration panics early rather than
// misbehaving mid-request.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("retry: max_retries must be >= 0")
	}
	if c.InitialDelay <= 0 {
		return errors.New("retry: initial_delay must be > 0")
	}
	if c.JitterFactor < 0 || c.JitterFactor >= 1 {
		return errors.New("retry: jitter_factor must be in [0, 1)")
	}
	return nil
}

// Controller is constructed per request and yields at most
// MaxRetries+1 attempts.
type Controller struct {
	cfg     Config
	attempt int
}

// New builds a Controller from cfg, panicking on invalid configuration
// (a programming error, not a runtime outcome).
func New(cfg Config) *Controller {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	if cfg.RetryableStatusCodes == nil {
		cfg.RetryableStatusCodes = DefaultConfig().RetryableStatusCodes
	}
	return &Controller{cfg: cfg}
}

// MaxAttempts is 1 + MaxRetries.
func (c *Controller) MaxAttempts() int { return c.cfg.MaxRetries + 1 }

// Attempt is metadata about one iteration of the retry loop.
type Attempt struct {
	Number int // 1-indexed
}

// IsLastAttempt reports whether this is the final permitted attempt.
func (a Attempt) IsLastAttempt(c *Controller) bool {
	return a.Number >= c.MaxAttempts()
}

// CurrentAttempt returns metadata for the attempt most recently started,
// or the zero value before the first call to Next.
func (c *Controller) CurrentAttempt() Attempt {
	return Attempt{Number: c.attempt}
}

// Next advances the controller. On the very first call it starts attempt
// 1 and returns (0, false, nil) to signal "run the attempt". On
// subsequent calls the caller passes the Outcome of the most recent
// attempt; Next classifies it and either:
//   - returns (0, true, nil) on success (outcome.Err == nil) — stop, success
//   - returns (0, true, err) on a non-retryable failure — stop, propagate err
//   - returns (wait, false, nil) — sleep `wait`, then call Next again to
//     start the next attempt
//   - returns (0, true, *ExhaustedError) once attempts are exhausted
//
// This is the explicit attempt-state-machine form of the source's
// generator-based retry loop (SPEC_FULL.md §4.3, systems-language option
// (a)).
func (c *Controller) Next(outcome *Outcome) (wait time.Duration, done bool, err error) {
	if outcome == nil {
		// First call: start attempt 1.
		c.attempt = 1
		return 0, false, nil
	}

	if outcome.Err == nil {
		return 0, true, nil
	}

	if !c.shouldRetry(outcome) {
		return 0, true, outcome.Err
	}

	if c.attempt >= c.MaxAttempts() {
		return 0, true, &ExhaustedError{Attempts: c.attempt, Last: outcome.Err}
	}

	wait = c.waitTime(outcome)
	c.attempt++
	return wait, false, nil
}

func (c *Controller) shouldRetry(outcome *Outcome) bool {
	for _, skip := range c.cfg.SkipFuncs {
		if skip(outcome.Err) {
			return false
		}
	}

	if outcome.StatusCode != 0 {
		_, retryable := c.cfg.RetryableStatusCodes[outcome.StatusCode]
		return retryable
	}

	var r Retryable
	if errors.As(outcome.Err, &r) && r.RetryableByNature() {
		return true
	}

	for _, retryOn := range c.cfg.RetryOnFuncs {
		if retryOn(outcome.Err) {
			return true
		}
	}

	return false
}

// waitTime computes the backoff for the attempt that just failed,
// honoring Retry-After when present and within MaxRetryAfter.
func (c *Controller) waitTime(outcome *Outcome) time.Duration {
	base := c.cfg.InitialDelay * time.Duration(1<<uint(c.attempt-1))
	jittered := jitter.SleepDuration(base, c.cfg.JitterFactor)

	if outcome.HasRetryAfter && outcome.RetryAfter <= c.cfg.MaxRetryAfter {
		if outcome.RetryAfter > jittered {
			return outcome.RetryAfter
		}
	}
	return jittered
}

// ParseRetryAfter parses an HTTP Retry-After header value. Only the
// numeric-seconds form is supported; HTTP-date values are treated as
// absent. Values exceeding cap are reported as absent too (the caller is
// expected to log a diagnostic for the suppressed value).
func ParseRetryAfter(header string, cap time.Duration) (d time.Duration, ok bool, exceeded bool) {
	if header == "" {
		return 0, false, false
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil {
		return 0, false, false
	}
	d = time.Duration(seconds * float64(time.Second))
	if d > cap {
		return 0, false, true
	}
	return d, true, false
}
