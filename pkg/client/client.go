// Package client wires the retry controller, the rate limiter, and the
// HTTP transport into a single orchestrator safe to share across many
// concurrent workers in one process, plus a bounded worker pool for
// batch product surfaces.
package client

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/rafaelpontezup/stkai-go/pkg/metrics"
	"github.com/rafaelpontezup/stkai-go/pkg/observability"
	"github.com/rafaelpontezup/stkai-go/pkg/observability/noop"
	"github.com/rafaelpontezup/stkai-go/pkg/ratelimit"
	"github.com/rafaelpontezup/stkai-go/pkg/retry"
	"github.com/rafaelpontezup/stkai-go/pkg/transport"
	"github.com/rafaelpontezup/stkai-go/pkg/vos"
)

// Method is the HTTP verb of a logical request.
type Method int

const (
	MethodGet Method = iota
	MethodPost
)

// Request is one logical outgoing request.
type Request struct {
	Method Method
	URL    string
	Body   []byte
}

// Status is the client-observed outcome taxonomy of spec §7.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusTokenTimeout Status = "token-timeout"
	StatusServer429    Status = "server-429"
	StatusServerError  Status = "server-error"
	StatusTimeout      Status = "timeout"
	StatusNonRetryable Status = "non-retryable"
)

// Result is the user-visible contract every public surface returns.
// Never an unchecked error for anything in the taxonomy; Err is
// populated only alongside a non-success Status, for diagnosis.
type Result struct {
	Status     Status
	Response   *transport.Response
	Attempts   int
	WaitTime   time.Duration
	RetryTime  time.Duration
	Err        error
}

func (r Result) IsSuccess() bool { return r.Status == StatusSuccess }
func (r Result) IsTimeout() bool { return r.Status == StatusTimeout || r.Status == StatusTokenTimeout }

// Option configures a Client at construction.
type Option func(*Client)

// WithObservability overrides the no-op default facade.
func WithObservability(o observability.Observability) Option {
	return func(c *Client) { c.o11y = o }
}

// WithRetryConfig overrides the default retry configuration.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// WithMaxWorkers overrides the default batch worker-pool size.
func WithMaxWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithProcessID sets the process id recorded on every RequestMetrics.
func WithProcessID(pid int) Option {
	return func(c *Client) { c.processID = pid }
}

// Client is the request governance core's orchestrator. Safe for
// concurrent use: the limiter is shared by reference across workers,
// and a Controller is constructed fresh per request.
type Client struct {
	limiter   ratelimit.Limiter
	transport transport.Transport
	collector *metrics.Collector
	o11y      observability.Observability
	inst      *instrumentation

	retryCfg   retry.Config
	maxWorkers int
	processID  int
}

// New constructs a Client. limiter and transport are required; panics
// if either is nil, since a misconfigured client cannot make progress
// at any call site (a programming error, not a runtime outcome).
func New(limiter ratelimit.Limiter, tr transport.Transport, opts ...Option) *Client {
	if limiter == nil {
		panic("client: limiter is required")
	}
	if tr == nil {
		panic("client: transport is required")
	}

	c := &Client{
		limiter:    limiter,
		transport:  tr,
		collector:  metrics.NewCollector(),
		o11y:       noop.NewProvider(),
		retryCfg:   retry.DefaultConfig(),
		maxWorkers: 8,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.o11y == nil {
		c.o11y = noop.NewProvider()
	}
	c.inst = newInstrumentation(c.o11y)
	return c
}

// Metrics returns the collector accumulating every Do/DoBatch outcome.
func (c *Client) Metrics() *metrics.Collector { return c.collector }

// Do executes one logical request through the full pipeline: for each
// attempt yielded by a fresh retry controller, it acquires a rate-limit
// permit, issues the request, feeds the outcome back to both the
// limiter and the controller, and records per-request metrics exactly
// per spec §4.5.
func (c *Client) Do(ctx context.Context, req Request) Result {
	start := time.Now()
	requestID := c.newRequestID()

	ctx, span := c.inst.tracer.Start(ctx, "stkai.client.request",
		observability.WithAttributes(
			observability.String("http.url", req.URL),
			observability.String("stkai.request_id", requestID),
		),
	)
	defer span.End()

	rc := retry.New(c.retryCfg)
	var (
		wait, done = time.Duration(0), false
		outcomeErr error
		attempts   int
		totalWait  time.Duration
		totalRetry time.Duration
		lastResp   *transport.Response
		status     Status
	)

	wait, done, outcomeErr = rc.Next(nil)
	_ = wait
	_ = outcomeErr

	for !done {
		attempts++

		acquireResult := c.limiter.Acquire(ctx, time.Now())
		if acquireResult.Result == ratelimit.Timeout {
			status = StatusTokenTimeout
			outcome := &retry.Outcome{Err: errTokenTimeout}
			_, done, outcomeErr = rc.Next(outcome)
			if done {
				break
			}
			continue
		}

		if acquireResult.Wait > 0 {
			if !sleepCtx(ctx, acquireResult.Wait) {
				c.limiter.ReleaseConcurrency()
				return Result{Status: StatusNonRetryable, Attempts: attempts, Err: ctx.Err()}
			}
			totalWait += acquireResult.Wait
		}

		resp, reqErr := c.issue(ctx, req)
		if resp != nil {
			sleepCtx(ctx, resp.Latency)
		}
		c.limiter.ReleaseConcurrency()

		if reqErr != nil {
			c.o11y.Logger().Error(ctx, "request failed", observability.Error(reqErr))
			outcome := toOutcome(reqErr, nil)
			wait, done, outcomeErr = rc.Next(outcome)
			if !done {
				totalRetry += wait
				sleepCtx(ctx, wait)
				continue
			}
			status = classifyFinalErr(reqErr)
			break
		}

		lastResp = resp
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			c.limiter.RecordLatency(resp.Latency)
			c.limiter.OnSuccess()
			status = StatusSuccess
			done = true
		case resp.StatusCode == http.StatusTooManyRequests:
			c.limiter.OnRateLimited()
			outcome := toOutcome(nil, resp)
			wait, done, outcomeErr = rc.Next(outcome)
			if !done {
				totalRetry += wait
				sleepCtx(ctx, wait)
				continue
			}
			status = StatusServer429
		case resp.StatusCode >= 500:
			outcome := toOutcome(nil, resp)
			wait, done, outcomeErr = rc.Next(outcome)
			if !done {
				totalRetry += wait
				sleepCtx(ctx, wait)
				continue
			}
			status = StatusServerError
		default:
			status = StatusNonRetryable
			done = true
		}
	}

	finishedAt := time.Now()

	span.SetAttributes(observability.String("stkai.status", string(status)), observability.Int("stkai.attempts", attempts))
	if status == StatusSuccess {
		span.SetStatus(observability.StatusCodeOK, "request successful")
	} else {
		span.SetStatus(observability.StatusCodeError, string(status))
	}

	metricsCtx := context.Background()
	c.inst.outcomeCounter.Increment(metricsCtx, observability.String("stkai.status", string(status)))
	c.inst.attemptHistogram.Record(metricsCtx, float64(attempts), observability.String("stkai.status", string(status)))

	c.collector.Append(metrics.RequestMetrics{
		ProcessID:     c.processID,
		RequestID:     requestID,
		StartedAt:     start,
		FinishedAt:    finishedAt,
		Success:       status == StatusSuccess,
		StatusCode:    statusCodeOf(lastResp),
		Attempts:      attempts,
		WaitTime:      totalWait,
		RetryTime:     totalRetry,
		FailureReason: failureReasonOf(status),
	})

	return Result{
		Status:    status,
		Response:  lastResp,
		Attempts:  attempts,
		WaitTime:  totalWait,
		RetryTime: totalRetry,
		Err:       outcomeErr,
	}
}

func (c *Client) issue(ctx context.Context, req Request) (*transport.Response, error) {
	if req.Method == MethodPost {
		return c.transport.Post(ctx, req.URL, bytes.NewReader(req.Body))
	}
	return c.transport.Get(ctx, req.URL)
}

func (c *Client) newRequestID() string {
	id, err := vos.NewULID()
	if err != nil {
		return ""
	}
	return id.String()
}

func statusCodeOf(resp *transport.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func failureReasonOf(status Status) metrics.FailureReason {
	switch status {
	case StatusSuccess:
		return metrics.FailureNone
	case StatusTokenTimeout:
		return metrics.FailureTokenTimeout
	case StatusServer429:
		return metrics.FailureServer429
	case StatusServerError, StatusTimeout:
		return metrics.FailureServerError
	default:
		return metrics.FailureServerError
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func toOutcome(err error, resp *transport.Response) *retry.Outcome {
	if err != nil {
		return &retry.Outcome{Err: err}
	}
	outcome := &retry.Outcome{Err: &httpFailure{statusCode: resp.StatusCode}, StatusCode: resp.StatusCode}
	if ra := resp.RetryAfter(); ra != "" {
		if d, ok, _ := retry.ParseRetryAfter(ra, 60*time.Second); ok {
			outcome.RetryAfter = d
			outcome.HasRetryAfter = true
		}
	}
	return outcome
}

func classifyFinalErr(err error) Status {
	var transportErr *transport.Error
	if tErr, ok := err.(*transport.Error); ok {
		transportErr = tErr
	}
	if transportErr != nil {
		switch transportErr.Kind {
		case transport.FailureTimeout:
			return StatusTimeout
		case transport.FailureAuth:
			return StatusNonRetryable
		default:
			return StatusServerError
		}
	}
	return StatusNonRetryable
}
