// Package transport implements the narrow HTTP contract the client
// orchestrator drives: get/post returning either a response or a
// well-known failure kind, plus the two authentication variants the SDK
// supports.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rafaelpontezup/stkai-go/pkg/observability"
)

// DefaultTimeout is applied when the caller does not supply its own
// *http.Client.
const DefaultTimeout = 30 * time.Second

// Response is the transport-level result of a round trip.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Latency    time.Duration
}

// RetryAfter returns the raw Retry-After header value, or "" if absent;
// callers parse it with pkg/retry.ParseRetryAfter.
func (r *Response) RetryAfter() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Retry-After")
}

// FailureKind classifies a transport-level failure for the retry
// controller, independent of any HTTP status code.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTimeout
	FailureConnection
	FailureAuth
)

// Error wraps a transport failure with its classification and, for
// auth failures surfaced by the token endpoint, is not retryable by
// nature — only a caller-configured retry-on kind would catch it.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// RetryableByNature marks connection and timeout failures as transient;
// auth failures are not retryable by nature (a misconfigured client
// will not succeed on attempt 2).
func (e *Error) RetryableByNature() bool {
	return e.Kind == FailureTimeout || e.Kind == FailureConnection
}

// Transport is the minimal two-operation contract the orchestrator
// drives. Implementations must not retry internally; retrying is the
// retry controller's job.
type Transport interface {
	Get(ctx context.Context, url string) (*Response, error)
	Post(ctx context.Context, url string, body io.Reader) (*Response, error)
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: FailureTimeout, Err: err}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: FailureTimeout, Err: err}
	}
	return &Error{Kind: FailureConnection, Err: err}
}

// doRequest issues one HTTP round trip, wrapping it in a client-kind span
// and recording request/error/latency instruments, the same three
// signals the teacher's observableTransport records around every
// RoundTrip. Metrics are recorded against context.Background() rather
// than ctx so a canceled or timed-out request still reports what
// happened.
func doRequest(ctx context.Context, client *http.Client, inst *instrumentation, method, url string, body io.Reader, decorate func(*http.Request)) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if decorate != nil {
		decorate(req)
	}

	ctx, span := inst.tracer.Start(ctx, "stkai.transport.request",
		observability.WithSpanKind(observability.SpanKindClient),
		observability.WithAttributes(
			observability.String("http.method", method),
			observability.String("http.url", url),
		),
	)
	defer span.End()
	req = req.WithContext(ctx)

	metricAttrs := []observability.Field{observability.String("http.method", method)}
	metricsCtx := context.Background()

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	duration := float64(latency.Milliseconds())

	if err != nil {
		classified := classifyError(err)
		span.RecordError(classified)
		span.SetStatus(observability.StatusCodeError, classified.Error())
		inst.errorCounter.Increment(metricsCtx, metricAttrs...)
		inst.requestCounter.Increment(metricsCtx, metricAttrs...)
		inst.latencyHistogram.Record(metricsCtx, duration, metricAttrs...)
		return nil, classified
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		classified := classifyError(err)
		span.RecordError(classified)
		span.SetStatus(observability.StatusCodeError, classified.Error())
		inst.errorCounter.Increment(metricsCtx, metricAttrs...)
		inst.requestCounter.Increment(metricsCtx, metricAttrs...)
		inst.latencyHistogram.Record(metricsCtx, duration, metricAttrs...)
		return nil, classified
	}

	statusAttrs := append(metricAttrs, observability.Int("http.status_code", resp.StatusCode))
	span.SetAttributes(observability.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(observability.StatusCodeError, fmt.Sprintf("HTTP %d", resp.StatusCode))
	} else {
		span.SetStatus(observability.StatusCodeOK, "request successful")
	}
	inst.requestCounter.Increment(metricsCtx, statusAttrs...)
	inst.latencyHistogram.Record(metricsCtx, duration, statusAttrs...)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Latency:    latency,
	}, nil
}
