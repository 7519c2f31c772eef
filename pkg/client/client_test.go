package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rafaelpontezup/stkai-go/pkg/observability"
	"github.com/rafaelpontezup/stkai-go/pkg/observability/fake"
	"github.com/rafaelpontezup/stkai-go/pkg/ratelimit"
	"github.com/rafaelpontezup/stkai-go/pkg/retry"
	"github.com/rafaelpontezup/stkai-go/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedURLTransport is a bare-bones transport.Transport used only to
// exercise Client without pulling in a real auth variant.
type fixedURLTransport struct {
	base   string
	client *http.Client
}

func (f *fixedURLTransport) Get(ctx context.Context, url string) (*transport.Response, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return &transport.Response{StatusCode: resp.StatusCode, Header: resp.Header}, nil
}

func (f *fixedURLTransport) Post(ctx context.Context, url string, body io.Reader) (*transport.Response, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return &transport.Response{StatusCode: resp.StatusCode, Header: resp.Header}, nil
}

func TestClient_Do_SuccessOnFirstAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(ratelimit.NewPassThrough(), mustTransport(t, server))
	result := c.Do(context.Background(), Request{Method: MethodGet, URL: server.URL})

	assert.True(t, result.IsSuccess())
	assert.Equal(t, 1, result.Attempts)
}

func TestClient_Do_RetriesOn500ThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := retry.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.JitterFactor = 0

	c := New(ratelimit.NewPassThrough(), mustTransport(t, server), WithRetryConfig(cfg))
	result := c.Do(context.Background(), Request{Method: MethodGet, URL: server.URL})

	assert.True(t, result.IsSuccess())
	assert.Equal(t, 2, result.Attempts)
}

func TestClient_Do_ExhaustsOn429(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := retry.DefaultConfig()
	cfg.MaxRetries = 2
	cfg.InitialDelay = time.Millisecond
	cfg.JitterFactor = 0

	c := New(ratelimit.NewPassThrough(), mustTransport(t, server), WithRetryConfig(cfg))
	result := c.Do(context.Background(), Request{Method: MethodGet, URL: server.URL})

	assert.Equal(t, StatusServer429, result.Status)
	assert.Equal(t, 3, result.Attempts)

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, result.Err, &exhausted)
}

func TestClient_Do_NonRetryableStopsImmediately(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := New(ratelimit.NewPassThrough(), mustTransport(t, server))
	result := c.Do(context.Background(), Request{Method: MethodGet, URL: server.URL})

	assert.Equal(t, StatusNonRetryable, result.Status)
	assert.Equal(t, 1, result.Attempts)
}

func TestClient_Do_RecordsSpanAndMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := fake.NewProvider()
	c := New(ratelimit.NewPassThrough(), mustTransport(t, server), WithObservability(provider))

	result := c.Do(context.Background(), Request{Method: MethodGet, URL: server.URL})
	require.True(t, result.IsSuccess())

	spans := provider.Tracer().(*fake.FakeTracer).GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "stkai.client.request", spans[0].Name)
	assert.Equal(t, observability.StatusCodeOK, spans[0].Status)

	counter := provider.Metrics().(*fake.FakeMetrics).GetCounter("stkai.client.request.outcomes")
	require.NotNil(t, counter)
	assert.Len(t, counter.GetValues(), 1)

	histogram := provider.Metrics().(*fake.FakeMetrics).GetHistogram("stkai.client.request.attempts")
	require.NotNil(t, histogram)
	assert.Len(t, histogram.GetValues(), 1)
}

func TestClient_DoBatch_PreservesOrderAndIsolatesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(ratelimit.NewPassThrough(), mustTransport(t, server), WithMaxWorkers(4))

	reqs := []BatchRequest{
		{Request: Request{Method: MethodGet, URL: server.URL + "/ok0"}},
		{Request: Request{Method: MethodGet, URL: server.URL + "/fail"}},
		{Request: Request{Method: MethodGet, URL: server.URL + "/ok2"}},
	}

	results := c.DoBatch(context.Background(), reqs)
	require.Len(t, results, 3)
	assert.True(t, results[0].IsSuccess())
	assert.Equal(t, StatusNonRetryable, results[1].Status)
	assert.True(t, results[2].IsSuccess())
}

func mustTransport(t *testing.T, server *httptest.Server) transport.Transport {
	t.Helper()
	return &fixedURLTransport{base: server.URL, client: server.Client()}
}
