package transport

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/rafaelpontezup/stkai-go/pkg/observability"
)

// hostDelegatedEnvVar is the ambient variable an injecting CLI is
// expected to populate. Detected once at construction, mirroring the
// source's is_available() fall-through check.
const hostDelegatedEnvVar = "STKAI_AUTH_TOKEN"

// hostDelegated relies on an ambient tool (a CLI wrapper, a sidecar) to
// inject a bearer token via environment rather than fetching one itself.
type hostDelegated struct {
	client *http.Client
	token  string
	inst   *instrumentation
}

// NewHostDelegatedTransport constructs a transport backed by an
// ambient token. Returns (nil, false) if the token is absent, so
// callers fall through to the next auth variant. A nil o11y wires in
// the no-op provider.
func NewHostDelegatedTransport(client *http.Client, o11y observability.Observability) (Transport, bool) {
	token := os.Getenv(hostDelegatedEnvVar)
	if token == "" {
		return nil, false
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &hostDelegated{client: client, token: token, inst: newInstrumentation(o11y)}, true
}

func (t *hostDelegated) decorate(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+t.token)
}

func (t *hostDelegated) Get(ctx context.Context, url string) (*Response, error) {
	return doRequest(ctx, t.client, t.inst, http.MethodGet, url, nil, t.decorate)
}

func (t *hostDelegated) Post(ctx context.Context, url string, body io.Reader) (*Response, error) {
	return doRequest(ctx, t.client, t.inst, http.MethodPost, url, body, t.decorate)
}
