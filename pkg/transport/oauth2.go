package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rafaelpontezup/stkai-go/pkg/observability"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// refreshMargin is how far ahead of actual expiry a token is considered
// stale and due for synchronous refresh.
const refreshMargin = 60 * time.Second

// OAuth2Config configures the self-authenticating transport variant.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// oauth2Transport maintains a cached (token, expiry) pair behind a
// mutex. Concurrent callers needing a refresh coalesce on a single
// in-flight fetch via a channel gate rather than pulling in
// golang.org/x/sync/singleflight for this one call site.
type oauth2Transport struct {
	client *http.Client
	source oauth2.TokenSource
	inst   *instrumentation

	mu      sync.Mutex
	token   *oauth2.Token
	refresh chan struct{} // non-nil while a refresh is in flight

	nowFunc func() time.Time
}

// NewOAuth2Transport constructs a transport that authenticates via the
// OAuth2 client-credentials grant. A nil o11y wires in the no-op
// provider.
func NewOAuth2Transport(cfg OAuth2Config, client *http.Client, o11y observability.Observability) Transport {
	ccCfg := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}

	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	return &oauth2Transport{
		client:  client,
		source:  ccCfg.TokenSource(context.Background()),
		inst:    newInstrumentation(o11y),
		nowFunc: time.Now,
	}
}

// ensureToken returns a valid bearer token, refreshing synchronously if
// the cached one is stale or absent. Concurrent callers that arrive
// while a refresh is already in flight wait on the same gate instead of
// issuing redundant token requests.
func (t *oauth2Transport) ensureToken(ctx context.Context) (string, error) {
	t.mu.Lock()
	if t.tokenFreshLocked() {
		tok := t.token.AccessToken
		t.mu.Unlock()
		return tok, nil
	}

	if t.refresh != nil {
		gate := t.refresh
		t.mu.Unlock()
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		t.mu.Lock()
		if t.tokenFreshLocked() {
			tok := t.token.AccessToken
			t.mu.Unlock()
			return tok, nil
		}
		t.mu.Unlock()
		return t.ensureToken(ctx)
	}

	gate := make(chan struct{})
	t.refresh = gate
	t.mu.Unlock()

	tok, err := t.fetchWithBackoff(ctx)

	t.mu.Lock()
	if err == nil {
		t.token = tok
	}
	t.refresh = nil
	t.mu.Unlock()
	close(gate)

	if err != nil {
		return "", &Error{Kind: FailureAuth, Err: fmt.Errorf("token refresh: %w", err)}
	}
	return tok.AccessToken, nil
}

func (t *oauth2Transport) tokenFreshLocked() bool {
	if t.token == nil {
		return false
	}
	return t.token.Expiry.Sub(t.nowFunc()) > refreshMargin
}

// fetchWithBackoff retries transient token-endpoint failures using the
// library's exponential backoff, distinct from the request-level retry
// controller which is spec-driven and hand-rolled.
func (t *oauth2Transport) fetchWithBackoff(ctx context.Context) (*oauth2.Token, error) {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	var tok *oauth2.Token
	err := backoff.Retry(func() error {
		var fetchErr error
		tok, fetchErr = t.source.Token()
		return fetchErr
	}, b)

	return tok, err
}

func (t *oauth2Transport) decorate(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (t *oauth2Transport) Get(ctx context.Context, url string) (*Response, error) {
	token, err := t.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	return doRequest(ctx, t.client, t.inst, http.MethodGet, url, nil, t.decorate(token))
}

func (t *oauth2Transport) Post(ctx context.Context, url string, body io.Reader) (*Response, error) {
	token, err := t.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	return doRequest(ctx, t.client, t.inst, http.MethodPost, url, body, t.decorate(token))
}
