package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
)

const (
	defaultTimeout              = 15 * time.Second
	responseBodyReadLimit int64 = 1 << 20

	TargetPrimary  = "primary"
	TargetFallback = "fallback"
)

var errBaseURLRequired = errors.New("marketplace base url is required")

// Observer receives one call per upstream round trip.
type Observer interface {
	ObserveUpstream(target, operation string, status int, elapsed time.Duration)
}

// Client talks to the marketplace REST API on behalf of the authenticated caller.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	fallbackURL   string
	usingFallback atomic.Bool
	observer      Observer
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithFallbackURL configures the secondary target used once when the primary is unreachable.
func WithFallbackURL(fallbackURL string) Option {
	return func(c *Client) {
		c.fallbackURL = strings.TrimRight(strings.TrimSpace(fallbackURL), "/")
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithObserver registers a metrics observer.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient builds a marketplace client rooted at baseURL (e.g. https://host/api/v1).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.fallbackURL == client.baseURL {
		client.fallbackURL = ""
	}
	return client, nil
}

// UsingFallback reports whether requests are currently routed to the fallback target.
func (c *Client) UsingFallback() bool {
	return c.usingFallback.Load()
}

// RetryPrimary routes subsequent requests back to the primary target.
func (c *Client) RetryPrimary() {
	c.usingFallback.Store(false)
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx for forwarding.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the forwarded bearer token, if any.
func TokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call executes one API operation and decodes the data member of the envelope into out.
// It returns the top-level message for callers that surface it.
func (c *Client) call(ctx context.Context, operation, method, path string, body, out any) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "marketplace client not configured")
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+operation+" request")
		}
		payload = encoded
	}

	primary, target := c.baseURL, TargetPrimary
	if c.fallbackURL != "" && c.usingFallback.Load() {
		primary, target = c.fallbackURL, TargetFallback
	}

	status, raw, err := c.roundTrip(ctx, operation, target, method, primary, path, payload)
	if shouldFallback(method, status, err) && target == TargetPrimary && c.fallbackURL != "" && ctx.Err() == nil {
		c.usingFallback.Store(true)
		status, raw, err = c.roundTrip(ctx, operation, TargetFallback, method, c.fallbackURL, path, payload)
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+operation+" request")
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if decodeErr := json.Unmarshal(raw, &env); decodeErr != nil {
			if status >= 200 && status < 300 {
				return "", pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "decode "+operation+" response")
			}
			env = envelope{Message: strings.TrimSpace(string(raw))}
		}
	}

	if status < 200 || status >= 300 || (env.Success != nil && !*env.Success) {
		return "", classify(newUpstreamError(status, path, env))
	}

	if out != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return "", pkgerrors.New(pkgerrors.CodeDependency, operation+" response missing data")
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+operation+" response")
		}
	}
	return env.Message, nil
}

func (c *Client) roundTrip(ctx context.Context, operation, target, method, base, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(target, operation, 0, time.Since(started))
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	c.observe(target, operation, resp.StatusCode, time.Since(started))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) observe(target, operation string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(target, operation, status, elapsed)
	}
}

// shouldFallback mirrors the storefront rule: transport errors, timeouts and 503 switch targets.
// Writes are replayed only when the primary cannot have received them.
func shouldFallback(method string, status int, err error) bool {
	if err == nil {
		return status == http.StatusServiceUnavailable
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if idempotentMethod(method) {
		return true
	}
	return neverSent(err)
}

func idempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// neverSent reports failures that happen before a connection exists.
func neverSent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
