// Package api is the authenticated HTTP client for the pet backend.
//
// Requests flow through a chain of middleware (logging, metrics, request ids,
// rate limiting, bearer injection, 401 expiry) before reaching the transport.
// Every operation returns the decoded JSON body or a single error whose
// Error() is the message a user should see.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"axolotl/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrEmptyResponse is returned by typed endpoints that need a body but got none.
var ErrEmptyResponse = errors.New("empty response from server")

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 4 << 20

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the pet backend.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration

	transport Doer
	doer      Doer

	tokens    TokenSource
	onExpired func(req *http.Request)
	limiter   *rate.Limiter
	recorder  metrics.Recorder
	logger    *zap.Logger
	extra     []Middleware
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport (default: a plain *http.Client).
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.transport = d }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) { c.tokens = src }
}

// WithExpiryHook sets the function run on every 401 response.
func WithExpiryHook(fn func(req *http.Request)) Option {
	return func(c *Client) { c.onExpired = fn }
}

// WithRateLimit limits outbound requests to rps with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRecorder reports call metrics to rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(c *Client) { c.recorder = rec }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTimeout bounds each call. Zero means no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMiddleware appends stages just outside the transport.
func WithMiddleware(mws ...Middleware) Option {
	return func(c *Client) { c.extra = append(c.extra, mws...) }
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "axo/1.0",
		transport: &http.Client{},
		recorder:  metrics.Nop{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	mws := []Middleware{
		Logging(c.logger),
		Instrument(c.recorder),
		RequestID(),
	}
	if c.limiter != nil {
		mws = append(mws, RateLimit(c.limiter))
	}
	mws = append(mws, BearerToken(c.tokens), ExpireOn401(c.onExpired))
	mws = append(mws, c.extra...)
	c.doer = Chain(c.transport, mws...)

	return c, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// RAW OPERATIONS
// =============================================================================

// RequestOption modifies a single call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	anonymous bool
}

// Anonymous sends the call without an Authorization header.
func Anonymous() RequestOption {
	return func(o *requestOptions) { o.anonymous = true }
}

// Get performs GET path.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts)
}

// Post performs POST path with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, body, opts)
}

// Put performs PUT path with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, body, opts)
}

// Delete performs DELETE path.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts)
}

// do sends one request. A 2xx response with an empty body yields (nil, nil).
func (c *Client) do(ctx context.Context, method, path string, body any, opts []RequestOption) (json.RawMessage, error) {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.anonymous {
		ctx = WithAnonymous(ctx)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(resp.StatusCode, resp.Status, data)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON in %s %s response", method, path)
	}
	return json.RawMessage(data), nil
}

// decode unmarshals raw into a new T. A nil raw yields (nil, nil).
func decode[T any](raw json.RawMessage) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("unexpected response shape: %w", err)
	}
	return v, nil
}

// decodeRequired is decode for endpoints whose body the caller depends on.
func decodeRequired[T any](raw json.RawMessage) (*T, error) {
	if raw == nil {
		return nil, ErrEmptyResponse
	}
	return decode[T](raw)
}
