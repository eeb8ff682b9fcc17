// Package propertyapi provides a client for the property analysis backend.
package propertyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultQueryTimeout = 120 * time.Second
)

// TokenSource supplies the bearer token for outbound requests. An empty
// token means the request is sent unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// AuthFailureHandler is invoked once for every 401 response, before the
// error is returned to the caller.
type AuthFailureHandler func(ctx context.Context)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithAuthFailureHandler sets the 401 hook.
func WithAuthFailureHandler(h AuthFailureHandler) Option {
	return func(c *Client) {
		c.onAuthFailure = h
	}
}

// WithTimeout sets the timeout for ordinary requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithQueryTimeout sets the timeout for property query submission, which
// waits on the full backend analysis.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.queryTimeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// Client talks to the backend. Endpoints are grouped by resource.
type Client struct {
	Auth     *AuthService
	Property *PropertyService
	Feedback *FeedbackService
	Payments *PaymentService

	baseURL       string
	http          *http.Client
	tokens        TokenSource
	onAuthFailure AuthFailureHandler
	timeout       time.Duration
	queryTimeout  time.Duration
	userAgent     string
}

// NewClient creates a backend client rooted at baseURL (which includes the
// /api prefix).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 10, IdleConnTimeout: 90 * time.Second}},
		timeout:      defaultTimeout,
		queryTimeout: defaultQueryTimeout,
		userAgent:    "property-cli",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Auth = &AuthService{c: c}
	c.Property = &PropertyService{c: c}
	c.Feedback = &FeedbackService{c: c}
	c.Payments = &PaymentService{c: c}
	return c
}

// request describes one backend call.
type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	timeout time.Duration
}

// do executes r and decodes a successful JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	body, err := c.doRaw(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "propertyapi: %s: unmarshal response", r.op)
	}
	return nil
}

// doRaw executes r and returns the raw body of a 2xx response. Non-2xx
// responses become *Error. There are no retries.
func (c *Client) doRaw(ctx context.Context, r request) ([]byte, error) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	var reader io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, eris.Wrapf(err, "propertyapi: %s: marshal request", r.op)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, reader)
	if err != nil {
		return nil, eris.Wrapf(err, "propertyapi: %s: create request", r.op)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		msg := "network error"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "request timed out"
		}
		zap.L().Debug("propertyapi: request failed",
			zap.String("op", r.op),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, &Error{Op: r.op, Kind: KindNetwork, Message: msg, cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: r.op, Kind: KindNetwork, Status: resp.StatusCode, Message: "read response body", cause: err}
	}

	zap.L().Debug("propertyapi: request",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	apiErr := newStatusError(r.op, resp.StatusCode, body)
	if apiErr.Kind == KindUnauthorized && c.onAuthFailure != nil {
		c.onAuthFailure(ctx)
	}
	return nil, apiErr
}
