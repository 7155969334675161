package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// TokenSource yields the current session token, or "" when signed out.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource with a fixed value.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() string { return string(t) }

// Client is a thin wrapper over the backend REST API.
type Client struct {
	baseURL           string
	http              *http.Client
	tokens            TokenSource
	routes            *Routes
	logger            *zap.Logger
	metrics           *Metrics
	timeout           time.Duration
	legacyDecorUpdate bool
	requestID         func() string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTokenSource sets where the bearer token is read from.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithRoutes replaces the embedded route table.
func WithRoutes(routes *Routes) Option {
	return func(c *Client) {
		if routes != nil {
			c.routes = routes
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records request outcomes.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithTimeout bounds each request. Zero means no bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLegacyDecorUpdatePath sends decoration updates to the car update
// endpoint, which is where older front-ends sent them.
func WithLegacyDecorUpdatePath(enabled bool) Option {
	return func(c *Client) {
		c.legacyDecorUpdate = enabled
	}
}

// WithRequestIDGenerator overrides how X-Request-ID values are produced.
func WithRequestIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// New builds a Client for baseURL. The route table defaults to the embedded
// backend contract.
func New(baseURL string, options ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("api: backend url is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("api: backend url: %w", err)
	}

	c := &Client{
		baseURL:   trimmed,
		http:      http.DefaultClient,
		logger:    zap.NewNop(),
		requestID: uuid.NewString,
	}
	for _, option := range options {
		if option != nil {
			option(c)
		}
	}
	if c.routes == nil {
		routes, err := DefaultRoutes()
		if err != nil {
			return nil, err
		}
		c.routes = routes
	}
	return c, nil
}

// BaseURL returns the backend root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the current token, or "".
func (c *Client) Token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// ImageURL resolves a stored media reference to a fetchable URL. Absolute
// references are returned unchanged.
func (c *Client) ImageURL(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.Contains(ref, "://") {
		return ref
	}
	return c.baseURL + "/images/" + url.PathEscape(ref)
}

type request struct {
	op          string
	params      map[string]string
	query       url.Values
	body        []byte
	stream      io.ReadCloser
	contentType string
}

type response struct {
	status int
	body   []byte
}

// do performs one request. Non-2xx statuses are returned as a response, not
// an error, so callers can apply operation-specific handling.
func (c *Client) do(ctx context.Context, req request) (resp response, err error) {
	if req.stream != nil {
		defer req.stream.Close()
	}
	started := time.Now()
	defer func() {
		outcome := outcomeOf(err)
		if err == nil && resp.status >= 400 {
			outcome = fmt.Sprintf("status_%dxx", resp.status/100)
		}
		c.metrics.observe(req.op, outcome, time.Since(started).Seconds())
	}()

	route, err := c.routes.Lookup(req.op)
	if err != nil {
		return response{}, err
	}
	path, err := route.Expand(req.params)
	if err != nil {
		return response{}, err
	}

	token := c.Token()
	if route.Secured && token == "" {
		return response{}, &Error{Kind: KindAuthExpired, Operation: req.op, Message: "no session token"}
	}

	target := c.baseURL + path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	switch {
	case req.stream != nil:
		body = req.stream
	case req.body != nil:
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, route.Method, target, body)
	if err != nil {
		return response{}, fmt.Errorf("api: %s: build request: %w", req.op, err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := c.requestID()
	httpReq.Header.Set(RequestIDHeader, requestID)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("operation", req.op),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return response{}, networkError(req.op, err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return response{}, networkError(req.op, err)
	}

	c.logger.Debug("backend request",
		zap.String("operation", req.op),
		zap.String("method", route.Method),
		zap.String("path", path),
		zap.Int("status", httpResp.StatusCode),
		zap.String("request_id", requestID),
	)
	return response{status: httpResp.StatusCode, body: data}, nil
}

// call performs a request and classifies non-2xx responses.
func (c *Client) call(ctx context.Context, req request) ([]byte, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.status < 200 || resp.status >= 300 {
		return nil, classify(req.op, resp.status, resp.body)
	}
	return resp.body, nil
}
