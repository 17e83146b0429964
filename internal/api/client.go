// Package api is the HTTP client for the storefront REST API. Every response
// is a JSON envelope with a success flag, an optional message, and data.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// TokenSource supplies the bearer token for authenticated calls. An empty
// token sends the request anonymously.
type TokenSource interface {
	Token() string
}

// Client issues calls against the storefront API.
type Client struct {
	baseURL   string
	http      *http.Client
	endpoints Endpoints
	tokens    TokenSource
	logger    *zap.Logger
	deviceID  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithEndpoints overrides entries of the default endpoint table.
func WithEndpoints(overrides Endpoints) Option {
	return func(c *Client) { c.endpoints = c.endpoints.Merge(overrides) }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDeviceID tags every request with the client's device id.
func WithDeviceID(id string) Option {
	return func(c *Client) { c.deviceID = id }
}

// NewClient constructs an API client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:      &http.Client{},
		endpoints: DefaultEndpoints(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint registered for op.
func (c *Client) Endpoint(op string) (Endpoint, bool) {
	ep, ok := c.endpoints[op]
	return ep, ok
}

// Call describes one API invocation.
type Call struct {
	Op     string
	Params map[string]string
	Query  url.Values
	Body   any
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Do performs call and decodes the envelope's data into out (when non-nil).
// Transport failures are returned as-is; HTTP or envelope failures are *Error.
func (c *Client) Do(ctx context.Context, call Call, out any) error {
	ep, ok := c.endpoints[call.Op]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, call.Op)
	}
	path, err := ep.Resolve(call.Params)
	if err != nil {
		return err
	}
	endpoint := c.baseURL + path
	if len(call.Query) > 0 {
		endpoint += "?" + call.Query.Encode()
	}

	var body io.Reader
	if call.Body != nil {
		payload, err := json.Marshal(call.Body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, endpoint, body)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			zap.String("op", call.Op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		zap.String("op", call.Op),
		zap.String("method", ep.Method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 400 {
				return &Error{Op: call.Op, Status: resp.StatusCode}
			}
			return fmt.Errorf("api: %s: failed to decode response: %w", call.Op, err)
		}
	}

	if resp.StatusCode >= 400 || (env.Success != nil && !*env.Success) {
		return &Error{Op: call.Op, Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("api: %s: failed to decode data: %w", call.Op, err)
		}
	}
	return nil
}
