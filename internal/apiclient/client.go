// Package apiclient wraps outgoing requests to the translation backend.
// It attaches the bearer token, performs at most one transparent token
// refresh on a 401 response, and clears the session when the refresh path
// is exhausted. It never navigates; callers react to the anonymous state
// through the session notifier.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/marcus-qen/tradutor/internal/metrics"
	"github.com/marcus-qen/tradutor/internal/notifier"
	"github.com/marcus-qen/tradutor/internal/telemetry"
	"github.com/marcus-qen/tradutor/internal/tokenstore"
)

const (
	// DefaultRefreshPath is the canonical token refresh endpoint.
	DefaultRefreshPath = "/auth/refresh"

	defaultTimeout  = 60 * time.Second
	maxErrorBody    = 256 * 1024
	maxRefreshBody  = 32 * 1024
	requestIDHeader = "X-Request-ID"
)

// StatusError reports a non-2xx response from a JSON endpoint.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// Request describes one API call. Bodies that may need to be re-issued
// after a token refresh must be supplied through GetBody; Body alone is
// consumed by the first attempt.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	ContentType string // empty means not set; multipart callers rely on this
	Body        io.Reader
	GetBody     func() (io.ReadCloser, error)

	// Anonymous skips bearer attachment and the 401 refresh path. Used by
	// credential endpoints, where a 401 means bad credentials, not an
	// expired session.
	Anonymous bool
}

// Client is the authenticated HTTP client for the translation backend.
type Client struct {
	baseURL     string
	refreshPath string
	httpClient  *http.Client
	tokens      *tokenstore.Store
	events      *notifier.Notifier
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRefreshPath overrides the token refresh endpoint.
func WithRefreshPath(path string) Option {
	return func(c *Client) { c.refreshPath = path }
}

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a client for the given base URL. tokens and events are shared
// process-wide state; only this client and the session controller write to
// the store.
func New(baseURL string, tokens *tokenstore.Store, events *notifier.Notifier, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		refreshPath: DefaultRefreshPath,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		tokens:      tokens,
		events:      events,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Do performs the request. On a 401 with a refresh token available it
// refreshes once and re-issues the original request once; the caller sees
// only the final response. A 401 that survives the refresh attempt clears
// the session and is returned as-is. Transport errors propagate unchanged.
func (c *Client) Do(ctx context.Context, r Request) (*http.Response, error) {
	requestID := uuid.NewString()
	started := time.Now()

	ctx, span := telemetry.Tracer().Start(ctx, "api.request")
	defer span.End()
	span.SetAttributes(
		attribute.String("tradutor.request_id", requestID),
		attribute.String("http.method", r.Method),
		attribute.String("http.path", r.Path),
	)

	bearer := ""
	if !r.Anonymous {
		if pair, ok := c.tokens.Get(); ok {
			bearer = pair.AccessToken
		}
	}

	resp, err := c.attempt(ctx, r, bearer, requestID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveRequest(r.Method, r.Path, "error", started)
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !r.Anonymous {
		resp, err = c.recoverUnauthorized(ctx, r, resp, requestID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			metrics.ObserveRequest(r.Method, r.Path, "error", started)
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	metrics.ObserveRequest(r.Method, r.Path, strconv.Itoa(resp.StatusCode), started)
	c.logger.Debug("api request",
		zap.String("method", r.Method),
		zap.String("path", r.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
		zap.String("request_id", requestID),
	)
	return resp, nil
}

// recoverUnauthorized handles the single refresh-and-retry cycle. It
// consumes the original 401 response when a retry happens.
func (c *Client) recoverUnauthorized(ctx context.Context, r Request, unauthorized *http.Response, requestID string) (*http.Response, error) {
	pair, ok := c.tokens.Get()
	if !ok || strings.TrimSpace(pair.RefreshToken) == "" {
		c.clearSession("no refresh token")
		return unauthorized, nil
	}

	refreshed, err := c.refresh(ctx, pair)
	if err != nil {
		metrics.RecordRefresh("failed")
		c.clearSession(fmt.Sprintf("refresh failed: %v", err))
		return unauthorized, nil
	}
	metrics.RecordRefresh("ok")

	if r.Body != nil && r.GetBody == nil {
		// Body already consumed and not replayable; the session is valid
		// again but this call cannot be transparently re-issued.
		return unauthorized, nil
	}

	drain(unauthorized)
	retried, err := c.attempt(ctx, r, refreshed.AccessToken, requestID)
	if err != nil {
		return nil, err
	}
	if retried.StatusCode == http.StatusUnauthorized {
		// A second 401 after a successful refresh is terminal.
		c.clearSession("retried request still unauthorized")
	}
	return retried, nil
}

func (c *Client) attempt(ctx context.Context, r Request, bearer, requestID string) (*http.Response, error) {
	body := r.Body
	if r.GetBody != nil {
		rc, err := r.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to build request body: %w", err)
		}
		body = rc
	}

	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set(requestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	return resp, nil
}

// refresh exchanges the refresh token for a new pair and persists it. The
// old refresh token is kept when the backend does not rotate it.
func (c *Client) refresh(ctx context.Context, pair tokenstore.TokenPair) (tokenstore.TokenPair, error) {
	payload, err := json.Marshal(map[string]string{"refresh_token": pair.RefreshToken})
	if err != nil {
		return tokenstore.TokenPair{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.refreshPath, bytes.NewReader(payload))
	if err != nil {
		return tokenstore.TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tokenstore.TokenPair{}, fmt.Errorf("token refresh request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRefreshBody))
	if err != nil {
		return tokenstore.TokenPair{}, fmt.Errorf("failed to read refresh response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ServerMessage(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return tokenstore.TokenPair{}, fmt.Errorf("token refresh failed (%d): %s", resp.StatusCode, msg)
	}

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return tokenstore.TokenPair{}, fmt.Errorf("failed to parse refresh response: %w", err)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return tokenstore.TokenPair{}, errors.New("refresh response missing access_token")
	}

	next := tokenstore.TokenPair{
		AccessToken:  out.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
	if strings.TrimSpace(out.RefreshToken) != "" {
		next.RefreshToken = out.RefreshToken
	}
	if err := c.tokens.Save(next); err != nil {
		return tokenstore.TokenPair{}, fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	return next, nil
}

func (c *Client) clearSession(reason string) {
	_ = c.tokens.Clear()
	metrics.SessionClearsTotal.Inc()
	c.logger.Warn("session cleared", zap.String("reason", reason))
	c.events.Publish()
}

// DoJSON performs a JSON request and decodes the response into out (which
// may be nil). Non-2xx responses are returned as a *StatusError carrying
// the server message.
func (c *Client) DoJSON(ctx context.Context, method, path string, body any, out any) error {
	r := Request{
		Method: method,
		Path:   path,
		Header: http.Header{"Accept": []string{"application/json"}},
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		r.ContentType = "application/json"
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	}

	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ServerMessage(respBody)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse api response: %w", err)
	}
	return nil
}

// GetJSON issues an authenticated GET and decodes the JSON response.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON issues an authenticated POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, http.MethodPost, path, body, out)
}

// ServerMessage extracts a human-readable message from an error response
// body. Backends differ on the field name; unparseable bodies fall back to
// the raw text.
func ServerMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}
	return strings.TrimSpace(string(body))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
