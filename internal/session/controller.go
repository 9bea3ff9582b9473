// Package session exposes the authentication façade used by UI code:
// login, register, logout and the current user. It composes the token
// store, notifier, HTTP client and identity resolver; nothing else in the
// application talks to the credential endpoints directly.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/marcus-qen/tradutor/internal/apiclient"
	"github.com/marcus-qen/tradutor/internal/apierrors"
	"github.com/marcus-qen/tradutor/internal/identity"
	"github.com/marcus-qen/tradutor/internal/notifier"
	"github.com/marcus-qen/tradutor/internal/tokenstore"
)

// Canonical backend endpoints. The observed deployments disagree on paths
// and field casing; this client speaks exactly one contract.
const (
	SigninPath = "/api/auth/signin"
	SignupPath = "/api/auth/signup"
	MePath     = "/api/auth/me"
	ForgotPath = "/auth/password/forgot"
	ResetPath  = "/auth/password/reset"
)

// Controller is the session façade. It owns the cached identity; the cache
// is invalidated by session-changed events, so any writer to the token
// store that publishes keeps the controller consistent.
type Controller struct {
	api    *apiclient.Client
	tokens *tokenstore.Store
	events *notifier.Notifier
	logger *zap.Logger

	mu   sync.Mutex
	user *identity.User
}

// New creates a controller and subscribes it to session events for cache
// invalidation.
func New(api *apiclient.Client, tokens *tokenstore.Store, events *notifier.Notifier, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		api:    api,
		tokens: tokens,
		events: events,
		logger: logger,
	}
	events.Subscribe(c.invalidate)
	return c
}

func (c *Controller) invalidate() {
	c.mu.Lock()
	c.user = nil
	c.mu.Unlock()
}

type signinResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates with email and password. On success the token pair is
// persisted, a session event is published and the identity is resolved.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	status, body, err := c.postCredentials(ctx, SigninPath, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("login: %w", apierrors.Network(err))
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("login: %w", apierrors.FromStatus(status, apiclient.ServerMessage(body)))
	}

	var resp signinResponse
	claims := map[string]any{}
	if err := json.Unmarshal(body, &resp); err != nil || strings.TrimSpace(resp.AccessToken) == "" {
		return fmt.Errorf("login: %w", apierrors.New(apierrors.KindServerError, status, "malformed signin response"))
	}
	// Profile fields ride along on the signin response in some deployments.
	_ = json.Unmarshal(body, &claims)

	if err := c.tokens.Save(tokenstore.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.events.Publish()

	user := identity.Resolve(resp.AccessToken)
	if user == nil {
		user = identity.FromClaims(claims)
	}
	if user == nil {
		// Opaque token and no profile fields: fall back to the submitted
		// email so the session is never half-populated.
		user = identity.FromClaims(map[string]any{"email": email})
	}

	c.mu.Lock()
	c.user = user
	c.mu.Unlock()

	c.logger.Info("logged in", zap.String("email", email))
	return nil
}

type signupResponse struct {
	ActivationRequired bool `json:"activationRequired"`
}

// Register creates an account and chains into Login with the same
// credentials, unless the backend flags that the account needs separate
// activation.
func (c *Controller) Register(ctx context.Context, name, email, password string) error {
	username := strings.TrimSpace(name)
	if username == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			username = email[:at]
		} else {
			username = email
		}
	}

	status, body, err := c.postCredentials(ctx, SignupPath, map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("register: %w", apierrors.Network(err))
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("register: %w", apierrors.FromStatus(status, apiclient.ServerMessage(body)))
	}

	var resp signupResponse
	_ = json.Unmarshal(body, &resp)
	if resp.ActivationRequired {
		c.logger.Info("registered, activation pending", zap.String("email", email))
		return nil
	}

	return c.Login(ctx, email, password)
}

// Logout clears the token store and publishes a session event. It never
// fails: a missing token file is already the logged-out state.
func (c *Controller) Logout() {
	_ = c.tokens.Clear()
	c.events.Publish()
	c.logger.Info("logged out")
}

// CurrentUser returns the resolved identity for the active session, or nil
// when anonymous. Resolution is cached and recomputed after any session
// change.
func (c *Controller) CurrentUser() *identity.User {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.user != nil {
		return c.user
	}
	pair, ok := c.tokens.Get()
	if !ok {
		return nil
	}
	c.user = identity.Resolve(pair.AccessToken)
	return c.user
}

// WhoAmI asks the backend for the authenticated identity. It is the remote
// counterpart of local token decoding, for deployments with opaque tokens.
func (c *Controller) WhoAmI(ctx context.Context) (*identity.User, error) {
	var claims map[string]any
	if err := c.api.GetJSON(ctx, MePath, &claims); err != nil {
		return nil, c.classify("whoami", err)
	}
	user := identity.FromClaims(claims)
	if user == nil {
		return nil, fmt.Errorf("whoami: %w", apierrors.New(apierrors.KindServerError, 0, "malformed identity response"))
	}

	c.mu.Lock()
	c.user = user
	c.mu.Unlock()
	return user, nil
}

// ForgotPassword requests a password reset email.
func (c *Controller) ForgotPassword(ctx context.Context, email string) error {
	status, body, err := c.postCredentials(ctx, ForgotPath, map[string]string{"email": email})
	if err != nil {
		return fmt.Errorf("forgot password: %w", apierrors.Network(err))
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("forgot password: %w", apierrors.FromStatus(status, apiclient.ServerMessage(body)))
	}
	return nil
}

// ResetPassword completes a password reset with the emailed token.
func (c *Controller) ResetPassword(ctx context.Context, token, newPassword string) error {
	status, body, err := c.postCredentials(ctx, ResetPath, map[string]string{
		"token":    token,
		"password": newPassword,
	})
	if err != nil {
		return fmt.Errorf("reset password: %w", apierrors.Network(err))
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("reset password: %w", apierrors.FromStatus(status, apiclient.ServerMessage(body)))
	}
	return nil
}

// postCredentials issues an anonymous JSON POST and returns the raw status
// and body. Credential endpoints bypass the refresh path: a 401 here means
// bad credentials, not an expired session.
func (c *Controller) postCredentials(ctx context.Context, path string, payload map[string]string) (int, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.api.Do(ctx, apiclient.Request{
		Method:      http.MethodPost,
		Path:        path,
		ContentType: "application/json",
		Header:      http.Header{"Accept": []string{"application/json"}},
		GetBody: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(string(b))), nil
		},
		Anonymous: true,
	})
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	return resp.StatusCode, body, nil
}

// classify maps client-layer errors onto the session error taxonomy. A 401
// on an authenticated endpoint only reaches here after the refresh path is
// exhausted, so it surfaces as an expired session.
func (c *Controller) classify(op string, err error) error {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("%s: %w", op, apierrors.New(apierrors.KindSessionExpired, statusErr.Status, statusErr.Message))
		}
		return fmt.Errorf("%s: %w", op, apierrors.FromStatus(statusErr.Status, statusErr.Message))
	}
	return fmt.Errorf("%s: %w", op, apierrors.Network(err))
}
