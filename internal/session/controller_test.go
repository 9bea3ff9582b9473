package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/marcus-qen/tradutor/internal/apiclient"
	"github.com/marcus-qen/tradutor/internal/apierrors"
	"github.com/marcus-qen/tradutor/internal/notifier"
	"github.com/marcus-qen/tradutor/internal/tokenstore"
)

type fixture struct {
	controller *Controller
	tokens     *tokenstore.Store
	events     *notifier.Notifier
}

func newFixture(t *testing.T, handler http.Handler) (*fixture, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := tokenstore.NewStore(filepath.Join(t.TempDir(), "token.json"))
	events := notifier.New()
	api := apiclient.New(srv.URL, tokens, events)
	return &fixture{
		controller: New(api, tokens, events, zap.NewNop()),
		tokens:     tokens,
		events:     events,
	}, srv
}

func jwt(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	return "h." + base64.RawURLEncoding.EncodeToString(payload) + ".s"
}

func TestLoginPersistsPairAndResolvesUser(t *testing.T) {
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SigninPath || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds["email"] != "a@b.com" || creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  "abc",
			"refreshToken": "xyz",
		})
	}))

	if err := fx.controller.Login(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatal(err)
	}

	pair, ok := fx.tokens.Get()
	if !ok {
		t.Fatal("expected persisted pair")
	}
	if pair.AccessToken != "abc" || pair.RefreshToken != "xyz" {
		t.Fatalf("unexpected pair: %+v", pair)
	}

	user := fx.controller.CurrentUser()
	if user == nil {
		t.Fatal("expected current user")
	}
	if user.Email != "a@b.com" {
		t.Fatalf("unexpected email: %q", user.Email)
	}
}

func TestLoginResolvesIdentityFromJWT(t *testing.T) {
	var token string
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": token})
	}))
	token = jwt(t, map[string]any{
		"sub":   "42",
		"email": "ana@example.com",
		"name":  "Ana",
		"role":  "ROLE_ADMIN",
	})

	if err := fx.controller.Login(context.Background(), "ana@example.com", "pw"); err != nil {
		t.Fatal(err)
	}

	user := fx.controller.CurrentUser()
	if user == nil {
		t.Fatal("expected user")
	}
	if user.DisplayName != "Ana" || user.Role != "admin" || user.ID != "42" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLoginErrorKinds(t *testing.T) {
	cases := []struct {
		status int
		want   apierrors.Kind
	}{
		{http.StatusUnauthorized, apierrors.KindInvalidCredentials},
		{http.StatusBadRequest, apierrors.KindValidationError},
		{http.StatusInternalServerError, apierrors.KindServerError},
		{http.StatusTeapot, apierrors.KindNetworkError},
	}
	for _, tc := range cases {
		fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		err := fx.controller.Login(context.Background(), "a@b.com", "bad")
		if !apierrors.IsKind(err, tc.want) {
			t.Errorf("status %d: got kind %q want %q (err: %v)", tc.status, apierrors.KindOf(err), tc.want, err)
		}
		if _, ok := fx.tokens.Get(); ok {
			t.Errorf("status %d: failed login must not persist tokens", tc.status)
		}
	}
}

func TestLoginMalformedSuccessBodyIsServerError(t *testing.T) {
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	err := fx.controller.Login(context.Background(), "a@b.com", "secret")
	if !apierrors.IsKind(err, apierrors.KindServerError) {
		t.Fatalf("expected server error kind, got %v", err)
	}
}

func TestLoginNetworkError(t *testing.T) {
	tokens := tokenstore.NewStore(filepath.Join(t.TempDir(), "token.json"))
	events := notifier.New()
	api := apiclient.New("http://127.0.0.1:1", tokens, events)
	controller := New(api, tokens, events, zap.NewNop())

	err := controller.Login(context.Background(), "a@b.com", "secret")
	if !apierrors.IsKind(err, apierrors.KindNetworkError) {
		t.Fatalf("expected network error kind, got %v", err)
	}
}

func TestRegisterAutoLogin(t *testing.T) {
	var signupCalls, signinCalls int
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SignupPath:
			signupCalls++
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["username"] != "ana" {
				t.Errorf("expected username derived from email, got %q", req["username"])
			}
			w.WriteHeader(http.StatusCreated)
		case SigninPath:
			signinCalls++
			_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "abc"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	if err := fx.controller.Register(context.Background(), "", "ana@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if signupCalls != 1 || signinCalls != 1 {
		t.Fatalf("expected signup then signin, got %d/%d", signupCalls, signinCalls)
	}
	if _, ok := fx.tokens.Get(); !ok {
		t.Fatal("expected auto-login to persist tokens")
	}
}

func TestRegisterActivationRequiredSkipsLogin(t *testing.T) {
	var signinCalls int
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SignupPath:
			_ = json.NewEncoder(w).Encode(map[string]bool{"activationRequired": true})
		case SigninPath:
			signinCalls++
		}
	}))

	if err := fx.controller.Register(context.Background(), "Ana", "ana@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if signinCalls != 0 {
		t.Fatal("activation-required signup must not auto-login")
	}
	if _, ok := fx.tokens.Get(); ok {
		t.Fatal("no tokens expected before activation")
	}
}

func TestRegisterDuplicateAccount(t *testing.T) {
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"email already registered"}`))
	}))
	err := fx.controller.Register(context.Background(), "Ana", "ana@example.com", "pw")
	if !apierrors.IsKind(err, apierrors.KindDuplicateAccount) {
		t.Fatalf("expected duplicate account kind, got %v", err)
	}
}

func TestLogoutClearsSessionAndPublishesOnce(t *testing.T) {
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "abc", "refreshToken": "xyz"})
	}))
	if err := fx.controller.Login(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatal(err)
	}

	var published int
	fx.events.Subscribe(func() { published++ })

	fx.controller.Logout()

	if _, ok := fx.tokens.Get(); ok {
		t.Fatal("expected cleared token store")
	}
	if fx.controller.CurrentUser() != nil {
		t.Fatal("expected nil current user after logout")
	}
	if published != 1 {
		t.Fatalf("expected exactly one session event, got %d", published)
	}
}

func TestCurrentUserAnonymous(t *testing.T) {
	fx, _ := newFixture(t, http.NotFoundHandler())
	if fx.controller.CurrentUser() != nil {
		t.Fatal("expected nil user with empty store")
	}
}

func TestCurrentUserRecomputedAfterSessionChange(t *testing.T) {
	fx, _ := newFixture(t, http.NotFoundHandler())

	token := jwt(t, map[string]any{"sub": "7", "email": "x@y.z"})
	if err := fx.tokens.Save(tokenstore.TokenPair{AccessToken: token}); err != nil {
		t.Fatal(err)
	}
	fx.events.Publish()

	user := fx.controller.CurrentUser()
	if user == nil || user.ID != "7" {
		t.Fatalf("expected re-resolved user, got %+v", user)
	}
}

func TestWhoAmI(t *testing.T) {
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != MePath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "9",
			"email": "who@am.i",
			"name":  "Who",
			"role":  "ROLE_USER",
		})
	}))
	if err := fx.tokens.Save(tokenstore.TokenPair{AccessToken: "abc"}); err != nil {
		t.Fatal(err)
	}

	user, err := fx.controller.WhoAmI(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != "9" || user.Role != "user" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestWhoAmIExpiredSession(t *testing.T) {
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	if err := fx.tokens.Save(tokenstore.TokenPair{AccessToken: "stale"}); err != nil {
		t.Fatal(err)
	}

	_, err := fx.controller.WhoAmI(context.Background())
	if !apierrors.IsKind(err, apierrors.KindSessionExpired) {
		t.Fatalf("expected session expired kind, got %v", err)
	}
	if _, ok := fx.tokens.Get(); ok {
		t.Fatal("expected cleared session after irrecoverable 401")
	}
}
