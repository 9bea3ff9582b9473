package identity

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func token(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		claim any
		want  string
	}{
		{"ROLE_ADMIN", "admin"},
		{[]any{"ROLE_ADMIN"}, "admin"},
		{[]string{"ROLE_USER", "ROLE_ADMIN"}, "admin"},
		{"admin", "admin"},
		{"Admin", "admin"},
		{"ROLE_USER", "user"},
		{"superuser", "user"},
		{nil, "user"},
		{"", "user"},
		{42, "user"},
	}
	for _, tc := range cases {
		if got := NormalizeRole(tc.claim); got != tc.want {
			t.Errorf("NormalizeRole(%v): got %q want %q", tc.claim, got, tc.want)
		}
	}
}

func TestResolveFromToken(t *testing.T) {
	u := Resolve(token(t, map[string]any{
		"sub":   "42",
		"email": "a@b.com",
		"name":  "Ana",
		"role":  "ROLE_ADMIN",
	}))
	if u == nil {
		t.Fatal("expected user")
	}
	if u.ID != "42" || u.Email != "a@b.com" || u.DisplayName != "Ana" || u.Role != "admin" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestResolveDisplayNameFallsBackToEmailLocalPart(t *testing.T) {
	u := Resolve(token(t, map[string]any{"sub": "7", "email": "ana@example.com"}))
	if u == nil {
		t.Fatal("expected user")
	}
	if u.DisplayName != "ana" {
		t.Fatalf("expected local-part fallback, got %q", u.DisplayName)
	}
	if u.Role != "user" {
		t.Fatalf("expected default role, got %q", u.Role)
	}
}

func TestResolveNumericID(t *testing.T) {
	u := Resolve(token(t, map[string]any{"id": float64(15), "email": "x@y.z"}))
	if u == nil {
		t.Fatal("expected user")
	}
	if u.ID != "15" {
		t.Fatalf("expected numeric id stringified, got %q", u.ID)
	}
}

func TestResolveMalformedTokens(t *testing.T) {
	for _, tok := range []string{
		"",
		"not-a-jwt",
		"one.two",            // payload not base64 JSON
		"a.!!!!.c",           // invalid base64
		"a." + base64.RawURLEncoding.EncodeToString([]byte("[1,2]")) + ".c", // not an object
	} {
		if u := Resolve(tok); u != nil {
			t.Errorf("Resolve(%q): expected nil, got %+v", tok, u)
		}
	}
}

func TestResolvePaddedPayload(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"sub":"1","email":"p@q.r"}`))
	if u := Resolve("h." + payload + ".s"); u == nil {
		t.Fatal("expected padded payload to decode")
	}
}

func TestFromClaimsEmptyIsNil(t *testing.T) {
	if FromClaims(nil) != nil {
		t.Fatal("nil claims must yield nil user")
	}
	if FromClaims(map[string]any{"role": "admin"}) != nil {
		t.Fatal("claims identifying nobody must yield nil user")
	}
}
