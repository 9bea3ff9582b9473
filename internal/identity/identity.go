// Package identity derives the session user from the current access token.
// Resolution never fails loudly: a missing or malformed token simply yields
// no user.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// User is the minimal profile the UI needs. It is derived, disposable state:
// recomputed whenever the token changes, replaced wholesale, never mutated.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
}

// Resolve decodes the access token payload locally and builds the user.
// Returns nil for an empty or non-JWT-shaped token; it never panics.
func Resolve(accessToken string) *User {
	claims, ok := DecodePayload(accessToken)
	if !ok {
		return nil
	}
	return FromClaims(claims)
}

// DecodePayload extracts the JSON payload of a JWT without verifying the
// signature. Verification belongs to the backend; the client only reads
// display claims from it.
func DecodePayload(token string) (map[string]any, bool) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 {
		return nil, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		// Some issuers pad the segment.
		raw, err = base64.URLEncoding.DecodeString(parts[1])
		if err != nil {
			return nil, false
		}
	}
	var claims map[string]any
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, false
	}
	return claims, true
}

// FromClaims builds a user from a decoded claim set, tolerating the field
// name variants the backend deployments use. Returns nil when the claims
// identify nobody.
func FromClaims(claims map[string]any) *User {
	if len(claims) == 0 {
		return nil
	}

	email := claimString(claims, "email")
	user := &User{
		ID:    firstNonEmpty(claimAny(claims, "id"), claimString(claims, "sub")),
		Email: email,
		DisplayName: firstNonEmpty(
			claimString(claims, "name"),
			claimString(claims, "username"),
			emailLocalPart(email),
		),
		Role: NormalizeRole(roleClaim(claims)),
	}
	if user.ID == "" && user.Email == "" {
		return nil
	}
	if user.DisplayName == "" {
		user.DisplayName = user.ID
	}
	return user
}

// NormalizeRole maps a role claim to one of the two canonical roles,
// "user" or "admin". Claims arrive as a plain string, a ROLE_-prefixed
// string, or an array of either; anything unrecognized defaults to "user".
func NormalizeRole(claim any) string {
	for _, candidate := range claimAsStrings(claim) {
		role := strings.ToLower(strings.TrimPrefix(strings.ToUpper(candidate), "ROLE_"))
		if role == "admin" {
			return "admin"
		}
	}
	return "user"
}

func roleClaim(claims map[string]any) any {
	for _, key := range []string{"role", "roles", "authorities"} {
		if v, ok := claims[key]; ok {
			return v
		}
	}
	return nil
}

func claimAsStrings(v any) []string {
	switch typed := v.(type) {
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil
		}
		return []string{strings.TrimSpace(typed)}
	case []string:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func claimString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}

// claimAny stringifies id-ish claims, which some backends emit as numbers.
func claimAny(claims map[string]any, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func emailLocalPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return ""
}
