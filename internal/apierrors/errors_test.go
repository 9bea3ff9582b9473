package apierrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFromStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{401, KindInvalidCredentials},
		{400, KindValidationError},
		{409, KindDuplicateAccount},
		{500, KindServerError},
		{502, KindServerError},
		{418, KindNetworkError},
	}
	for _, tc := range cases {
		if got := FromStatus(tc.status, "").Kind; got != tc.want {
			t.Errorf("status %d: got %s want %s", tc.status, got, tc.want)
		}
	}
}

func TestNetworkPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Network(cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected cause to survive unwrapping")
	}
	if KindOf(err) != KindNetworkError {
		t.Fatalf("unexpected kind: %s", KindOf(err))
	}
}

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("login: %w", New(KindInvalidCredentials, 401, "bad password"))
	if !IsKind(err, KindInvalidCredentials) {
		t.Fatal("expected invalid credentials kind through wrapping")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("plain error must have no kind")
	}
}
