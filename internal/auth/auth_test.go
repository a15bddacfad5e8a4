package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("hash equals plaintext")
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if err := CheckPassword(hash, "wrong horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestIssuerPair(t *testing.T) {
	iss := NewIssuer("0123456789abcdef", time.Minute, time.Hour)

	access, refresh, err := iss.Pair("user-1")
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if access == refresh {
		t.Fatalf("access and refresh tokens must differ")
	}

	if id, err := iss.Verify(access, AccessToken); err != nil || id != "user-1" {
		t.Fatalf("Verify(access) = %q, %v", id, err)
	}
	if id, err := iss.Verify(refresh, RefreshToken); err != nil || id != "user-1" {
		t.Fatalf("Verify(refresh) = %q, %v", id, err)
	}
	if _, err := iss.Verify(refresh, AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access token")
	}
}

func TestVerifyRejects(t *testing.T) {
	iss := NewIssuer("0123456789abcdef", time.Minute, time.Hour)
	token, err := iss.Access("user-1")
	if err != nil {
		t.Fatalf("Access: %v", err)
	}

	other := NewIssuer("fedcba9876543210", time.Minute, time.Hour)
	if _, err := other.Verify(token, AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token signed with another secret accepted")
	}

	expired := NewIssuer("0123456789abcdef", time.Minute, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := expired.Verify(token, AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted")
	}

	if _, err := iss.Verify("not-a-jwt", AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage accepted")
	}
}

func TestUserIDContext(t *testing.T) {
	if _, ok := UserID(context.Background()); ok {
		t.Fatalf("empty context reported a user")
	}
	ctx := WithUserID(context.Background(), "u-9")
	if id, ok := UserID(ctx); !ok || id != "u-9" {
		t.Fatalf("UserID() = %q, %v", id, ok)
	}
}
