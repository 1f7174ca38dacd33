package auth

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret, subject, role string, expiresIn time.Duration) string {
	t.Helper()

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestParseValidToken(t *testing.T) {
	v := NewVerifier("secret")

	identity, err := v.Parse(signToken(t, "secret", "user-1", "moderator", time.Minute))
	if err != nil {
		t.Fatalf("parse valid token: %v", err)
	}
	if identity.UserID != "user-1" {
		t.Fatalf("unexpected user id: %s", identity.UserID)
	}
	if identity.Role != "MODERATOR" {
		t.Fatalf("unexpected role: %s", identity.Role)
	}
}

func TestParseDefaultsRoleToUser(t *testing.T) {
	v := NewVerifier("secret")

	identity, err := v.Parse(signToken(t, "secret", "user-2", "", time.Minute))
	if err != nil {
		t.Fatalf("parse valid token: %v", err)
	}
	if identity.Role != "USER" {
		t.Fatalf("unexpected role: %s", identity.Role)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	v := NewVerifier("secret")

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "garbage", raw: "not-a-token"},
		{name: "wrong secret", raw: signToken(t, "other-secret", "user-3", "user", time.Minute)},
		{name: "expired", raw: signToken(t, "secret", "user-4", "user", -time.Minute)},
		{name: "empty subject", raw: signToken(t, "secret", "", "user", time.Minute)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Parse(tc.raw); !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}
