package auth

import (
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "password123" {
		t.Fatal("hash equals plaintext")
	}
	if err := CheckPassword(hash, "password123"); err != nil {
		t.Fatalf("CheckPassword(correct): %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("CheckPassword(wrong) = %v, want ErrInvalidCredentials", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	token, err := issuer.Issue(42, "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	userID, role, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
	if role != "user" {
		t.Errorf("role = %s, want user", role)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"wrong secret", mustIssue(t, NewTokenIssuer("another-secret-another-secret-ab", time.Hour))},
		{"expired", mustIssue(t, NewTokenIssuer(testSecret, -time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := issuer.Verify(tt.token); err != ErrInvalidToken {
				t.Fatalf("Verify = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func mustIssue(t *testing.T, issuer *TokenIssuer) string {
	t.Helper()
	token, err := issuer.Issue(1, "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}
