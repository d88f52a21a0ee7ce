package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"placementcell/internal/common"
)

func TestJWTRoundTrip(t *testing.T) {
	provider := NewJWTProvider("0123456789abcdef")
	userID := common.NewUUID()

	token, expiresAt, err := provider.Generate(userID, "coordinator", "", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("expected expiry in the future")
	}
	claims, err := provider.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != userID.String() || claims.Role != "coordinator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTRejectsTamperedSignature(t *testing.T) {
	provider := NewJWTProvider("0123456789abcdef")
	token, _, err := provider.Generate(common.NewUUID(), "student", "", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	other := NewJWTProvider("another-secret-value")
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := provider.Parse(strings.TrimSuffix(token, token[len(token)-2:])); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for truncated signature, got %v", err)
	}
}

func TestJWTExpired(t *testing.T) {
	provider := NewJWTProvider("0123456789abcdef")
	provider.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := provider.Generate(common.NewUUID(), "admin", "", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	provider.now = time.Now
	if _, err := provider.Parse(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected too short error, got %v", err)
	}
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Fatal("expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Fatal("expected mismatch")
	}
	if CheckPassword("", "anything") {
		t.Fatal("expected empty hash to never match")
	}
}

func TestGoogleStateValidation(t *testing.T) {
	signer := NewJWTProvider("0123456789abcdef")
	provider := NewGoogleProvider("client", "secret", "http://localhost/callback", signer)

	url := provider.AuthCodeURL()
	if !strings.Contains(url, "client_id=client") {
		t.Fatalf("expected client id in url, got %s", url)
	}
	state := provider.newState()
	if err := provider.ValidateState(state); err != nil {
		t.Fatalf("expected valid state, got %v", err)
	}
	if err := provider.ValidateState(state + "x"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	provider.now = func() time.Time { return time.Now().Add(time.Hour) }
	if err := provider.ValidateState(state); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected expired state, got %v", err)
	}
}
