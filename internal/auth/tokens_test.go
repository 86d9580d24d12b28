package auth

import (
	"errors"
	"testing"
	"time"
)

func testConfig() *TokenConfig {
	return &TokenConfig{
		Secret: []byte("test-secret"),
		Issuer: "iquiz-test",
		TTL:    time.Hour,
	}
}

func TestMintAndValidateHostToken(t *testing.T) {
	cfg := testConfig()

	token, err := MintHostToken(cfg, "482913")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ValidateHostToken(cfg, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.RoomID != "482913" {
		t.Fatalf("expected room 482913, got %q", claims.RoomID)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()

	token, err := MintHostToken(cfg, "482913")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := testConfig()
	other.Secret = []byte("different-secret")
	if _, err := ValidateHostToken(other, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = -time.Minute

	token, err := MintHostToken(cfg, "482913")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ValidateHostToken(cfg, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	cfg := testConfig()

	token, err := MintHostToken(cfg, "482913")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := testConfig()
	other.Issuer = "someone-else"
	if _, err := ValidateHostToken(other, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := ValidateHostToken(testConfig(), "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
