package auth

import (
	"testing"
	"time"

	"stockwatch/config"
)

func testConfig() *config.AuthConfig {
	return &config.AuthConfig{
		Secret: "test-secret",
		Issuer: "stockwatch",
		Expiry: time.Hour,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	token, err := GenerateToken(cfg, "admin")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken(cfg, token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Username != "admin" {
		t.Fatalf("username = %q", claims.Username)
	}
	if claims.Issuer != "stockwatch" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	token, err := GenerateToken(cfg, "admin")
	if err != nil {
		t.Fatal(err)
	}
	other := &config.AuthConfig{Secret: "different", Issuer: "stockwatch", Expiry: time.Hour}
	if _, err := ParseToken(other, token); err == nil {
		t.Fatal("expected rejection with wrong secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	cfg := testConfig()
	cfg.Expiry = -time.Minute
	token, err := GenerateToken(cfg, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(cfg, token); err == nil {
		t.Fatal("expected rejection of expired token")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseToken(testConfig(), "not.a.token"); err == nil {
		t.Fatal("expected rejection")
	}
}
