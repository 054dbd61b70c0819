package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/markethub/storefront-gateway/pkg/config"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret"}
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: "17", TTL: 10 * time.Minute, JTI: "jti-1"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != "17" {
		t.Fatalf("expected user id 17, got %q", claims.UserID)
	}
	if claims.JTI != "jti-1" {
		t.Fatalf("expected jti preserved, got %q", claims.JTI)
	}
	if claims.TokenType != "access" {
		t.Fatalf("expected access token type, got %q", claims.TokenType)
	}
	if claims.ExpiresAt.Unix() != now.Add(10*time.Minute).Unix() {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	token, err := MintAccessToken(config.JWTConfig{Secret: "secret"}, time.Now(), AccessTokenPayload{UserID: "1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(config.JWTConfig{Secret: "other"}, token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret"}
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: "1", TTL: time.Minute})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseAccessTokenNumericSubject(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret"}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 42,
		"exp": jwt.NewNumericDate(now.Add(time.Minute)),
	})
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "42" {
		t.Fatalf("expected numeric sub to become \"42\", got %q", claims.UserID)
	}
}

func TestParseAccessTokenRejectsRefreshType(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret"}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "1",
		"type": "refresh",
		"exp":  jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatalf("refresh tokens must not authenticate requests")
	}
}

func TestMintRequiresSecretAndUser(t *testing.T) {
	if _, err := MintAccessToken(config.JWTConfig{}, time.Now(), AccessTokenPayload{UserID: "1"}); err == nil {
		t.Fatalf("expected error without secret")
	}
	if _, err := MintAccessToken(config.JWTConfig{Secret: "s"}, time.Now(), AccessTokenPayload{}); err == nil {
		t.Fatalf("expected error without user id")
	}
}

func TestFingerprintStable(t *testing.T) {
	if Fingerprint("abc") != Fingerprint("abc") {
		t.Fatalf("fingerprint should be deterministic")
	}
	if Fingerprint("abc") == Fingerprint("abd") {
		t.Fatalf("fingerprint should differ per token")
	}
	if len(Fingerprint("abc")) != 16 {
		t.Fatalf("expected 16 hex chars")
	}
}
