package jwt

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret-0123456789abcdef0123456789"

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService(testSecret, "marketplace", time.Hour)

	token, err := svc.GenerateAccessToken(42, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Issuer != "marketplace" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	token, err := NewJWTService(testSecret, "marketplace", time.Hour).GenerateAccessToken(1, "bob")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = NewJWTService("another-secret-0123456789abcdefghij", "marketplace", time.Hour).ValidateToken(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateExpired(t *testing.T) {
	svc := NewJWTService(testSecret, "marketplace", -time.Minute)
	token, err := svc.GenerateAccessToken(1, "bob")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = svc.ValidateToken(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateRejectsMissingUser(t *testing.T) {
	svc := NewJWTService(testSecret, "marketplace", time.Hour)
	token, err := svc.GenerateAccessToken(0, "ghost")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsForeignIssuer(t *testing.T) {
	token, err := NewJWTService(testSecret, "other-shop", time.Hour).GenerateAccessToken(3, "eve")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTService(testSecret, "marketplace", time.Hour).ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	// 未配置签发者时不校验 iss
	if _, err := NewJWTService(testSecret, "", time.Hour).ValidateToken(token); err != nil {
		t.Fatalf("issuer-less validate: %v", err)
	}
}
