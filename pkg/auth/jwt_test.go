package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/vanessaachristy/mymedtrust-be/internal/config"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
)

func testManager(accessTTL time.Duration) *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret!",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: time.Hour,
		Issuer:          "test",
	})
}

func testClaims() *domain.Claims {
	return &domain.Claims{
		Email:    "alice@example.com",
		Address:  "0x1111111111111111111111111111111111111111",
		UserType: domain.UserTypePatient,
	}
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := testManager(time.Minute)

	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", pair.TokenType)
	}

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Address != testClaims().Address {
		t.Errorf("Address = %q", claims.Address)
	}
	if claims.UserType != domain.UserTypePatient {
		t.Errorf("UserType = %q", claims.UserType)
	}

	if _, err := m.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Errorf("ValidateRefreshToken() error = %v", err)
	}
}

func TestTokenTypeMismatch(t *testing.T) {
	m := testManager(time.Minute)
	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	if _, err := m.ValidateAccessToken(pair.RefreshToken); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Errorf("refresh token accepted as access token: %v", err)
	}
	if _, err := m.ValidateRefreshToken(pair.AccessToken); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Errorf("access token accepted as refresh token: %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	m := testManager(-time.Minute)
	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	if _, err := m.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ValidateAccessToken() error = %v, want ErrTokenExpired", err)
	}
}

func TestTamperedToken(t *testing.T) {
	m := testManager(time.Minute)
	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	other := NewJWTManager(config.JWTConfig{
		Secret:          "a-completely-different-signing-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "test",
	})
	if _, err := other.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("token signed with another secret accepted: %v", err)
	}

	if _, err := m.ValidateAccessToken(pair.AccessToken + "x"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("tampered token accepted: %v", err)
	}
}
