package auth

import (
	"errors"
	"testing"
	"time"
)

func TestServiceTokens_GenerateToken(t *testing.T) {
	service := NewServiceTokens("test-secret-key", 5*time.Minute)

	token, err := service.GenerateToken(ForwarderSubject, "alerts:write")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if token == "" {
		t.Fatal("Expected token to be generated")
	}
}

func TestServiceTokens_ValidateToken(t *testing.T) {
	service := NewServiceTokens("test-secret-key", 5*time.Minute)

	token, err := service.GenerateToken(ForwarderSubject, "alerts:write")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := service.ValidateToken(token, "alerts:write")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if claims.Subject != ForwarderSubject {
		t.Errorf("Expected subject %s, got %s", ForwarderSubject, claims.Subject)
	}
}

func TestServiceTokens_ValidateToken_Invalid(t *testing.T) {
	service := NewServiceTokens("test-secret-key", 5*time.Minute)

	_, err := service.ValidateToken("invalid.token.here", "alerts:write")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestServiceTokens_ValidateToken_WrongSecret(t *testing.T) {
	issuer := NewServiceTokens("issuer-secret", 5*time.Minute)
	verifier := NewServiceTokens("other-secret", 5*time.Minute)

	token, err := issuer.GenerateToken(ForwarderSubject, "alerts:write")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := verifier.ValidateToken(token, "alerts:write"); err == nil {
		t.Fatal("Expected error for token signed with another secret")
	}
}

func TestServiceTokens_ValidateToken_WrongScope(t *testing.T) {
	service := NewServiceTokens("test-secret-key", 5*time.Minute)

	token, err := service.GenerateToken(ForwarderSubject, "status:write")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := service.ValidateToken(token, "alerts:write"); err == nil {
		t.Fatal("Expected error for token with another scope")
	}
}

func TestServiceTokens_ValidateToken_Expired(t *testing.T) {
	service := NewServiceTokens("test-secret-key", -time.Minute) // Expired token

	token, err := service.GenerateToken(ForwarderSubject, "alerts:write")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	_, err = service.ValidateToken(token, "alerts:write")
	if err == nil {
		t.Fatal("Expected error for expired token")
	}
}

func TestServiceTokens_NoSecret(t *testing.T) {
	service := NewServiceTokens("", 5*time.Minute)

	if _, err := service.GenerateToken(ForwarderSubject, "alerts:write"); err == nil {
		t.Fatal("Expected error when no secret is configured")
	}
	if _, err := service.ValidateToken("a.b.c", "alerts:write"); err == nil {
		t.Fatal("Expected validation to fail closed without a secret")
	}
}
