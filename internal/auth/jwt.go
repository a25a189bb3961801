package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeAlertsWrite allows posting purchase alerts.
const ScopeAlertsWrite = "alerts:write"

// ForwarderSubject identifies tokens minted for purchase-alert forwarding.
const ForwarderSubject = "relay-forwarder"

var ErrInvalidToken = errors.New("invalid token")

// ServiceClaims are carried by service-to-service tokens.
type ServiceClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// ServiceTokens issues and validates short-lived HS256 service tokens.
type ServiceTokens struct {
	secret []byte
	ttl    time.Duration
}

func NewServiceTokens(secret string, ttl time.Duration) *ServiceTokens {
	return &ServiceTokens{secret: []byte(secret), ttl: ttl}
}

// GenerateToken mints a token for subject with the given scope.
func (s *ServiceTokens) GenerateToken(subject, scope string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("service token secret not configured")
	}
	now := time.Now()
	claims := ServiceClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses token and checks signature, expiry and scope.
func (s *ServiceTokens) ValidateToken(tokenString, scope string) (*ServiceClaims, error) {
	if len(s.secret) == 0 {
		return nil, ErrInvalidToken
	}
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Scope != scope {
		return nil, fmt.Errorf("%w: scope %q not allowed", ErrInvalidToken, claims.Scope)
	}
	return claims, nil
}
