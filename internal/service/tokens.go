package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "statement-recon"
	tokenType   = "service"
)

// ServiceClaims are the claims of a service token.
type ServiceClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 service tokens for API callers.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue signs a token for subject. A zero ttl issues a token without expiry.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ServiceClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			Issuer:   tokenIssuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and checks a token.
func (s *TokenService) Validate(tokenString string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != tokenType {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}
