// Package jwt validates the bearer tokens the platform's auth service
// issues. This service never mints user credentials; it only verifies
// access tokens so the turn endpoint can trust user_id and tenant
// claims. Token generation exists for tests and tooling.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims represents the JWT claims
type Claims struct {
	UserID    string `json:"sub"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TenantID  string `json:"tenantId,omitempty"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

// Config holds the signing parameters shared with the auth service.
type Config struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// Manager handles JWT token operations
type Manager struct {
	config Config
}

// NewManager creates a new JWT manager
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// GenerateAccessToken signs an access token for a user. Used by tests
// and local tooling; production tokens come from the auth service.
func (m *Manager) GenerateAccessToken(userID, email, role, tenantID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TenantID:  tenantID,
		TokenType: string(AccessToken),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a JWT token and returns the claims
func (m *Manager) ValidateToken(tokenString string, expectedType TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.Secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotValidYet
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != string(expectedType) {
		return nil, ErrInvalidTokenType
	}

	if claims.Issuer != m.config.Issuer {
		return nil, ErrInvalidIssuer
	}

	return claims, nil
}

// ValidateAccessToken validates an access token
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return m.ValidateToken(tokenString, AccessToken)
}

// ExtractTokenFromHeader extracts the token from an Authorization header
func (m *Manager) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingToken
	}

	const bearerPrefix = "Bearer "
	if len(authHeader) < len(bearerPrefix) || authHeader[:len(bearerPrefix)] != bearerPrefix {
		return "", ErrInvalidTokenFormat
	}

	return authHeader[len(bearerPrefix):], nil
}

// JWT errors
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenNotValidYet   = errors.New("token not valid yet")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidIssuer      = errors.New("invalid token issuer")
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidTokenFormat = errors.New("invalid token format")
)
