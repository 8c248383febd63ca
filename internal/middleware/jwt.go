// Package middleware provides the HTTP middleware of the query API: bearer
// authentication, per-client rate limiting and request ids.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims holds the parsed claims from a validated JWT.
type JWTClaims struct {
	Subject   string
	Issuer    string
	Audience  []string
	Email     string
	ExpiresAt time.Time
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string) (*JWTClaims, error)
}

// HS256Validator validates JWTs signed with a shared HS256 secret.
type HS256Validator struct {
	secret   []byte
	issuer   string
	audience string
}

// Compile-time check.
var _ TokenValidator = (*HS256Validator)(nil)

// NewHS256Validator creates a validator for HS256 tokens. Issuer and audience
// are checked only when non-empty.
func NewHS256Validator(secret, issuer, audience string) (*HS256Validator, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required")
	}
	return &HS256Validator{secret: []byte(secret), issuer: issuer, audience: audience}, nil
}

// Validate verifies the signature, expiry and optional issuer/audience.
func (v *HS256Validator) Validate(_ context.Context, tokenString string) (*JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	raw := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(tokenString, raw, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	claims := &JWTClaims{}
	claims.Subject, _ = raw.GetSubject()
	claims.Issuer, _ = raw.GetIssuer()
	claims.Audience, _ = raw.GetAudience()
	if exp, err := raw.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if email, ok := raw["email"].(string); ok {
		claims.Email = email
	}
	return claims, nil
}

// IssueHS256 signs a token for subject that expires after ttl.
func IssueHS256(secret, issuer, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
