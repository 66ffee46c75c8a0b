package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/whitelabel-ai/askai-service/internal/apperr"
)

const (
	// TokenSubject is the fixed subject of every access token
	TokenSubject = "n8n"

	// TokenAudience is the fixed audience of every access token
	TokenAudience = "ai-assistant"

	// TokenLifetime is how long an issued token stays valid
	TokenLifetime = 10 * time.Minute
)

// AccessTokenClaims are the claims carried by an access token.
type AccessTokenClaims struct {
	LicenseCert string `json:"licenseCert"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies short-lived HS256 bearer tokens. It keeps no
// server-side state: a token is valid as long as its signature and expiry are.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenIssuer
type TokenOption func(*TokenIssuer)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) TokenOption {
	return func(i *TokenIssuer) {
		i.now = now
	}
}

// NewTokenIssuer creates a token issuer signing with secret.
func NewTokenIssuer(secret string, opts ...TokenOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	i := &TokenIssuer{
		secret: []byte(secret),
		ttl:    TokenLifetime,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a new token for licenseCert.
func (i *TokenIssuer) Issue(licenseCert string) (string, error) {
	if licenseCert == "" {
		return "", apperr.Validation("licenseCert required")
	}

	now := i.now()
	claims := AccessTokenClaims{
		LicenseCert: licenseCert,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   TokenSubject,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, audience, subject and expiry.
func (i *TokenIssuer) Verify(token string) (*AccessTokenClaims, error) {
	if token == "" {
		return nil, apperr.Auth(errors.New("missing token"))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(TokenAudience),
		jwt.WithSubject(TokenSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	var claims AccessTokenClaims
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}); err != nil {
		return nil, apperr.Auth(err)
	}
	return &claims, nil
}
