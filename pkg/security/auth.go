package security

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/whitelabel-ai/askai-service/internal/apperr"
)

// Verifier validates a bearer token and returns its claims
type Verifier interface {
	Verify(token string) (*AccessTokenClaims, error)
}

// contextKey is a private type for context keys
type contextKey string

const (
	claimsContextKey contextKey = "access_claims"
)

// WithClaims adds verified token claims to the context
func WithClaims(ctx context.Context, claims *AccessTokenClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext retrieves verified token claims from the context
func ClaimsFromContext(ctx context.Context) (*AccessTokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*AccessTokenClaims)
	return claims, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns "" when the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireBearer is a middleware that rejects requests without a valid bearer
// token. deny writes the rejection; verified claims are put on the context.
func RequireBearer(v Verifier, deny func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				deny(w, r, apperr.Auth(errors.New("missing bearer token")))
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				deny(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
