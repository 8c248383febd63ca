package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type principalKey struct{}

// Principal is the authenticated caller.
type Principal struct {
	Subject string
	Email   string
}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticator resolves bearer tokens to principals.
type Authenticator struct {
	validator TokenValidator
	logger    *slog.Logger
}

// NewAuthenticator creates an authenticator. A nil logger uses slog.Default.
func NewAuthenticator(v TokenValidator, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{validator: v, logger: logger}
}

// Middleware rejects requests without a valid bearer token with 401.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized: bearer token required")
				return
			}
			claims, err := a.validator.Validate(r.Context(), token)
			if err != nil {
				a.logger.Debug("token rejected", "error", err, "request_id", RequestIDFromContext(r.Context()))
				writeError(w, http.StatusUnauthorized, "unauthorized: invalid token")
				return
			}
			if claims.Subject == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized: token has no subject")
				return
			}
			ctx := WithPrincipal(r.Context(), Principal{Subject: claims.Subject, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    code,
		"message": message,
	})
}
