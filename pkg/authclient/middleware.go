package authclient

import (
	"context"
	"log/slog"
	"net/http"

	pkghttp "github.com/BradenHooton/tavern-gate/pkg/http"
)

// Validator is satisfied by *Client
type Validator interface {
	Validate(ctx context.Context, token string) (bool, error)
}

// Middleware admits a request only when its auth_token cookie validates
func Middleware(v Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			valid, err := v.Validate(r.Context(), cookie.Value)
			if err != nil {
				logger.Error("token validation failed", slog.Any("error", err))
				pkghttp.WriteInternalError(w, "Authentication service error")
				return
			}
			if !valid {
				pkghttp.WriteUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
