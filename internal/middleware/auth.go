package middleware

import (
	"net/http"
	"strings"

	"github.com/SwipeSavdev/camp-card-sub001/internal/contextkeys"
	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/SwipeSavdev/camp-card-sub001/internal/handler"
)

// TokenVerifier turns a bearer token into the caller it was issued to.
type TokenVerifier interface {
	VerifyToken(token string) (*domain.Principal, error)
}

// Auth creates a JWT authentication middleware.
func Auth(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				handler.Error(w, domain.ErrUnauthorized("no token provided"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				handler.Error(w, domain.ErrUnauthorized("invalid authorization header"))
				return
			}

			principal, err := verifier.VerifyToken(strings.TrimSpace(parts[1]))
			if err != nil {
				handler.Error(w, domain.ErrUnauthorized("invalid or expired token"))
				return
			}

			ctx := contextkeys.WithPrincipal(r.Context(), *principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose role is not one of roles.
// Must be used AFTER Auth.
func RequireRole(roles ...domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := contextkeys.Principal(r.Context())
			if !ok {
				handler.Error(w, domain.ErrUnauthorized("authentication required"))
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			handler.Error(w, domain.ErrForbidden("insufficient role"))
		})
	}
}

// AdminOnly allows council and national administrators.
func AdminOnly(next http.Handler) http.Handler {
	return RequireRole(domain.RoleCouncilAdmin, domain.RoleNationalAdmin)(next)
}
