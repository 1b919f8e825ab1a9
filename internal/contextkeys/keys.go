package contextkeys

import (
	"context"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// principalKey holds the authenticated domain.Principal.
const principalKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Principal returns the authenticated caller stored in ctx, if any.
func Principal(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	if !ok || p.UserID == "" {
		return domain.Principal{}, false
	}
	return p, true
}
