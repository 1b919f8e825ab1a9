package handler

import (
	"net/http"

	"github.com/SwipeSavdev/camp-card-sub001/internal/contextkeys"
	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
)

// callerID returns the authenticated user's ID. "My" endpoints always act on
// this ID and never on a client-supplied one.
func callerID(r *http.Request) (string, error) {
	p, ok := contextkeys.Principal(r.Context())
	if !ok {
		return "", domain.ErrUnauthorized("authentication required")
	}
	return p.UserID, nil
}

func caller(r *http.Request) (domain.Principal, error) {
	p, ok := contextkeys.Principal(r.Context())
	if !ok {
		return domain.Principal{}, domain.ErrUnauthorized("authentication required")
	}
	return p, nil
}
