package handler

import (
	"context"
	"net/http"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResponse, error)
}

// UserGetter looks up a user by ID.
type UserGetter interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

// AuthHandler handles authentication HTTP endpoints.
type AuthHandler struct {
	auth  Authenticator
	users UserGetter
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth Authenticator, users UserGetter) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		Error(w, err)
		return
	}
	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, user)
}
