package handler

import (
	"context"
	"net/http"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/go-chi/chi/v5"
)

// UserManager is the collaborator behind the user endpoints.
type UserManager interface {
	List(ctx context.Context, page domain.PageRequest) (domain.Page[*domain.User], error)
	Search(ctx context.Context, q string, page domain.PageRequest) (domain.Page[*domain.User], error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, caller domain.Principal, req *domain.CreateUserRequest) (*domain.User, error)
	Update(ctx context.Context, caller domain.Principal, id string, req *domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	ListByCouncil(ctx context.Context, councilID string, page domain.PageRequest) (domain.Page[*domain.User], error)
	ListByTroop(ctx context.Context, troopID string) ([]*domain.User, error)
	ListScoutsByTroop(ctx context.Context, troopID string) ([]*domain.User, error)
	AssignToTroop(ctx context.Context, userID, troopID string) (*domain.User, error)
	RemoveFromTroop(ctx context.Context, userID string) (*domain.User, error)
	UnassignedScouts(ctx context.Context, councilID *string) ([]*domain.User, error)
}

// UserHandler handles user and roster endpoints.
type UserHandler struct {
	users UserManager
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserManager) *UserHandler {
	return &UserHandler{users: users}
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		Error(w, err)
		return
	}
	users, err := h.users.List(r.Context(), page)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, users)
}

// Search handles GET /api/v1/users/search.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		Error(w, err)
		return
	}
	users, err := h.users.Search(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, users)
}

// Get handles GET /api/v1/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, user)
}

// Create handles POST /api/v1/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		Error(w, err)
		return
	}
	var req domain.CreateUserRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}
	user, err := h.users.Create(r.Context(), p, &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, user)
}

// Update handles PUT /api/v1/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		Error(w, err)
		return
	}
	var req domain.UpdateUserRequest
	if err := DecodeValid(r, &req); err != nil {
		Error(w, err)
		return
	}
	user, err := h.users.Update(r.Context(), p, chi.URLParam(r, "id"), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	NoContent(w)
}

// ListByCouncil handles GET /api/v1/users/council/{councilId}.
func (h *UserHandler) ListByCouncil(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		Error(w, err)
		return
	}
	users, err := h.users.ListByCouncil(r.Context(), chi.URLParam(r, "councilId"), page)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, users)
}

// ListByTroop handles GET /api/v1/users/troop/{troopId}.
func (h *UserHandler) ListByTroop(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, h.users.ListByTroop)
}

// ListScoutsByTroop handles GET /api/v1/users/troop/{troopId}/scouts.
func (h *UserHandler) ListScoutsByTroop(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, h.users.ListScoutsByTroop)
}

func (h *UserHandler) writeList(w http.ResponseWriter, r *http.Request, op func(context.Context, string) ([]*domain.User, error)) {
	users, err := op(r.Context(), chi.URLParam(r, "troopId"))
	if err != nil {
		Error(w, err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	JSON(w, http.StatusOK, users)
}

// AssignToTroop handles PUT /api/v1/users/{id}/troop/{troopId}.
func (h *UserHandler) AssignToTroop(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.AssignToTroop(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "troopId"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, user)
}

// RemoveFromTroop handles DELETE /api/v1/users/{id}/troop.
func (h *UserHandler) RemoveFromTroop(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.RemoveFromTroop(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, user)
}

// UnassignedScouts handles GET /api/v1/users/scouts/unassigned.
func (h *UserHandler) UnassignedScouts(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.UnassignedScouts(r.Context(), optionalQuery(r, "councilId"))
	if err != nil {
		Error(w, err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	JSON(w, http.StatusOK, users)
}
